package parser

// branchSpec gives the short (rel8) and near (rel32) opcode bytes of a
// branch mnemonic.
type branchSpec struct {
	short []byte
	near  []byte
}

// The jmp/jcc family. Short forms are opcode+rel8; near forms are
// opcode(s)+rel32.
var branchOps = map[string]branchSpec{
	"jmp": {short: []byte{0xEB}, near: []byte{0xE9}},
	"je":  {short: []byte{0x74}, near: []byte{0x0F, 0x84}},
	"jz":  {short: []byte{0x74}, near: []byte{0x0F, 0x84}},
	"jne": {short: []byte{0x75}, near: []byte{0x0F, 0x85}},
	"jnz": {short: []byte{0x75}, near: []byte{0x0F, 0x85}},
	"jc":  {short: []byte{0x72}, near: []byte{0x0F, 0x82}},
	"jb":  {short: []byte{0x72}, near: []byte{0x0F, 0x82}},
	"jnc": {short: []byte{0x73}, near: []byte{0x0F, 0x83}},
	"jae": {short: []byte{0x73}, near: []byte{0x0F, 0x83}},
	"ja":  {short: []byte{0x77}, near: []byte{0x0F, 0x87}},
	"jbe": {short: []byte{0x76}, near: []byte{0x0F, 0x86}},
	"jl":  {short: []byte{0x7C}, near: []byte{0x0F, 0x8C}},
	"jge": {short: []byte{0x7D}, near: []byte{0x0F, 0x8D}},
	"jle": {short: []byte{0x7E}, near: []byte{0x0F, 0x8E}},
	"jg":  {short: []byte{0x7F}, near: []byte{0x0F, 0x8F}},
}

// Fixed single-byte instructions.
var simpleOps = map[string][]byte{
	"nop":  {0x90},
	"ret":  {0xC3},
	"hlt":  {0xF4},
	"clc":  {0xF8},
	"stc":  {0xF9},
	"cli":  {0xFA},
	"sti":  {0xFB},
	"int3": {0xCC},
}
