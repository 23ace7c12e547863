package object

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BranchForm is the current encoding of a branch bytecode.
type BranchForm int

const (
	FormShort BranchForm = iota
	FormNear
)

// branch models a short/near displacement instruction (the jmp/jcc family):
// the short form is opcode + rel8, the near form is opcode(s) + rel32.
// It starts short and registers a span on target-start so the optimizer can
// widen it when the displacement leaves the rel8 window.
type branch struct {
	opShort []byte
	opNear  []byte
	target  *Expr
	form    BranchForm
}

// NewBranch creates branch contents with the given short and near opcodes
// and a target expression.
func NewBranch(opShort, opNear []byte, target *Expr) Contents {
	return &branch{opShort: opShort, opNear: opNear, target: target}
}

func (b *branch) shortLen() int64 { return int64(len(b.opShort)) + 1 }
func (b *branch) nearLen() int64  { return int64(len(b.opNear)) + 4 }

// Form returns the branch's current encoding form.
func (b *branch) Form() BranchForm { return b.form }

func (b *branch) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int64, error) {
	// A branch already widened to near covers any same-section displacement
	// and registers no span.
	if b.form == FormNear {
		return b.nearLen(), nil
	}
	// The dependent value is target minus the branch's own start; the rel8
	// displacement is encoded relative to the end of the short form, so the
	// thresholds carry the short length.
	depval := NewValue(Sub(b.target.Clone(), NewLoc(Location{BC: bc})))
	short := b.shortLen()
	addSpan(bc, 1, depval, -128+short, 127+short)
	return short, nil
}

func (b *branch) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (int64, int64, bool, error) {
	if spanID != 1 {
		return noExpand(bc, spanID)
	}
	// Widen to the near form; rel32 covers any same-section displacement, so
	// the bytecode is no longer dependent on the span.
	b.form = FormNear
	bc.SetTailLen(b.nearLen())
	return 0, 0, false, nil
}

func (b *branch) Emit(bc *Bytecode, w io.Writer) error {
	resolve := func(sym *Symbol) (int64, bool) {
		if !sym.IsDefined() || sym.IsConstant() {
			return 0, false
		}
		return sym.Location().Offset(), true
	}
	target, ok := b.target.Eval(resolve)
	if !ok {
		return fmt.Errorf("line %d: cannot resolve branch target", bc.Line())
	}
	disp := target - bc.NextOffset()
	switch b.form {
	case FormShort:
		if disp < -128 || disp > 127 {
			return fmt.Errorf("line %d: short branch out of range (%d)", bc.Line(), disp)
		}
		if _, err := w.Write(b.opShort); err != nil {
			return err
		}
		_, err := w.Write([]byte{byte(int8(disp))})
		return err
	case FormNear:
		if _, err := w.Write(b.opNear); err != nil {
			return err
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int32(disp)))
		_, err := w.Write(buf[:])
		return err
	}
	return fmt.Errorf("line %d: unknown branch form", bc.Line())
}

func (b *branch) Classify() Class { return Plain }

// BranchFormOf returns the branch form of a branch bytecode, for listings
// and tests. The second return is false for non-branch bytecodes.
func BranchFormOf(bc *Bytecode) (BranchForm, bool) {
	b, ok := bc.contents.(*branch)
	if !ok {
		return 0, false
	}
	return b.form, true
}
