package object

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Bytecode is the atomic unit of layout: an immutable fixed prefix plus a
// variable-length tail controlled by its contents. The optimizer assigns its
// index and offset and may grow (never shrink, except for offset-setters)
// its tail.
type Bytecode struct {
	contents  Contents
	fixed     []byte
	fixups    []Fixup
	container *Section
	tailLen   int64
	line      int
	offset    int64
	index     int
	symbols   []*Symbol
}

// Fixup is a value patched into the fixed portion at emit time.
type Fixup struct {
	Off  int64 // offset within the fixed portion
	Size int   // 1, 2 or 4 bytes, little-endian
	Val  Value
	Line int
}

// Contents returns the bytecode's contents, or nil for pure data.
func (bc *Bytecode) Contents() Contents { return bc.contents }

// HasContents returns true if the bytecode has implementation-specific
// contents.
func (bc *Bytecode) HasContents() bool { return bc.contents != nil }

// Container returns the section holding this bytecode.
func (bc *Bytecode) Container() *Section { return bc.container }

// Line returns the source line the bytecode was defined on.
func (bc *Bytecode) Line() int { return bc.line }

// SetLine sets the source line.
func (bc *Bytecode) SetLine(line int) { bc.line = line }

// Index returns the optimizer-assigned sequential index.
func (bc *Bytecode) Index() int { return bc.index }

// SetIndex assigns the sequential index. Used by the optimizer only.
func (bc *Bytecode) SetIndex(idx int) { bc.index = idx }

// Offset returns the start offset within the containing section. Only valid
// once the optimizer has assigned offsets.
func (bc *Bytecode) Offset() int64 { return bc.offset }

// SetOffset assigns the offset. Used by the optimizer only.
func (bc *Bytecode) SetOffset(off int64) { bc.offset = off }

// FixedLen returns the size of the fixed prefix.
func (bc *Bytecode) FixedLen() int64 { return int64(len(bc.fixed)) }

// TailLen returns the current variable tail length.
func (bc *Bytecode) TailLen() int64 { return bc.tailLen }

// SetTailLen sets the tail length. Intended for Contents implementations.
func (bc *Bytecode) SetTailLen(n int64) { bc.tailLen = n }

// TotalLen returns fixed plus tail length.
func (bc *Bytecode) TotalLen() int64 { return int64(len(bc.fixed)) + bc.tailLen }

// NextOffset returns the offset of the following bytecode.
func (bc *Bytecode) NextOffset() int64 { return bc.offset + bc.TotalLen() }

// Fixed returns the fixed prefix bytes.
func (bc *Bytecode) Fixed() []byte { return bc.fixed }

// AppendFixed appends raw bytes to the fixed prefix.
func (bc *Bytecode) AppendFixed(data []byte) {
	bc.fixed = append(bc.fixed, data...)
}

// AppendFixup appends a value of the given byte size to the fixed prefix,
// reserving zero bytes as a placeholder.
func (bc *Bytecode) AppendFixup(size int, val Value, line int) {
	bc.fixups = append(bc.fixups, Fixup{
		Off:  int64(len(bc.fixed)),
		Size: size,
		Val:  val,
		Line: line,
	})
	bc.fixed = append(bc.fixed, make([]byte, size)...)
}

// Fixups returns the fixups into the fixed portion.
func (bc *Bytecode) Fixups() []Fixup { return bc.fixups }

// Symbols returns the symbols defined at this bytecode.
func (bc *Bytecode) Symbols() []*Symbol { return bc.symbols }

func (bc *Bytecode) addSymbol(sym *Symbol) {
	bc.symbols = append(bc.symbols, sym)
}

// Classify returns the contents classification, Plain for data bytecodes.
func (bc *Bytecode) Classify() Class {
	if bc.contents == nil {
		return Plain
	}
	return bc.contents.Classify()
}

// CalcLen computes the bytecode's minimum tail length, registering dependent
// spans through addSpan.
func (bc *Bytecode) CalcLen(addSpan AddSpanFunc) error {
	if bc.contents == nil {
		bc.tailLen = 0
		return nil
	}
	n, err := bc.contents.CalcLen(bc, addSpan)
	if err != nil {
		return err
	}
	bc.tailLen = n
	return nil
}

// Expand recalculates the tail length for a new span value, returning the
// new thresholds and whether the bytecode remains dependent on the span.
func (bc *Bytecode) Expand(spanID int, oldVal, newVal int64) (negThres, posThres int64, keep bool, err error) {
	if bc.contents == nil {
		return noExpand(bc, spanID)
	}
	return bc.contents.Expand(bc, spanID, oldVal, newVal)
}

// UpdateOffset assigns the bytecode's offset and returns the offset of the
// next bytecode. Offset-setting bytecodes re-expand first so their tail
// reflects the (possibly moved) offset.
func (bc *Bytecode) UpdateOffset(offset int64) (int64, error) {
	if bc.Classify() == OffsetSetting {
		if _, _, _, err := bc.contents.Expand(bc, 1, 0, offset); err != nil {
			return 0, err
		}
	}
	bc.offset = offset
	return bc.NextOffset(), nil
}

// Emit writes the bytecode's bytes: the fixed prefix with fixups resolved,
// then the contents tail. Only valid on an optimized, error-free object.
func (bc *Bytecode) Emit(w io.Writer) error {
	if len(bc.fixups) == 0 {
		if _, err := w.Write(bc.fixed); err != nil {
			return err
		}
	} else {
		out := make([]byte, len(bc.fixed))
		copy(out, bc.fixed)
		for _, f := range bc.fixups {
			v, err := resolveFixup(f)
			if err != nil {
				return err
			}
			switch f.Size {
			case 1:
				out[f.Off] = byte(v)
			case 2:
				binary.LittleEndian.PutUint16(out[f.Off:], uint16(v))
			case 4:
				binary.LittleEndian.PutUint32(out[f.Off:], uint32(v))
			default:
				return fmt.Errorf("line %d: unsupported fixup size %d", f.Line, f.Size)
			}
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	}
	if bc.contents == nil {
		return nil
	}
	return bc.contents.Emit(bc, w)
}

func resolveFixup(f Fixup) (int64, error) {
	resolve := func(sym *Symbol) (int64, bool) {
		if !sym.IsDefined() || sym.IsConstant() {
			return 0, false
		}
		return sym.Location().Offset(), true
	}
	if f.Val.Rel() != nil {
		base, ok := resolve(f.Val.Rel())
		if !ok {
			return 0, fmt.Errorf("line %d: cannot resolve symbol `%s'", f.Line, f.Val.Rel().Name())
		}
		addend := int64(0)
		if f.Val.HasAbs() {
			v, ok := f.Val.Abs().Eval(resolve)
			if !ok {
				return 0, fmt.Errorf("line %d: cannot resolve value", f.Line)
			}
			addend = v
		}
		return base + addend, nil
	}
	v, ok := f.Val.Abs().Eval(resolve)
	if !ok {
		return 0, fmt.Errorf("line %d: cannot resolve value", f.Line)
	}
	return v, nil
}
