package object

import "io"

// align pads the following offset up to a boundary. It is offset-setting:
// its tail is whatever padding the current offset requires, and it can
// absorb growth of preceding bytecodes by shrinking that padding.
type align struct {
	boundary int64
	fill     byte
}

// NewAlign creates align contents for the given boundary and fill byte.
func NewAlign(boundary int64, fill byte) Contents {
	return &align{boundary: boundary, fill: fill}
}

func (a *align) padFrom(offset int64) int64 {
	rem := offset % a.boundary
	if rem == 0 {
		return 0
	}
	return a.boundary - rem
}

func (a *align) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int64, error) {
	return a.padFrom(bc.Offset()), nil
}

func (a *align) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (int64, int64, bool, error) {
	if spanID != 1 {
		return noExpand(bc, spanID)
	}
	pad := a.padFrom(newVal)
	bc.SetTailLen(pad)
	// The positive threshold is the aligned target offset: while the start
	// offset stays at or below it, the following offset is unchanged.
	return 0, newVal + pad, true, nil
}

func (a *align) Emit(bc *Bytecode, w io.Writer) error {
	return writeFill(w, a.fill, bc.TailLen())
}

func (a *align) Classify() Class { return OffsetSetting }

func writeFill(w io.Writer, fill byte, n int64) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	if fill != 0 {
		for i := range buf {
			buf[i] = fill
		}
	}
	_, err := w.Write(buf)
	return err
}
