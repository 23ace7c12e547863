package object

import (
	"fmt"
	"io"
)

// org places the following bytecode at a fixed start offset, padding with a
// fill byte. It is offset-setting; unlike align it can never move: growth of
// preceding bytecodes past the start offset is an offset regression.
type org struct {
	start int64
	fill  byte
}

// NewOrg creates org contents for the given start offset and fill byte.
func NewOrg(start int64, fill byte) Contents {
	return &org{start: start, fill: fill}
}

func (o *org) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int64, error) {
	if bc.Offset() > o.start {
		return 0, fmt.Errorf("org overlap with already existing data: %w", ErrOffsetRegression)
	}
	return o.start - bc.Offset(), nil
}

func (o *org) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (int64, int64, bool, error) {
	if spanID != 1 {
		return noExpand(bc, spanID)
	}
	if newVal > o.start {
		return 0, 0, false, fmt.Errorf("org overlap with already existing data: %w", ErrOffsetRegression)
	}
	bc.SetTailLen(o.start - newVal)
	return 0, o.start, true, nil
}

func (o *org) Emit(bc *Bytecode, w io.Writer) error {
	return writeFill(w, o.fill, bc.TailLen())
}

func (o *org) Classify() Class { return OffsetSetting }
