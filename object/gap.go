package object

import "io"

// gap reserves a fixed amount of zero-filled space (resb).
type gap struct {
	size int64
}

// NewGap creates gap contents reserving size bytes.
func NewGap(size int64) Contents {
	return &gap{size: size}
}

func (g *gap) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int64, error) {
	return g.size, nil
}

func (g *gap) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (int64, int64, bool, error) {
	return noExpand(bc, spanID)
}

func (g *gap) Emit(bc *Bytecode, w io.Writer) error {
	return writeFill(w, 0, bc.TailLen())
}

func (g *gap) Classify() Class { return Plain }
