package object

import (
	"bytes"
	"fmt"
	"io"
)

// times replicates a fixed unit of bytes a number of times given by an
// expression. Constant counts are folded at length calculation; counts that
// depend on the layout register a recompute-on-any-change span (id 0) and
// start from the all-short assumption of zero copies.
type times struct {
	count    *Expr
	unit     []byte
	countVal int64
}

// NewTimes creates times contents replicating unit bytes count times.
func NewTimes(count *Expr, unit []byte) Contents {
	return &times{count: count, unit: unit}
}

func (t *times) CalcLen(bc *Bytecode, addSpan AddSpanFunc) (int64, error) {
	folded := t.count.Clone()
	folded.Simplify()
	if n, ok := folded.AsInt(); ok {
		if n < 0 {
			return 0, fmt.Errorf("replication count is negative (%d)", n)
		}
		t.countVal = n
		return n * int64(len(t.unit)), nil
	}
	if !t.count.ContainsLayoutRef() {
		return 0, fmt.Errorf("replication count is not an integer")
	}
	addSpan(bc, 0, NewValue(t.count.Clone()), 0, 0)
	t.countVal = 0
	return 0, nil
}

func (t *times) Expand(bc *Bytecode, spanID int, oldVal, newVal int64) (int64, int64, bool, error) {
	if spanID != 0 {
		return noExpand(bc, spanID)
	}
	if newVal < 0 {
		return 0, 0, false, fmt.Errorf("replication count is negative (%d)", newVal)
	}
	t.countVal = newVal
	bc.SetTailLen(newVal * int64(len(t.unit)))
	return 0, 0, true, nil
}

func (t *times) Emit(bc *Bytecode, w io.Writer) error {
	if t.countVal == 0 || len(t.unit) == 0 {
		return nil
	}
	_, err := w.Write(bytes.Repeat(t.unit, int(t.countVal)))
	return err
}

func (t *times) Classify() Class { return Plain }
