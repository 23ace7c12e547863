package object

import "strconv"

// IntNum is a signed integer quantity used for offsets, distances and
// constant expression results.
type IntNum struct {
	v int64
}

// NewIntNum creates an IntNum with the given value.
func NewIntNum(v int64) IntNum { return IntNum{v: v} }

// Int returns the value as an int64.
func (n IntNum) Int() int64 { return n.v }

// Sign returns -1, 0 or 1.
func (n IntNum) Sign() int {
	switch {
	case n.v < 0:
		return -1
	case n.v > 0:
		return 1
	}
	return 0
}

// String returns the decimal representation.
func (n IntNum) String() string { return strconv.FormatInt(n.v, 10) }
