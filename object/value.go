package object

// Value is a layout-dependent quantity: an optional absolute expression plus
// an optional relative symbol. A value is purely absolute when it has no
// relative part and its absolute part contains no reference that cannot be
// reduced to a same-section distance.
type Value struct {
	abs *Expr
	rel *Symbol
}

// NewValue creates a value from an absolute expression.
func NewValue(abs *Expr) Value { return Value{abs: abs} }

// NewRelValue creates a value relative to the given symbol with an optional
// absolute addend.
func NewRelValue(rel *Symbol, abs *Expr) Value { return Value{abs: abs, rel: rel} }

// HasAbs returns true if the value has an absolute portion.
func (v *Value) HasAbs() bool { return v.abs != nil }

// Abs returns the absolute portion, or nil.
func (v *Value) Abs() *Expr { return v.abs }

// Rel returns the relative symbol, or nil.
func (v *Value) Rel() *Symbol { return v.rel }

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	return Value{abs: v.abs.Clone(), rel: v.rel}
}

// IsRelative reports whether the value has a relative symbol. The absolute
// portion is not inspected: an undefined or cross-section reference there
// does not make the value relative, it only leaves the absolute expression
// unreducible after SubstDist and Simplify.
func (v *Value) IsRelative() bool {
	return v.rel != nil
}

// SubstDist walks the value's absolute expression and replaces every
// subtraction whose operands both resolve to locations within the same
// container with a fresh substitution slot, calling fn once per replacement.
// Subtractions that cannot be reduced (cross-section, undefined symbols) are
// left in place, so a later Simplify will fail to produce an integer and the
// value takes the too-complex path.
func (v *Value) SubstDist(fn func(slot int, loc1, loc2 Location)) {
	if v.abs == nil {
		return
	}
	next := 0
	substDist(v.abs, &next, fn)
}

func substDist(e *Expr, next *int, fn func(slot int, loc1, loc2 Location)) {
	if e == nil {
		return
	}
	if e.op == ExprSub {
		loc2, ok2 := exprLocation(e.lhs)
		loc1, ok1 := exprLocation(e.rhs)
		if ok1 && ok2 && loc1.Container() == loc2.Container() {
			slot := *next
			*next++
			fn(slot, loc1, loc2)
			*e = Expr{op: ExprSubst, slot: slot}
			return
		}
	}
	substDist(e.lhs, next, fn)
	substDist(e.rhs, next, fn)
}

// exprLocation resolves a leaf expression to a layout location: either a
// direct location reference or a defined label symbol.
func exprLocation(e *Expr) (Location, bool) {
	if e == nil {
		return Location{}, false
	}
	switch e.op {
	case ExprLoc:
		return e.loc, true
	case ExprSym:
		if e.sym.IsDefined() && !e.sym.IsConstant() {
			return e.sym.Location(), true
		}
	}
	return Location{}, false
}
