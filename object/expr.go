package object

import (
	"fmt"
	"strings"
)

// ExprOp identifies an expression node kind. Int, Sym, Loc and Subst are
// leaves; Add, Sub and Mul are binary; Neg is unary.
type ExprOp int

const (
	ExprInt ExprOp = iota
	ExprSym
	ExprLoc
	ExprSubst
	ExprAdd
	ExprSub
	ExprMul
	ExprNeg
)

// Expr is a symbolic integer expression over constants, symbol references
// and locations. Expressions are trees; interior nodes own their children.
type Expr struct {
	op   ExprOp
	lhs  *Expr
	rhs  *Expr
	num  int64
	sym  *Symbol
	loc  Location
	slot int
}

// NewInt creates a constant expression.
func NewInt(v int64) *Expr { return &Expr{op: ExprInt, num: v} }

// NewSym creates a symbol reference expression.
func NewSym(sym *Symbol) *Expr { return &Expr{op: ExprSym, sym: sym} }

// NewLoc creates a location reference expression.
func NewLoc(loc Location) *Expr { return &Expr{op: ExprLoc, loc: loc} }

// Add creates a+b.
func Add(a, b *Expr) *Expr { return &Expr{op: ExprAdd, lhs: a, rhs: b} }

// Sub creates a-b.
func Sub(a, b *Expr) *Expr { return &Expr{op: ExprSub, lhs: a, rhs: b} }

// Mul creates a*b.
func Mul(a, b *Expr) *Expr { return &Expr{op: ExprMul, lhs: a, rhs: b} }

// Neg creates -a.
func Neg(a *Expr) *Expr { return &Expr{op: ExprNeg, lhs: a} }

// Op returns the node kind.
func (e *Expr) Op() ExprOp { return e.op }

// Clone returns a deep copy of the expression.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	c := *e
	c.lhs = e.lhs.Clone()
	c.rhs = e.rhs.Clone()
	return &c
}

// Substitute replaces substitution slots with integer values, in place.
// Slots without an entry in the map are left untouched.
func (e *Expr) Substitute(vals map[int]int64) {
	if e == nil {
		return
	}
	if e.op == ExprSubst {
		if v, ok := vals[e.slot]; ok {
			*e = Expr{op: ExprInt, num: v}
		}
		return
	}
	e.lhs.Substitute(vals)
	e.rhs.Substitute(vals)
}

// Simplify folds constant subtrees, in place. It performs no symbol or
// location resolution; a simplified expression is an integer only when no
// symbolic leaves remain.
func (e *Expr) Simplify() {
	if e == nil {
		return
	}
	e.lhs.Simplify()
	e.rhs.Simplify()
	switch e.op {
	case ExprNeg:
		if e.lhs.op == ExprInt {
			*e = Expr{op: ExprInt, num: -e.lhs.num}
		}
	case ExprAdd:
		if e.lhs.op == ExprInt && e.rhs.op == ExprInt {
			*e = Expr{op: ExprInt, num: e.lhs.num + e.rhs.num}
		}
	case ExprSub:
		if e.lhs.op == ExprInt && e.rhs.op == ExprInt {
			*e = Expr{op: ExprInt, num: e.lhs.num - e.rhs.num}
		}
	case ExprMul:
		if e.lhs.op == ExprInt && e.rhs.op == ExprInt {
			*e = Expr{op: ExprInt, num: e.lhs.num * e.rhs.num}
		}
	}
}

// AsInt returns the expression value if it is a plain integer.
func (e *Expr) AsInt() (int64, bool) {
	if e == nil || e.op != ExprInt {
		return 0, false
	}
	return e.num, true
}

// Eval resolves the expression to a concrete integer using the given symbol
// resolver for label symbols. Constant (equ) symbols resolve to their value
// directly. Returns false if any leaf cannot be resolved.
func (e *Expr) Eval(resolve func(*Symbol) (int64, bool)) (int64, bool) {
	if e == nil {
		return 0, false
	}
	switch e.op {
	case ExprInt:
		return e.num, true
	case ExprSym:
		if v, ok := e.sym.Constant(); ok {
			return v.Int(), true
		}
		if resolve == nil {
			return 0, false
		}
		return resolve(e.sym)
	case ExprLoc:
		return e.loc.Offset(), true
	case ExprSubst:
		return 0, false
	case ExprNeg:
		v, ok := e.lhs.Eval(resolve)
		return -v, ok
	case ExprAdd, ExprSub, ExprMul:
		a, ok1 := e.lhs.Eval(resolve)
		b, ok2 := e.rhs.Eval(resolve)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch e.op {
		case ExprAdd:
			return a + b, true
		case ExprSub:
			return a - b, true
		default:
			return a * b, true
		}
	}
	return 0, false
}

// ContainsLayoutRef reports whether the expression references any
// non-constant symbol or location leaf (i.e. anything that depends on the
// layout). Constant (equ) symbols do not count.
func (e *Expr) ContainsLayoutRef() bool {
	if e == nil {
		return false
	}
	switch e.op {
	case ExprSym:
		return !e.sym.IsConstant()
	case ExprLoc:
		return true
	case ExprInt, ExprSubst:
		return false
	}
	return e.lhs.ContainsLayoutRef() || e.rhs.ContainsLayoutRef()
}

// String renders the expression for diagnostics and debug logs.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	switch e.op {
	case ExprInt:
		fmt.Fprintf(b, "%d", e.num)
	case ExprSym:
		b.WriteString(e.sym.Name())
	case ExprLoc:
		fmt.Fprintf(b, "{bc%d+%d}", e.loc.BC.Index(), e.loc.Off)
	case ExprSubst:
		fmt.Fprintf(b, "$%d", e.slot)
	case ExprNeg:
		b.WriteString("-(")
		e.lhs.write(b)
		b.WriteString(")")
	case ExprAdd, ExprSub, ExprMul:
		ops := map[ExprOp]string{ExprAdd: "+", ExprSub: "-", ExprMul: "*"}
		b.WriteString("(")
		e.lhs.write(b)
		b.WriteString(ops[e.op])
		e.rhs.write(b)
		b.WriteString(")")
	}
}
