package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimplifyFoldsConstants(t *testing.T) {
	tests := []struct {
		name string
		expr *Expr
		want int64
	}{
		{"addition", Add(NewInt(2), NewInt(3)), 5},
		{"subtraction", Sub(NewInt(10), NewInt(4)), 6},
		{"multiplication", Mul(NewInt(6), NewInt(7)), 42},
		{"negation", Neg(NewInt(9)), -9},
		{"nested", Add(Mul(NewInt(2), NewInt(3)), Neg(NewInt(1))), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.expr.Simplify()
			v, ok := tt.expr.AsInt()
			require.True(t, ok)
			require.Equal(t, tt.want, v)
		})
	}
}

func TestSimplifyLeavesSymbols(t *testing.T) {
	obj := New("t")
	sym := obj.Symbol("label")
	e := Add(NewSym(sym), NewInt(1))
	e.Simplify()
	_, ok := e.AsInt()
	require.False(t, ok)
	require.True(t, e.ContainsLayoutRef())
}

func TestSubstituteAndSimplify(t *testing.T) {
	// (slot0 - slot1) + 2 with slot0=10, slot1=3 folds to 9.
	e := Add(Sub(&Expr{op: ExprSubst, slot: 0}, &Expr{op: ExprSubst, slot: 1}), NewInt(2))
	e.Substitute(map[int]int64{0: 10, 1: 3})
	e.Simplify()
	v, ok := e.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(9), v)
}

func TestCloneIsDeep(t *testing.T) {
	e := Sub(NewInt(5), NewInt(2))
	c := e.Clone()
	c.Simplify()
	_, ok := c.AsInt()
	require.True(t, ok)
	// The original is untouched.
	require.Equal(t, ExprSub, e.Op())
}

func TestEvalResolvesConstantSymbols(t *testing.T) {
	obj := New("t")
	sym := obj.Symbol("size")
	require.NoError(t, sym.DefineConstant(NewIntNum(32), 1))

	e := Mul(NewSym(sym), NewInt(2))
	v, ok := e.Eval(nil)
	require.True(t, ok)
	require.Equal(t, int64(64), v)
	require.False(t, e.ContainsLayoutRef())
}

func TestCalcDist(t *testing.T) {
	obj := New("t")
	sect := obj.NewSection(".text")
	a := sect.StartBytecode(1)
	a.AppendFixed([]byte{1, 2, 3})
	b := sect.StartBytecode(2)
	b.AppendFixed([]byte{4})
	_, err := sect.UpdateOffsets()
	require.NoError(t, err)

	d, ok := CalcDist(Location{BC: a}, Location{BC: b, Off: 1})
	require.True(t, ok)
	require.Equal(t, int64(4), d.Int())

	// Reverse distances are negative.
	d, ok = CalcDist(Location{BC: b}, Location{BC: a})
	require.True(t, ok)
	require.Equal(t, int64(-3), d.Int())

	// Cross-section distances are not computable.
	other := obj.NewSection(".data")
	c := other.StartBytecode(3)
	_, ok = CalcDist(Location{BC: a}, Location{BC: c})
	require.False(t, ok)
}

func TestSubstDistExtractsSameSectionDistances(t *testing.T) {
	obj := New("t")
	sect := obj.NewSection(".text")
	a := sect.StartBytecode(1)
	a.AppendFixed([]byte{1, 2})
	b := sect.StartBytecode(2)
	b.AppendFixed([]byte{3})
	_, err := sect.UpdateOffsets()
	require.NoError(t, err)

	start := obj.Symbol("start")
	end := obj.Symbol("end")
	require.NoError(t, start.DefineLabel(Location{BC: a}, 1))
	require.NoError(t, end.DefineLabel(Location{BC: b}, 2))

	val := NewValue(Sub(NewSym(end), NewSym(start)))
	var calls int
	val.SubstDist(func(slot int, loc1, loc2 Location) {
		calls++
		require.Equal(t, 0, slot)
		require.Equal(t, a, loc1.BC)
		require.Equal(t, b, loc2.BC)
	})
	require.Equal(t, 1, calls)

	// The expression is now a bare substitution slot.
	abs := val.Abs().Clone()
	abs.Substitute(map[int]int64{0: 7})
	abs.Simplify()
	v, ok := abs.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(7), v)
}

func TestSubstDistSkipsCrossSectionPairs(t *testing.T) {
	obj := New("t")
	text := obj.NewSection(".text")
	data := obj.NewSection(".data")
	a := text.StartBytecode(1)
	b := data.StartBytecode(2)

	here := obj.Symbol("here")
	far := obj.Symbol("far")
	require.NoError(t, here.DefineLabel(Location{BC: a}, 1))
	require.NoError(t, far.DefineLabel(Location{BC: b}, 2))

	val := NewValue(Sub(NewSym(far), NewSym(here)))
	val.SubstDist(func(slot int, loc1, loc2 Location) {
		t.Fatal("cross-section pair must not produce a term")
	})

	// The unreduced expression cannot fold to an integer.
	abs := val.Abs().Clone()
	abs.Simplify()
	_, ok := abs.AsInt()
	require.False(t, ok)
}
