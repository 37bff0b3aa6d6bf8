package quantum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

func hsA() *hilbert.LocalSpace { return hilbert.NewLocalInt(1) }
func hsB() *hilbert.LocalSpace { return hilbert.NewLocalInt(2) }

func mustSum(t *testing.T, term quantum.Expr, idx scalar.Symbol, rangeArgs ...any) quantum.Expr {
	t.Helper()
	v, err := quantum.Sum(operator.Algebra(), idx, rangeArgs...)(term)
	require.NoError(t, err)
	return v
}

func TestSumOverConstantTerm(t *testing.T) {
	A := operator.NewSymbol("A", hsA())
	i := scalar.Sym("i")

	t.Run("known range collapses to count times term", func(t *testing.T) {
		v := mustSum(t, A, i, 3)
		st, ok := v.(*quantum.ScalarTimes)
		require.True(t, ok, "got %s", v.Key())
		assert.True(t, scalar.Equal(scalar.Int(4), st.Coeff()))
		assert.True(t, expr.Equal(A, st.Term()))
	})

	t.Run("empty range collapses to zero", func(t *testing.T) {
		v := mustSum(t, A, i, []any{})
		assert.True(t, expr.Equal(operator.Zero(), v), "got %s", v.Key())
	})

	t.Run("unknown basis length keeps the sum", func(t *testing.T) {
		v := mustSum(t, A, i)
		_, ok := v.(*quantum.IndexedSum)
		assert.True(t, ok, "got %s", v.Key())
	})

	t.Run("term using the index keeps the sum", func(t *testing.T) {
		term, err := quantum.Mul(i, A)
		require.NoError(t, err)
		v := mustSum(t, term.(quantum.Expr), i, 3)
		_, ok := v.(*quantum.IndexedSum)
		assert.True(t, ok, "got %s", v.Key())
	})
}

func TestNestedSumsFlatten(t *testing.T) {
	A := operator.NewSymbol("A", hsA())
	i := scalar.Sym("i")

	term, err := quantum.Mul(i, A)
	require.NoError(t, err)
	inner := mustSum(t, term.(quantum.Expr), i, 2)
	outer := mustSum(t, inner, i, 1)

	s, ok := outer.(*quantum.IndexedSum)
	require.True(t, ok, "got %s", outer.Key())
	require.Len(t, s.IndexRanges(), 2)

	// The colliding inner index is renamed apart.
	assert.Equal(t, i.Key(), s.IndexRanges()[0].Sym().Key())
	assert.Equal(t, i.Prime().Key(), s.IndexRanges()[1].Sym().Key())

	// Sum_{i=0..1} Sum_{i'=0..2} i' A = 2 * (0+1+2) * A.
	done, err := s.DoIt()
	require.NoError(t, err)
	st, ok := done.(*quantum.ScalarTimes)
	require.True(t, ok, "got %s", expr.KeyOf(done))
	assert.True(t, scalar.Equal(scalar.Int(6), st.Coeff()))
	assert.True(t, expr.Equal(A, st.Term()))
}

func TestSumProductRenamesApart(t *testing.T) {
	A := operator.NewSymbol("A", hsA())
	B := operator.NewSymbol("B", hsB())
	i := scalar.Sym("i")

	termA, err := quantum.Mul(i, A)
	require.NoError(t, err)
	termB, err := quantum.Mul(i, B)
	require.NoError(t, err)
	sa := mustSum(t, termA.(quantum.Expr), i, 2)
	sb := mustSum(t, termB.(quantum.Expr), i, 2)

	prod, err := quantum.Mul(sa, sb)
	require.NoError(t, err)
	s, ok := prod.(*quantum.IndexedSum)
	require.True(t, ok, "got %s", expr.KeyOf(prod))
	require.Len(t, s.IndexRanges(), 2)
	assert.Equal(t, i.Key(), s.IndexRanges()[0].Sym().Key())
	assert.Equal(t, i.Prime().Key(), s.IndexRanges()[1].Sym().Key())

	// Bound indices are hidden from the free symbols.
	assert.Empty(t, s.FreeScalarSymbols())

	// (Sum_i i A)(Sum_i' i' B) = (0+1+2)^2 A B.
	done, err := s.DoIt()
	require.NoError(t, err)
	want, err := quantum.Mul(scalar.Int(9), A, B)
	require.NoError(t, err)
	assert.True(t, expr.Equal(want, done),
		"got %s want %s", expr.KeyOf(done), expr.KeyOf(want))
}

func TestAddTwoIndexedSumsRejected(t *testing.T) {
	A := operator.NewSymbol("A", hsA())
	i := scalar.Sym("i")
	term, err := quantum.Mul(i, A)
	require.NoError(t, err)
	s1 := mustSum(t, term.(quantum.Expr), i, 2)
	s2 := mustSum(t, term.(quantum.Expr), i, 3)

	_, err = quantum.Add(s1, s2)
	assert.ErrorIs(t, err, quantum.ErrUnsupported)
}

func TestLessOrderings(t *testing.T) {
	a, ad := operator.Destroy(hsA()), operator.Create(hsA())
	B := operator.NewSymbol("B", hsB())

	t.Run("full commutative orders within a space", func(t *testing.T) {
		A := operator.NewSymbol("A", hsA())
		C := operator.NewSymbol("C", hsA())
		assert.True(t, quantum.FullCommutativeLess(A, C))
		assert.False(t, quantum.FullCommutativeLess(C, A))
	})

	t.Run("full commutative orders by space first", func(t *testing.T) {
		assert.True(t, quantum.FullCommutativeLess(a, B))
		assert.False(t, quantum.FullCommutativeLess(B, a))
	})

	t.Run("disjunct leaves shared spaces unordered", func(t *testing.T) {
		assert.False(t, quantum.DisjunctCommutativeLess(a, ad))
		assert.False(t, quantum.DisjunctCommutativeLess(ad, a))
	})

	t.Run("disjunct orders disjoint spaces", func(t *testing.T) {
		assert.True(t, quantum.DisjunctCommutativeLess(a, B))
		assert.False(t, quantum.DisjunctCommutativeLess(B, a))
	})

	t.Run("stable sort keeps non-commuting adjacency", func(t *testing.T) {
		// B commutes past both ladder operators; their mutual order
		// is preserved.
		prod, err := operator.Mul(B, ad, a)
		require.NoError(t, err)
		n := prod.(expr.Node)
		require.Len(t, n.Args(), 3)
		assert.True(t, expr.Equal(ad, n.Args()[0]), "got %s", n.Key())
		assert.True(t, expr.Equal(a, n.Args()[1]))
		assert.True(t, expr.Equal(B, n.Args()[2]))
	})
}
