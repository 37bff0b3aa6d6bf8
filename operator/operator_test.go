package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

func hs1() *hilbert.LocalSpace { return hilbert.NewLocalInt(1) }
func hs2() *hilbert.LocalSpace { return hilbert.NewLocalInt(2) }

func mustMul(t *testing.T, ops ...any) quantum.Expr {
	t.Helper()
	v, err := Mul(ops...)
	require.NoError(t, err)
	return v
}

func mustAdd(t *testing.T, ops ...any) quantum.Expr {
	t.Helper()
	v, err := Add(ops...)
	require.NoError(t, err)
	return v
}

func TestCommutatorScenario(t *testing.T) {
	// a a+ - a+ a on one mode is the identity.
	aad := mustMul(t, Destroy(hs1()), Create(hs1()))
	ada := mustMul(t, Create(hs1()), Destroy(hs1()))
	diff, err := Sub(aad, ada)
	require.NoError(t, err)
	assert.True(t, expr.Equal(Identity(), diff), "got %s", diff.Key())
}

func TestDisjointSpacesAnnihilate(t *testing.T) {
	// a_1 and a+_2 commute, so their commutator vanishes.
	left := mustMul(t, Destroy(hs1()), Create(hs2()))
	right := mustMul(t, Create(hs2()), Destroy(hs1()))
	diff, err := Sub(left, right)
	require.NoError(t, err)
	assert.True(t, expr.Equal(Zero(), diff), "got %s", diff.Key())
}

func TestNeutralElements(t *testing.T) {
	A := NewSymbol("A", hs1())
	sum := mustAdd(t, A, Zero())
	assert.True(t, expr.Equal(A, sum))
	prod := mustMul(t, A, Identity())
	assert.True(t, expr.Equal(A, prod))
}

func TestCreateIdempotence(t *testing.T) {
	A := NewSymbol("A", hs1())
	B := NewSymbol("B", hs2())
	sum := mustAdd(t, B, A, mustMul(t, scalar.Int(2), B))
	node := sum.(expr.Node)
	again, err := Algebra().Plus.Create(append([]any{}, node.Args()...), node.Kwargs())
	require.NoError(t, err)
	assert.Equal(t, sum.Key(), again.(expr.Node).Key())
}

func TestLikeTermCollection(t *testing.T) {
	A := NewSymbol("A", hs1())
	B := NewSymbol("B", hs1())

	t.Run("coefficients combine", func(t *testing.T) {
		twoA := mustMul(t, scalar.Int(2), A)
		threeA := mustMul(t, scalar.Int(3), A)
		sum := mustAdd(t, twoA, threeA)
		st, ok := sum.(*quantum.ScalarTimes)
		require.True(t, ok, "got %s", sum.Key())
		assert.True(t, scalar.Equal(scalar.Int(5), st.Coeff()))
		assert.True(t, expr.Equal(A, st.Term()))
	})

	t.Run("cancellation collapses to zero", func(t *testing.T) {
		diff, err := Sub(A, A)
		require.NoError(t, err)
		assert.True(t, expr.Equal(Zero(), diff))
	})

	t.Run("plain double", func(t *testing.T) {
		sum := mustAdd(t, A, A)
		st, ok := sum.(*quantum.ScalarTimes)
		require.True(t, ok)
		assert.True(t, scalar.Equal(scalar.Int(2), st.Coeff()))
	})

	t.Run("distinct terms stay", func(t *testing.T) {
		sum := mustAdd(t, A, B)
		assert.Equal(t, HeadPlus, sum.Head())
		assert.Len(t, sum.Args(), 2)
	})
}

func TestAdjoint(t *testing.T) {
	A := NewSymbol("A", hs1())
	B := NewSymbol("B", hs1())

	t.Run("involution on symbols", func(t *testing.T) {
		ad, err := A.Adjoint()
		require.NoError(t, err)
		assert.Equal(t, HeadAdjoint, ad.Head())
		back, err := ad.Adjoint()
		require.NoError(t, err)
		assert.True(t, expr.Equal(A, back))
	})

	t.Run("product reverses", func(t *testing.T) {
		ab := mustMul(t, A, B)
		adj, err := ab.Adjoint()
		require.NoError(t, err)
		bd, err := B.Adjoint()
		require.NoError(t, err)
		ad, err := A.Adjoint()
		require.NoError(t, err)
		want := mustMul(t, bd, ad)
		assert.True(t, expr.Equal(want, adj), "got %s want %s", adj.Key(), want.Key())
	})

	t.Run("ladder operators", func(t *testing.T) {
		ad, err := Destroy(hs1()).Adjoint()
		require.NoError(t, err)
		assert.True(t, expr.Equal(Create(hs1()), ad))
	})

	t.Run("scalar conjugates", func(t *testing.T) {
		scaled := mustMul(t, scalar.ImagUnit, A)
		adj, err := scaled.Adjoint()
		require.NoError(t, err)
		st, ok := adj.(*quantum.ScalarTimes)
		require.True(t, ok)
		assert.True(t, scalar.Equal(scalar.Neg(scalar.ImagUnit), st.Coeff()))
	})
}

func TestSigmaCombination(t *testing.T) {
	tls := hilbert.NewLocalInt(1, hilbert.WithDimension(2))
	s01, err := LocalSigma(0, 1, tls)
	require.NoError(t, err)
	s10, err := LocalSigma(1, 0, tls)
	require.NoError(t, err)

	t.Run("matching inner indices combine", func(t *testing.T) {
		prod := mustMul(t, s01, s10)
		want, err := LocalProjector(0, tls)
		require.NoError(t, err)
		assert.True(t, expr.Equal(want, prod), "got %s", prod.Key())
	})

	t.Run("mismatched inner indices vanish", func(t *testing.T) {
		prod := mustMul(t, s01, s01)
		assert.True(t, expr.Equal(Zero(), prod))
	})

	t.Run("out of range index rejected", func(t *testing.T) {
		_, err := LocalSigma(0, 5, tls)
		assert.Error(t, err)
	})
}

func TestPhase(t *testing.T) {
	phi := scalar.Sym("phi")
	psi := scalar.Sym("psi")

	t.Run("zero argument collapses", func(t *testing.T) {
		p, err := Phase(scalar.Zero, hs1())
		require.NoError(t, err)
		assert.True(t, expr.Equal(Identity(), p))
	})

	t.Run("phases merge", func(t *testing.T) {
		p1, err := Phase(phi, hs1())
		require.NoError(t, err)
		p2, err := Phase(psi, hs1())
		require.NoError(t, err)
		prod := mustMul(t, p1, p2)
		want, err := Phase(scalar.Add(phi, psi), hs1())
		require.NoError(t, err)
		assert.True(t, expr.Equal(want, prod))
	})

	t.Run("opposite phases cancel", func(t *testing.T) {
		p1, err := Phase(phi, hs1())
		require.NoError(t, err)
		p2, err := Phase(scalar.Neg(phi), hs1())
		require.NoError(t, err)
		prod := mustMul(t, p1, p2)
		assert.True(t, expr.Equal(Identity(), prod))
	})
}

func TestAngularMomentumOrdering(t *testing.T) {
	// Jz J+ normal-orders to J+ Jz + J+.
	prod := mustMul(t, Jz(hs1()), Jplus(hs1()))
	want := mustAdd(t, mustMul(t, Jplus(hs1()), Jz(hs1())), Jplus(hs1()))
	assert.True(t, expr.Equal(want, prod), "got %s want %s", prod.Key(), want.Key())
}

func TestExpand(t *testing.T) {
	A := NewSymbol("A", hs1())
	B := NewSymbol("B", hs1())
	C := NewSymbol("C", hs2())
	prod := mustMul(t, mustAdd(t, A, B), C)
	expanded, err := quantum.Expand(prod)
	require.NoError(t, err)
	want := mustAdd(t, mustMul(t, A, C), mustMul(t, B, C))
	assert.True(t, expr.Equal(want, expanded), "got %s want %s", expanded.Key(), want.Key())
}

func TestExpandNormalOrderFixpoint(t *testing.T) {
	// Normal ordering during the per-term products introduces new
	// sums; expansion must distribute those as well:
	// a a a+ a+ = a+ a+ a a + 4 a+ a + 2.
	a, ad := Destroy(hs1()), Create(hs1())
	prod := mustMul(t, a, a, ad, ad)
	expanded, err := quantum.Expand(prod)
	require.NoError(t, err)
	want := mustAdd(t,
		mustMul(t, scalar.Int(2), Identity()),
		mustMul(t, scalar.Int(4), ad, a),
		mustMul(t, ad, ad, a, a),
	)
	assert.True(t, expr.Equal(want, expanded), "got %s want %s", expanded.Key(), want.Key())
}

func TestDiff(t *testing.T) {
	A := NewSymbol("A", hs1())
	tt := scalar.Sym("t")

	t.Run("short-circuits to zero", func(t *testing.T) {
		d, err := quantum.Diff(A, tt, 1, true)
		require.NoError(t, err)
		assert.True(t, expr.Equal(Zero(), d.(quantum.Expr)))
	})

	t.Run("linear coefficient", func(t *testing.T) {
		scaled := mustMul(t, tt, A)
		d, err := quantum.Diff(scaled, tt, 1, true)
		require.NoError(t, err)
		assert.True(t, expr.Equal(A, d.(quantum.Expr)), "got %s", d.(quantum.Expr).Key())
	})
}

func TestSeriesExpandTypeStability(t *testing.T) {
	A := NewSymbol("A", hs1())
	tt := scalar.Sym("t")

	t.Run("constant expression", func(t *testing.T) {
		series, err := quantum.SeriesExpand(A, tt, scalar.Zero, 2)
		require.NoError(t, err)
		require.Len(t, series, 3)
		assert.True(t, expr.Equal(A, series[0]))
		assert.True(t, expr.Equal(Zero(), series[1]))
		assert.True(t, expr.Equal(Zero(), series[2]))
	})

	t.Run("linear expression", func(t *testing.T) {
		scaled := mustMul(t, tt, A)
		series, err := quantum.SeriesExpand(scaled, tt, scalar.Zero, 2)
		require.NoError(t, err)
		require.Len(t, series, 3)
		assert.True(t, expr.Equal(Zero(), series[0]), "got %s", series[0].Key())
		assert.True(t, expr.Equal(A, series[1]), "got %s", series[1].Key())
		assert.True(t, expr.Equal(Zero(), series[2]))
	})
}

func TestCommutatorType(t *testing.T) {
	A := NewSymbol("A", hs1())
	B := NewSymbol("B", hs1())
	C := NewSymbol("C", hs2())

	t.Run("disjoint spaces vanish", func(t *testing.T) {
		c, err := Commutator(A, C)
		require.NoError(t, err)
		assert.True(t, expr.Equal(Zero(), c))
	})

	t.Run("identical operands vanish", func(t *testing.T) {
		c, err := Commutator(A, A)
		require.NoError(t, err)
		assert.True(t, expr.Equal(Zero(), c))
	})

	t.Run("canonical order flips sign", func(t *testing.T) {
		c, err := Commutator(B, A)
		require.NoError(t, err)
		st, ok := c.(*quantum.ScalarTimes)
		require.True(t, ok, "got %s", c.Key())
		assert.True(t, scalar.Equal(scalar.MinusOne, st.Coeff()))
		assert.Equal(t, HeadCommutator, st.Term().Head())
	})

	t.Run("expand ladder commutator", func(t *testing.T) {
		c, err := Commutator(Destroy(hs1()), Create(hs1()))
		require.NoError(t, err)
		ev, err := quantum.Expand(c)
		require.NoError(t, err)
		assert.True(t, expr.Equal(Identity(), ev), "got %s", ev.Key())
	})
}

func TestIndexedSum(t *testing.T) {
	i := scalar.Sym("i")
	A := NewSymbol("A", hs1())

	t.Run("constant term collapses to count", func(t *testing.T) {
		sum, err := Sum(i, 1, 3)(A)
		require.NoError(t, err)
		st, ok := sum.(*quantum.ScalarTimes)
		require.True(t, ok, "got %s", sum.Key())
		assert.True(t, scalar.Equal(scalar.Int(3), st.Coeff()))
	})

	t.Run("sum over basis writes out projectors", func(t *testing.T) {
		tls := hilbert.NewLocalInt(9, hilbert.WithDimension(3))
		proj, err := LocalSigma(i, i, tls)
		require.NoError(t, err)
		sum, err := Sum(i, tls)(proj)
		require.NoError(t, err)
		is, ok := sum.(*quantum.IndexedSum)
		require.True(t, ok, "got %s", sum.Key())
		full, err := is.DoIt()
		require.NoError(t, err)
		p0, err := LocalProjector(0, tls)
		require.NoError(t, err)
		p1, err := LocalProjector(1, tls)
		require.NoError(t, err)
		p2, err := LocalProjector(2, tls)
		require.NoError(t, err)
		want := mustAdd(t, p0, p1, p2)
		assert.True(t, expr.Equal(want, full.(quantum.Expr)))
	})

	t.Run("product renames colliding indices", func(t *testing.T) {
		tls := hilbert.NewLocalInt(9, hilbert.WithDimension(3))
		proj, err := LocalSigma(i, i, tls)
		require.NoError(t, err)
		s1, err := Sum(i, tls)(proj)
		require.NoError(t, err)
		s2, err := Sum(i, tls)(proj)
		require.NoError(t, err)
		prod := mustMul(t, s1, s2)
		result, ok := prod.(*quantum.IndexedSum)
		require.True(t, ok, "got %s", prod.Key())
		ranges := result.IndexRanges()
		require.Len(t, ranges, 2)
		assert.NotEqual(t, ranges[0].Sym().Key(), ranges[1].Sym().Key())
	})

	t.Run("adding two indexed sums is unsupported", func(t *testing.T) {
		tls := hilbert.NewLocalInt(9, hilbert.WithDimension(3))
		proj, err := LocalSigma(i, i, tls)
		require.NoError(t, err)
		s1, err := Sum(i, tls)(proj)
		require.NoError(t, err)
		s2, err := Sum(i, tls)(proj)
		require.NoError(t, err)
		_, err = Add(s1, s2)
		assert.ErrorIs(t, err, quantum.ErrUnsupported)
	})
}

func TestPlusMinusCCRoundTrip(t *testing.T) {
	A := NewSymbol("A", hs1())
	ad, err := A.Adjoint()
	require.NoError(t, err)

	t.Run("without rules the sum stays explicit", func(t *testing.T) {
		sum := mustAdd(t, A, ad)
		assert.Equal(t, HeadPlus, sum.Head())
	})

	t.Run("scoped rules fold and restore", func(t *testing.T) {
		restore := Algebra().Plus.BinaryRules.PushExtra(CreatePMCCRules()...)
		sum := mustAdd(t, A, ad)
		restore()

		pm, ok := sum.(*PlusMinusCC)
		require.True(t, ok, "got %s", sum.Key())
		assert.True(t, expr.Equal(A, pm.Operand()))

		full, err := pm.DoIt()
		require.NoError(t, err)
		want := mustAdd(t, A, ad)
		assert.True(t, expr.Equal(want, full))

		// Rules are gone again.
		after := mustAdd(t, A, ad)
		assert.Equal(t, HeadPlus, after.Head())
	})
}

func TestPauliHelpers(t *testing.T) {
	tls := hilbert.NewLocalInt(1, hilbert.WithDimension(2))

	x, err := X(tls)
	require.NoError(t, err)
	assert.Equal(t, HeadPlus, x.Head())

	z, err := Z(tls)
	require.NoError(t, err)

	// sigma_z is Hermitian.
	zd, err := z.Adjoint()
	require.NoError(t, err)
	assert.True(t, expr.Equal(z, zd))

	// X on a three-level space is rejected.
	big := hilbert.NewLocalInt(2, hilbert.WithDimension(3))
	_, err = X(big)
	assert.ErrorIs(t, err, quantum.ErrSpaceTooLarge)
}

func TestScalarPulling(t *testing.T) {
	A := NewSymbol("A", hs1())
	B := NewSymbol("B", hs2())
	prod := mustMul(t, scalar.Int(2), A, scalar.Int(3), B)
	st, ok := prod.(*quantum.ScalarTimes)
	require.True(t, ok, "got %s", prod.Key())
	assert.True(t, scalar.Equal(scalar.Int(6), st.Coeff()))
	assert.Equal(t, HeadTimes, st.Term().Head())
}

func TestOperatorClassMembership(t *testing.T) {
	cls := operatorClass()
	assert.True(t, cls.Member(Destroy(hs1())))
	assert.True(t, cls.Member(Identity()))
	assert.False(t, cls.Member(scalar.Int(2)))
	assert.False(t, cls.Member("a"))
}
