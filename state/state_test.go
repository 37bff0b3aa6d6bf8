package state

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

func fock() *hilbert.LocalSpace { return hilbert.NewLocalInt(1) }

func qubit() *hilbert.LocalSpace {
	return hilbert.NewLocalInt(2, hilbert.WithDimension(2))
}

func basis(t *testing.T, n int, hs *hilbert.LocalSpace) quantum.Expr {
	t.Helper()
	k, err := NewBasisKet(n, hs)
	require.NoError(t, err)
	return k
}

func TestBasisKet(t *testing.T) {
	t.Run("out of range collapses to zero ket", func(t *testing.T) {
		k, err := NewBasisKet(5, qubit())
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), k))
		k, err = NewBasisKet(-1, fock())
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), k))
	})

	t.Run("next and prev navigate the basis", func(t *testing.T) {
		k := basis(t, 0, qubit()).(*BasisKet)
		up, err := k.Next()
		require.NoError(t, err)
		assert.True(t, expr.Equal(basis(t, 1, qubit()), up))
		down, err := k.Prev()
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), down))
		top, err := up.(*BasisKet).Next()
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), top))
	})

	t.Run("symbolic index shifts symbolically", func(t *testing.T) {
		n := scalar.Sym("n")
		k, err := NewBasisKet(n, fock())
		require.NoError(t, err)
		up, err := k.(*BasisKet).Next()
		require.NoError(t, err)
		idx, ok := up.(*BasisKet).indexScalar()
		require.True(t, ok)
		assert.True(t, scalar.Equal(scalar.Add(n, scalar.One), idx))
	})

	t.Run("interning", func(t *testing.T) {
		assert.Same(t, basis(t, 1, fock()), basis(t, 1, fock()))
	})
}

func TestLoweringAction(t *testing.T) {
	a := operator.Destroy(fock())

	t.Run("lowers a number state", func(t *testing.T) {
		acted, err := ApplyOperator(a, basis(t, 3, fock()))
		require.NoError(t, err)
		st, ok := acted.(*quantum.ScalarTimes)
		require.True(t, ok, "got %s", acted.Key())
		assert.True(t, scalar.Equal(scalar.Sqrt(scalar.Int(3)), st.Coeff()))
		assert.True(t, expr.Equal(basis(t, 2, fock()), st.Term()))
	})

	t.Run("annihilates the vacuum", func(t *testing.T) {
		acted, err := ApplyOperator(a, basis(t, 0, fock()))
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), acted))
	})

	t.Run("through generic multiplication", func(t *testing.T) {
		acted, err := Mul(a, basis(t, 1, fock()))
		require.NoError(t, err)
		assert.True(t, expr.Equal(basis(t, 0, fock()), acted), "got %s", acted.Key())
	})

	t.Run("coherent eigenstate", func(t *testing.T) {
		alpha := scalar.Sym("alpha")
		c := NewCoherentStateKet(alpha, fock())
		acted, err := ApplyOperator(a, c)
		require.NoError(t, err)
		st, ok := acted.(*quantum.ScalarTimes)
		require.True(t, ok, "got %s", acted.Key())
		assert.True(t, scalar.Equal(alpha, st.Coeff()))
		assert.True(t, expr.Equal(c, st.Term()))
	})
}

func TestRaisingAction(t *testing.T) {
	ad := operator.Create(fock())

	t.Run("raises a number state", func(t *testing.T) {
		acted, err := ApplyOperator(ad, basis(t, 1, fock()))
		require.NoError(t, err)
		st, ok := acted.(*quantum.ScalarTimes)
		require.True(t, ok, "got %s", acted.Key())
		assert.True(t, scalar.Equal(scalar.Sqrt(scalar.Int(2)), st.Coeff()))
		assert.True(t, expr.Equal(basis(t, 2, fock()), st.Term()))
	})

	t.Run("falls off a truncated basis", func(t *testing.T) {
		adq := operator.Create(qubit())
		acted, err := ApplyOperator(adq, basis(t, 1, qubit()))
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), acted), "got %s", acted.Key())
	})
}

func TestSigmaAction(t *testing.T) {
	s01, err := operator.LocalSigma(0, 1, qubit())
	require.NoError(t, err)

	hit, err := ApplyOperator(s01, basis(t, 1, qubit()))
	require.NoError(t, err)
	assert.True(t, expr.Equal(basis(t, 0, qubit()), hit))

	miss, err := ApplyOperator(s01, basis(t, 0, qubit()))
	require.NoError(t, err)
	assert.True(t, expr.Equal(ZeroKet(), miss))
}

func TestPhaseAction(t *testing.T) {
	phi := scalar.Sym("phi")
	p, err := operator.Phase(phi, fock())
	require.NoError(t, err)
	acted, err := ApplyOperator(p, basis(t, 2, fock()))
	require.NoError(t, err)
	st, ok := acted.(*quantum.ScalarTimes)
	require.True(t, ok, "got %s", acted.Key())
	want := scalar.Exp(scalar.Mul(scalar.ImagUnit, scalar.Int(2), phi))
	assert.True(t, scalar.Equal(want, st.Coeff()))
}

func TestSymbolActionStaysUnevaluated(t *testing.T) {
	A := operator.NewSymbol("A", fock())
	psi := NewSymbol("psi", fock())
	acted, err := ApplyOperator(A, psi)
	require.NoError(t, err)
	otk, ok := acted.(*OperatorTimesKet)
	require.True(t, ok, "got %s", acted.Key())
	assert.True(t, expr.Equal(A, otk.Operator()))
	assert.True(t, expr.Equal(psi, otk.Ket()))
}

func TestActionExpand(t *testing.T) {
	// (a + a+) |1> expands to |0> + sqrt(2) |2>.
	a := operator.Destroy(fock())
	ad := operator.Create(fock())
	sum, err := operator.Add(a, ad)
	require.NoError(t, err)
	acted, err := ApplyOperator(sum, basis(t, 1, fock()))
	require.NoError(t, err)
	expanded, err := quantum.Expand(acted)
	require.NoError(t, err)
	scaled, err := Mul(scalar.Sqrt(scalar.Int(2)), basis(t, 2, fock()))
	require.NoError(t, err)
	want, err := Add(basis(t, 0, fock()), scaled)
	require.NoError(t, err)
	assert.True(t, expr.Equal(want, expanded), "got %s want %s", expanded.Key(), want.Key())
}

func TestKetArithmetic(t *testing.T) {
	psi := NewSymbol("psi", fock())
	phi := NewSymbol("phi", fock())

	t.Run("like terms collect", func(t *testing.T) {
		sum, err := Add(psi, psi)
		require.NoError(t, err)
		st, ok := sum.(*quantum.ScalarTimes)
		require.True(t, ok)
		assert.True(t, scalar.Equal(scalar.Int(2), st.Coeff()))
	})

	t.Run("cancellation", func(t *testing.T) {
		diff, err := Sub(psi, psi)
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), diff))
	})

	t.Run("unequal spaces rejected", func(t *testing.T) {
		other := NewSymbol("chi", qubit())
		_, err := Add(psi, other)
		assert.ErrorIs(t, err, quantum.ErrUnequalSpaces)
	})

	t.Run("distinct terms stay", func(t *testing.T) {
		sum, err := Add(psi, phi)
		require.NoError(t, err)
		assert.Equal(t, HeadPlus, sum.Head())
	})
}

func TestTensorKet(t *testing.T) {
	psi := NewSymbol("psi", fock())
	chi := NewSymbol("chi", qubit())

	t.Run("disjoint factors combine", func(t *testing.T) {
		prod, err := Mul(psi, chi)
		require.NoError(t, err)
		assert.Equal(t, HeadTensor, prod.Head())
		assert.Len(t, prod.Args(), 2)
	})

	t.Run("overlapping factors rejected", func(t *testing.T) {
		_, err := Mul(psi, NewSymbol("phi", fock()))
		assert.ErrorIs(t, err, quantum.ErrOverlappingSpaces)
	})

	t.Run("zero factor annihilates", func(t *testing.T) {
		prod, err := Mul(psi, ZeroKet())
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), prod))
	})

	t.Run("trivial factor drops", func(t *testing.T) {
		prod, err := Mul(psi, TrivialKet())
		require.NoError(t, err)
		assert.True(t, expr.Equal(psi, prod))
	})
}

func TestBraKet(t *testing.T) {
	t.Run("orthonormal basis", func(t *testing.T) {
		same, err := BraKet(basis(t, 1, qubit()), basis(t, 1, qubit()))
		require.NoError(t, err)
		assert.True(t, scalar.Equal(scalar.One, same.(scalar.Scalar)))

		ortho, err := BraKet(basis(t, 0, qubit()), basis(t, 1, qubit()))
		require.NoError(t, err)
		assert.True(t, scalar.Equal(scalar.Zero, ortho.(scalar.Scalar)))
	})

	t.Run("zero side", func(t *testing.T) {
		v, err := BraKet(ZeroKet(), basis(t, 0, qubit()))
		require.NoError(t, err)
		assert.True(t, scalar.Equal(scalar.Zero, v.(scalar.Scalar)))
	})

	t.Run("bra side conjugates coefficients", func(t *testing.T) {
		scaled, err := Mul(scalar.ImagUnit, basis(t, 0, qubit()))
		require.NoError(t, err)
		v, err := BraKet(scaled, basis(t, 0, qubit()))
		require.NoError(t, err)
		assert.True(t, scalar.Equal(scalar.Neg(scalar.ImagUnit), v.(scalar.Scalar)))
	})

	t.Run("symbolic kets stay unevaluated", func(t *testing.T) {
		psi := NewSymbol("psi", fock())
		phi := NewSymbol("phi", fock())
		v, err := BraKet(psi, phi)
		require.NoError(t, err)
		bk, ok := v.(*BraKetOp)
		require.True(t, ok)
		assert.True(t, bk.Space().IsTrivial())
	})

	t.Run("unequal spaces rejected", func(t *testing.T) {
		_, err := BraKet(NewSymbol("psi", fock()), basis(t, 0, qubit()))
		assert.ErrorIs(t, err, quantum.ErrUnequalSpaces)
	})
}

func TestKetBra(t *testing.T) {
	t.Run("basis kets give the transition operator", func(t *testing.T) {
		op, err := KetBra(basis(t, 0, qubit()), basis(t, 1, qubit()))
		require.NoError(t, err)
		want, err := operator.LocalSigma(0, 1, qubit())
		require.NoError(t, err)
		assert.True(t, expr.Equal(want, op))
	})

	t.Run("result joins operator arithmetic", func(t *testing.T) {
		p0, err := KetBra(basis(t, 0, qubit()), basis(t, 0, qubit()))
		require.NoError(t, err)
		p1, err := KetBra(basis(t, 1, qubit()), basis(t, 1, qubit()))
		require.NoError(t, err)
		complete, err := operator.Add(p0, p1)
		require.NoError(t, err)
		assert.Equal(t, operator.HeadPlus, complete.Head())
	})

	t.Run("symbolic kets stay unevaluated", func(t *testing.T) {
		psi := NewSymbol("psi", fock())
		op, err := KetBra(psi, psi)
		require.NoError(t, err)
		kb, ok := op.(*KetBraOp)
		require.True(t, ok)
		assert.Same(t, operator.Algebra(), kb.AlgebraRef())
	})
}

func TestBra(t *testing.T) {
	psi := NewSymbol("psi", fock())

	t.Run("adjoint round trip", func(t *testing.T) {
		b, err := psi.Adjoint()
		require.NoError(t, err)
		br, ok := b.(*Bra)
		require.True(t, ok)
		back, err := br.Adjoint()
		require.NoError(t, err)
		assert.True(t, expr.Equal(psi, back))
	})

	t.Run("sum adjoint wraps the sum", func(t *testing.T) {
		phi := NewSymbol("phi", fock())
		sum, err := Add(psi, phi)
		require.NoError(t, err)
		b, err := sum.Adjoint()
		require.NoError(t, err)
		br, ok := b.(*Bra)
		require.True(t, ok)
		assert.True(t, expr.Equal(sum, br.Ket()))
	})

	t.Run("scalar multiplication conjugates", func(t *testing.T) {
		b := NewBra(psi)
		scaled, err := b.MulScalar(scalar.ImagUnit)
		require.NoError(t, err)
		st, ok := scaled.Ket().(*quantum.ScalarTimes)
		require.True(t, ok)
		assert.True(t, scalar.Equal(scalar.Neg(scalar.ImagUnit), st.Coeff()))
	})

	t.Run("bra times operator acts through the adjoint", func(t *testing.T) {
		vac := basis(t, 0, fock())
		b := NewBra(vac)
		acted, err := b.MulOperator(operator.Destroy(fock()))
		require.NoError(t, err)
		assert.True(t, expr.Equal(basis(t, 1, fock()), acted.Ket()), "got %s", acted.Ket().Key())
	})
}

func TestCoherentFockExpansion(t *testing.T) {
	alpha := scalar.Sym("alpha")
	n := scalar.Sym("n")
	c := NewCoherentStateKet(alpha, qubit()).(*CoherentStateKet)

	sum, err := c.ToFock(n)
	require.NoError(t, err)
	is, ok := sum.(*quantum.IndexedSum)
	require.True(t, ok, "got %s", sum.Key())
	assert.Equal(t, HeadIndexedSum, is.Head())

	full, err := is.DoIt()
	require.NoError(t, err)
	norm := scalar.Exp(scalar.Mul(scalar.Rat(-1, 2), alpha, scalar.Conjugate(alpha)))
	zeroTerm, err := Mul(norm, basis(t, 0, qubit()))
	require.NoError(t, err)
	oneTerm, err := Mul(scalar.Mul(norm, alpha), basis(t, 1, qubit()))
	require.NoError(t, err)
	want, err := Add(zeroTerm, oneTerm)
	require.NoError(t, err)
	assert.True(t, expr.Equal(want, full.(quantum.Expr)),
		"got %s want %s", full.(quantum.Expr).Key(), want.Key())
}

func TestKetIndexedSum(t *testing.T) {
	i := scalar.Sym("i")
	term, err := NewBasisKet(i, qubit())
	require.NoError(t, err)
	sum, err := Sum(i, qubit())(term)
	require.NoError(t, err)
	is, ok := sum.(*quantum.IndexedSum)
	require.True(t, ok)
	full, err := is.DoIt()
	require.NoError(t, err)
	want, err := Add(basis(t, 0, qubit()), basis(t, 1, qubit()))
	require.NoError(t, err)
	assert.True(t, expr.Equal(want, full.(quantum.Expr)))
}

func TestMixedAlgebraRejected(t *testing.T) {
	psi := NewSymbol("psi", fock())
	_, err := quantum.Mul(psi, operator.Destroy(fock()))
	assert.ErrorIs(t, err, quantum.ErrMixedAlgebras)
}

func TestScalarTimesKetRules(t *testing.T) {
	psi := NewSymbol("psi", fock())

	t.Run("zero coefficient", func(t *testing.T) {
		v, err := Mul(scalar.Zero, psi)
		require.NoError(t, err)
		assert.True(t, expr.Equal(ZeroKet(), v))
	})

	t.Run("one coefficient", func(t *testing.T) {
		v, err := Mul(scalar.One, psi)
		require.NoError(t, err)
		assert.True(t, expr.Equal(psi, v))
	})

	t.Run("nested coefficients merge", func(t *testing.T) {
		v, err := Mul(scalar.Int(2), psi)
		require.NoError(t, err)
		v, err = Mul(scalar.Int(3), v)
		require.NoError(t, err)
		st, ok := v.(*quantum.ScalarTimes)
		require.True(t, ok)
		assert.True(t, scalar.Equal(scalar.Int(6), st.Coeff()))
	})
}

func TestWildcardClassMembership(t *testing.T) {
	kets := ketClass()
	ops := operatorClass()
	k := basis(t, 0, fock())
	assert.True(t, kets.Member(k))
	assert.False(t, kets.Member(operator.Destroy(fock())))
	assert.True(t, ops.Member(operator.Destroy(fock())))
	assert.False(t, ops.Member(k))
	assert.False(t, kets.Member(scalar.One))
}
