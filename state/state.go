// Package state is the ket algebra: symbolic Hilbert-space state
// vectors with canonical sums, scalar multiples, tensor products,
// indexed sums, bras and the inner and outer products connecting them
// to scalars and operators.
//
// Adjoints work differently from the operator algebra: the adjoint of
// any ket is the Bra wrapping it, so the algebra installs a Dagger
// hook instead of an adjoint op type.
package state

import (
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// Head tags of the state algebra.
const (
	HeadSymbol           = "KetSymbol"
	HeadTrivialKet       = "TrivialKet"
	HeadZeroKet          = "ZeroKet"
	HeadBasisKet         = "BasisKet"
	HeadCoherentStateKet = "CoherentStateKet"
	HeadPlus             = "KetPlus"
	HeadTensor           = "TensorKet"
	HeadScalarTimes      = "ScalarTimesKet"
	HeadOperatorTimesKet = "OperatorTimesKet"
	HeadIndexedSum       = "KetIndexedSum"
	HeadBra              = "Bra"
	HeadBraKet           = "BraKet"
	HeadKetBra           = "KetBra"
)

var (
	algOnce sync.Once
	alg     *quantum.Algebra
)

// Algebra returns the state algebra's capability table, building it on
// first use.
func Algebra() *quantum.Algebra {
	algOnce.Do(buildAlgebra)
	return alg
}

func buildAlgebra() {
	alg = &quantum.Algebra{
		Name: "state",
		// Bras carry the state algebra's table but are not kets: they
		// never enter ket sums or tensor products.
		IsMember: func(v any) bool {
			q, ok := v.(quantum.Expr)
			return ok && q.AlgebraRef() == alg && q.Head() != HeadBra
		},
		Zero: func() quantum.Expr { return ZeroKet() },
		One:  func() quantum.Expr { return TrivialKet() },
		Dagger: func(e quantum.Expr) (quantum.Expr, error) {
			return NewBra(e), nil
		},
	}

	alg.Plus = &expr.OpType{HeadTag: HeadPlus}
	alg.Plus.Neutral = func() any { return ZeroKet() }
	alg.Plus.Less = quantum.FullCommutativeLess
	alg.Plus.BinaryRules = plusBinaryRules()
	alg.Plus.Passes = []expr.Pass{
		quantum.CheckMembers(Algebra),
		expr.Assoc,
		quantum.LiftScalars(Algebra),
		expr.OrderBy,
		expr.FilterNeutral,
		quantum.CheckSameSpace,
		expr.MatchReplaceBinary,
	}
	alg.Plus.Build = quantum.BuildPlus(HeadPlus, Algebra)

	alg.Times = &expr.OpType{HeadTag: HeadTensor}
	alg.Times.Neutral = func() any { return TrivialKet() }
	alg.Times.Less = quantum.DisjunctCommutativeLess
	alg.Times.BinaryRules = tensorBinaryRules()
	alg.Times.Passes = []expr.Pass{
		quantum.CheckMembers(Algebra),
		expr.Assoc,
		quantum.PullScalars(Algebra),
		expr.FilterNeutral,
		quantum.CheckDisjointSpaces,
		expr.OrderBy,
		expr.MatchReplaceBinary,
	}
	alg.Times.Build = quantum.BuildTimes(HeadTensor, Algebra)

	alg.ScalarTimes = &expr.OpType{HeadTag: HeadScalarTimes}
	alg.ScalarTimes.Rules = scalarTimesRules()
	alg.ScalarTimes.Passes = []expr.Pass{expr.MatchReplace}
	alg.ScalarTimes.Build = quantum.BuildScalarTimes(HeadScalarTimes, Algebra)

	alg.IndexedSum = quantum.IndexedSumType(HeadIndexedSum, Algebra)

	quantum.RegisterCrossProduct("operator", "state", func(l, r quantum.Expr) (any, error) {
		return ApplyOperator(l, r)
	})

	registerHeads()
}

// Symbol is an abstract state vector with a name and a Hilbert space.
type Symbol struct {
	name string
	hs   hilbert.Space
}

// NewSymbol returns the interned ket symbol.
func NewSymbol(name string, hs hilbert.Space) *Symbol {
	n := expr.Intern(&Symbol{name: name, hs: hs})
	return n.(*Symbol)
}

func (s *Symbol) Name() string         { return s.name }
func (s *Symbol) Head() string         { return HeadSymbol }
func (s *Symbol) Args() []any          { return []any{s.name} }
func (s *Symbol) Kwargs() []expr.KV    { return expr.Kw(expr.KV{Key: "hs", Val: s.hs}) }
func (s *Symbol) Key() string          { return expr.MakeKey(HeadSymbol, s.Args(), s.Kwargs()) }
func (s *Symbol) Space() hilbert.Space { return s.hs }
func (s *Symbol) AlgebraRef() *quantum.Algebra { return Algebra() }

func (s *Symbol) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(0, s.name, 1, nil, s.Kwargs())
}

func (s *Symbol) Adjoint() (quantum.Expr, error) { return NewBra(s), nil }

// trivialKet and zeroKet are the canonical neutral elements.
type trivialKet struct{}
type zeroKet struct{}

var (
	trivOnce sync.Once
	trivInst quantum.Expr
	zeroOnce sync.Once
	zeroInst quantum.Expr
)

// TrivialKet is the unit state on the trivial space, the neutral
// element of TensorKet.
func TrivialKet() quantum.Expr {
	trivOnce.Do(func() {
		trivInst = expr.Intern(trivialKet{}).(quantum.Expr)
	})
	return trivInst
}

// ZeroKet is the zero state vector, the neutral element of KetPlus.
func ZeroKet() quantum.Expr {
	zeroOnce.Do(func() {
		zeroInst = expr.Intern(zeroKet{}).(quantum.Expr)
	})
	return zeroInst
}

func (trivialKet) Head() string         { return HeadTrivialKet }
func (trivialKet) Args() []any          { return nil }
func (trivialKet) Kwargs() []expr.KV    { return nil }
func (trivialKet) Key() string          { return HeadTrivialKet + "()" }
func (trivialKet) Space() hilbert.Space { return hilbert.TrivialSpace }
func (trivialKet) AlgebraRef() *quantum.Algebra { return Algebra() }
func (t trivialKet) Adjoint() (quantum.Expr, error) { return NewBra(TrivialKet()), nil }
func (trivialKet) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(2, HeadTrivialKet, 1, nil, nil)
}

func (zeroKet) Head() string         { return HeadZeroKet }
func (zeroKet) Args() []any          { return nil }
func (zeroKet) Kwargs() []expr.KV    { return nil }
func (zeroKet) Key() string          { return HeadZeroKet + "()" }
func (zeroKet) Space() hilbert.Space { return hilbert.TrivialSpace }
func (zeroKet) AlgebraRef() *quantum.Algebra { return Algebra() }
func (z zeroKet) Adjoint() (quantum.Expr, error) { return NewBra(ZeroKet()), nil }
func (zeroKet) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(2, HeadZeroKet, 0, nil, nil)
}

// Arithmetic wrappers with state-typed results.

// Add sums kets on a shared Hilbert space.
func Add(ops ...any) (quantum.Expr, error) {
	v, err := quantum.Add(ops...)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// Mul multiplies kets (tensor product across disjoint spaces) and
// scalars; an operator on the left acts on the ket.
func Mul(ops ...any) (quantum.Expr, error) {
	v, err := quantum.Mul(ops...)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// Sub is a - b.
func Sub(a, b any) (quantum.Expr, error) {
	v, err := quantum.Sub(a, b)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// Neg is -a.
func Neg(a any) (quantum.Expr, error) {
	v, err := quantum.Neg(a)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// Sum returns the indexed-sum builder over the state algebra.
func Sum(idx scalar.Symbol, rangeArgs ...any) func(term quantum.Expr) (quantum.Expr, error) {
	return quantum.Sum(Algebra(), idx, rangeArgs...)
}
