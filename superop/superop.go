// Package superop is the super-operator algebra: linear maps on the
// operator algebra, built from left and right multiplication
// super-operators, with canonical sums, products, scalar multiples
// and super-adjoints.
package superop

import (
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
)

// Head tags of the super-operator algebra.
const (
	HeadSymbol      = "SuperOperatorSymbol"
	HeadIdentity    = "IdentitySuperOperator"
	HeadZero        = "ZeroSuperOperator"
	HeadPlus        = "SuperOperatorPlus"
	HeadTimes       = "SuperOperatorTimes"
	HeadScalarTimes = "ScalarTimesSuperOperator"
	HeadAdjoint     = "SuperAdjoint"
	HeadSPre        = "SPre"
	HeadSPost       = "SPost"
	HeadApply       = "SuperOperatorTimesOperator"
)

var (
	algOnce sync.Once
	alg     *quantum.Algebra
)

// Algebra returns the super-operator algebra's capability table,
// building it on first use. The algebra has no indexed sums.
func Algebra() *quantum.Algebra {
	algOnce.Do(buildAlgebra)
	return alg
}

func buildAlgebra() {
	alg = &quantum.Algebra{
		Name: "superop",
		IsMember: func(v any) bool {
			q, ok := v.(quantum.Expr)
			return ok && q.AlgebraRef() == alg
		},
		Zero: func() quantum.Expr { return Zero() },
		One:  func() quantum.Expr { return Identity() },
	}

	alg.Plus = &expr.OpType{HeadTag: HeadPlus}
	alg.Plus.Neutral = func() any { return Zero() }
	alg.Plus.Less = quantum.FullCommutativeLess
	alg.Plus.BinaryRules = plusBinaryRules()
	alg.Plus.Passes = []expr.Pass{
		quantum.CheckMembers(Algebra),
		expr.Assoc,
		quantum.LiftScalars(Algebra),
		expr.OrderBy,
		expr.FilterNeutral,
		expr.MatchReplaceBinary,
	}
	alg.Plus.Build = quantum.BuildPlus(HeadPlus, Algebra)

	alg.Times = &expr.OpType{HeadTag: HeadTimes}
	alg.Times.Neutral = func() any { return Identity() }
	alg.Times.Less = quantum.DisjunctCommutativeLess
	alg.Times.BinaryRules = timesBinaryRules()
	alg.Times.Passes = []expr.Pass{
		quantum.CheckMembers(Algebra),
		expr.Assoc,
		quantum.PullScalars(Algebra),
		expr.OrderBy,
		expr.FilterNeutral,
		expr.MatchReplaceBinary,
	}
	alg.Times.Build = quantum.BuildTimes(HeadTimes, Algebra)

	alg.ScalarTimes = &expr.OpType{HeadTag: HeadScalarTimes}
	alg.ScalarTimes.Rules = scalarTimesRules()
	alg.ScalarTimes.Passes = []expr.Pass{expr.MatchReplace}
	alg.ScalarTimes.Build = quantum.BuildScalarTimes(HeadScalarTimes, Algebra)

	alg.Adjoint = &expr.OpType{HeadTag: HeadAdjoint}
	alg.Adjoint.Passes = []expr.Pass{
		quantum.CheckMembers(Algebra),
		resolveAdjoint,
	}
	alg.Adjoint.Build = quantum.BuildAdjoint(HeadAdjoint, Algebra)

	quantum.RegisterCrossProduct("superop", "operator",
		func(s, x quantum.Expr) (any, error) {
			return Apply(s, x)
		})

	registerHeads()
}

// resolveAdjoint takes the super-adjoint with respect to the
// Hilbert-Schmidt inner product. SPre and SPost both map onto the
// operand's Hermitian conjugate; only bare symbols get wrapped.
func resolveAdjoint(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	if len(ops) != 1 {
		return expr.Continue(ops, kw), nil
	}
	switch x := ops[0].(type) {
	case *quantum.AdjointOp:
		return expr.Done(x.Operand()), nil
	case *Symbol:
		return expr.Continue(ops, kw), nil
	case quantum.Expr:
		adj, err := x.Adjoint()
		if err != nil {
			return expr.PassResult{}, err
		}
		return expr.Done(adj), nil
	}
	return expr.Continue(ops, kw), nil
}

// Symbol is an abstract super-operator with a name and a Hilbert
// space.
type Symbol struct {
	name string
	hs   hilbert.Space
}

// NewSymbol returns the interned super-operator symbol.
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

func (s *Symbol) Adjoint() (quantum.Expr, error) {
	v, err := Algebra().Adjoint.Create([]any{s}, nil)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

type identityOp struct{}
type zeroOp struct{}

var (
	idOnce   sync.Once
	idInst   quantum.Expr
	zeroOnce sync.Once
	zeroInst quantum.Expr
)

// Identity is the identity super-operator, the neutral element of
// SuperOperatorTimes.
func Identity() quantum.Expr {
	idOnce.Do(func() {
		idInst = expr.Intern(identityOp{}).(quantum.Expr)
	})
	return idInst
}

// Zero is the zero super-operator, the neutral element of
// SuperOperatorPlus.
func Zero() quantum.Expr {
	zeroOnce.Do(func() {
		zeroInst = expr.Intern(zeroOp{}).(quantum.Expr)
	})
	return zeroInst
}

func (identityOp) Head() string         { return HeadIdentity }
func (identityOp) Args() []any          { return nil }
func (identityOp) Kwargs() []expr.KV    { return nil }
func (identityOp) Key() string          { return HeadIdentity + "()" }
func (identityOp) Space() hilbert.Space { return hilbert.TrivialSpace }
func (identityOp) AlgebraRef() *quantum.Algebra { return Algebra() }
func (i identityOp) Adjoint() (quantum.Expr, error) { return Identity(), nil }
func (identityOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(2, HeadIdentity, 1, nil, nil)
}

func (zeroOp) Head() string         { return HeadZero }
func (zeroOp) Args() []any          { return nil }
func (zeroOp) Kwargs() []expr.KV    { return nil }
func (zeroOp) Key() string          { return HeadZero + "()" }
func (zeroOp) Space() hilbert.Space { return hilbert.TrivialSpace }
func (zeroOp) AlgebraRef() *quantum.Algebra { return Algebra() }
func (z zeroOp) Adjoint() (quantum.Expr, error) { return Zero(), nil }
func (zeroOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(2, HeadZero, 0, nil, nil)
}

// Arithmetic wrappers with super-operator-typed results.

// Add sums super-operators and scalars (lifted onto the identity).
func Add(ops ...any) (quantum.Expr, error) {
	v, err := quantum.Add(ops...)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// Mul multiplies super-operators and scalars.
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
