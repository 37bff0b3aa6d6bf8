// Package operator is the operator algebra: symbolic Hilbert-space
// operators with canonical sums, products, scalar multiples,
// adjoints, indexed sums and a library of concrete local operators
// (ladder, angular momentum, phase space, transitions).
package operator

import (
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// Head tags of the operator algebra.
const (
	HeadSymbol      = "OperatorSymbol"
	HeadIdentity    = "IdentityOperator"
	HeadZero        = "ZeroOperator"
	HeadPlus        = "OperatorPlus"
	HeadTimes       = "OperatorTimes"
	HeadScalarTimes = "ScalarTimesOperator"
	HeadAdjoint     = "Adjoint"
	HeadIndexedSum  = "OperatorIndexedSum"
	HeadDestroy     = "Destroy"
	HeadCreate      = "Create"
	HeadJz          = "Jz"
	HeadJplus       = "Jplus"
	HeadJminus      = "Jminus"
	HeadPhase       = "Phase"
	HeadDisplace    = "Displace"
	HeadSqueeze     = "Squeeze"
	HeadLocalSigma  = "LocalSigma"
	HeadCommutator  = "Commutator"
	HeadPlusMinusCC = "OperatorPlusMinusCC"
)

var (
	algOnce sync.Once
	alg     *quantum.Algebra
)

// Algebra returns the operator algebra's capability table, building
// it on first use.
func Algebra() *quantum.Algebra {
	algOnce.Do(buildAlgebra)
	return alg
}

func buildAlgebra() {
	alg = &quantum.Algebra{
		Name: "operator",
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

	alg.IndexedSum = quantum.IndexedSumType(HeadIndexedSum, Algebra)

	registerHeads()
}

// resolveAdjoint computes the adjoint of anything with a closed form,
// leaving only bare operator symbols to wrap.
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

// Symbol is an abstract operator with a name and a Hilbert space.
type Symbol struct {
	name string
	hs   hilbert.Space
}

// NewSymbol returns the interned operator symbol.
func NewSymbol(name string, hs hilbert.Space) *Symbol {
	n := expr.Intern(&Symbol{name: name, hs: hs})
	return n.(*Symbol)
}

func (s *Symbol) Name() string        { return s.name }
func (s *Symbol) Head() string        { return HeadSymbol }
func (s *Symbol) Args() []any         { return []any{s.name} }
func (s *Symbol) Kwargs() []expr.KV   { return expr.Kw(expr.KV{Key: "hs", Val: s.hs}) }
func (s *Symbol) Key() string         { return expr.MakeKey(HeadSymbol, s.Args(), s.Kwargs()) }
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

// identityOp and zeroOp are the canonical neutral elements. They are
// constructed lazily through Identity and Zero and always interned,
// so identity checks against them stay valid.
type identityOp struct{}
type zeroOp struct{}

var (
	idOnce   sync.Once
	idInst   quantum.Expr
	zeroOnce sync.Once
	zeroInst quantum.Expr
)

// Identity is the identity operator, the neutral element of
// OperatorTimes.
func Identity() quantum.Expr {
	idOnce.Do(func() {
		idInst = expr.Intern(identityOp{}).(quantum.Expr)
	})
	return idInst
}

// Zero is the zero operator, the neutral element of OperatorPlus.
func Zero() quantum.Expr {
	zeroOnce.Do(func() {
		zeroInst = expr.Intern(zeroOp{}).(quantum.Expr)
	})
	return zeroInst
}

func (identityOp) Head() string        { return HeadIdentity }
func (identityOp) Args() []any         { return nil }
func (identityOp) Kwargs() []expr.KV   { return nil }
func (identityOp) Key() string         { return HeadIdentity + "()" }
func (identityOp) Space() hilbert.Space { return hilbert.TrivialSpace }
func (identityOp) AlgebraRef() *quantum.Algebra { return Algebra() }
func (i identityOp) Adjoint() (quantum.Expr, error) { return Identity(), nil }
func (identityOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(2, HeadIdentity, 1, nil, nil)
}

func (zeroOp) Head() string        { return HeadZero }
func (zeroOp) Args() []any         { return nil }
func (zeroOp) Kwargs() []expr.KV   { return nil }
func (zeroOp) Key() string         { return HeadZero + "()" }
func (zeroOp) Space() hilbert.Space { return hilbert.TrivialSpace }
func (zeroOp) AlgebraRef() *quantum.Algebra { return Algebra() }
func (z zeroOp) Adjoint() (quantum.Expr, error) { return Zero(), nil }
func (zeroOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(2, HeadZero, 0, nil, nil)
}

// Arithmetic wrappers with operator-typed results.

// Add sums operators and scalars (lifted onto the identity).
func Add(ops ...any) (quantum.Expr, error) {
	v, err := quantum.Add(ops...)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// Mul multiplies operators and scalars.
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

// Pow raises an operator to a non-negative integer power.
func Pow(e quantum.Expr, n int) (quantum.Expr, error) {
	v, err := quantum.Pow(e, n)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// Sum returns the indexed-sum builder over the operator algebra.
func Sum(idx scalar.Symbol, rangeArgs ...any) func(term quantum.Expr) (quantum.Expr, error) {
	return quantum.Sum(Algebra(), idx, rangeArgs...)
}
