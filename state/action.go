package state

import (
	"fmt"
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// OperatorTimesKet is an operator applied to a state vector, kept
// unevaluated when no action rule reduces it.
type OperatorTimesKet struct {
	op  quantum.Expr
	ket quantum.Expr
}

func (o *OperatorTimesKet) Head() string      { return HeadOperatorTimesKet }
func (o *OperatorTimesKet) Args() []any       { return []any{o.op, o.ket} }
func (o *OperatorTimesKet) Kwargs() []expr.KV { return nil }
func (o *OperatorTimesKet) Key() string {
	return expr.MakeKey(HeadOperatorTimesKet, o.Args(), nil)
}
func (o *OperatorTimesKet) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, HeadOperatorTimesKet, 1, o.Args(), nil)
}
func (o *OperatorTimesKet) Space() hilbert.Space {
	return hilbert.ProductOf(o.op.Space(), o.ket.Space())
}
func (o *OperatorTimesKet) AlgebraRef() *quantum.Algebra { return Algebra() }

// Operator and Ket are the two operands.
func (o *OperatorTimesKet) Operator() quantum.Expr { return o.op }
func (o *OperatorTimesKet) Ket() quantum.Expr      { return o.ket }

func (o *OperatorTimesKet) Adjoint() (quantum.Expr, error) { return NewBra(o), nil }

// ExpandSelf distributes the action over operator sums and ket sums.
func (o *OperatorTimesKet) ExpandSelf() (quantum.Expr, error) {
	op, err := quantum.Expand(o.op)
	if err != nil {
		return nil, err
	}
	ket, err := quantum.Expand(o.ket)
	if err != nil {
		return nil, err
	}
	opTerms := summands(op, operator.HeadPlus)
	ketTerms := summands(ket, HeadPlus)
	terms := make([]any, 0, len(opTerms)*len(ketTerms))
	for _, a := range opTerms {
		for _, k := range ketTerms {
			acted, err := quantum.Mul(a, k)
			if err != nil {
				return nil, err
			}
			terms = append(terms, acted)
		}
	}
	return Add(terms...)
}

func summands(e quantum.Expr, plusHead string) []any {
	if n, ok := e.(expr.Node); ok && n.Head() == plusHead {
		return n.Args()
	}
	return []any{e}
}

func (o *OperatorTimesKet) DiffOne(sym scalar.Symbol) (any, error) {
	dOp, err := quantum.Diff(o.op, sym, 1, false)
	if err != nil {
		return nil, err
	}
	dKet, err := quantum.Diff(o.ket, sym, 1, false)
	if err != nil {
		return nil, err
	}
	left, err := quantum.Mul(dOp, o.ket)
	if err != nil {
		return nil, err
	}
	right, err := quantum.Mul(o.op, dKet)
	if err != nil {
		return nil, err
	}
	return quantum.Add(left, right)
}

var (
	actionOnce sync.Once
	actionTyp  *expr.OpType
)

func actionType() *expr.OpType {
	actionOnce.Do(func() {
		actionTyp = &expr.OpType{HeadTag: HeadOperatorTimesKet}
		actionTyp.Rules = actionRules()
		actionTyp.Passes = []expr.Pass{checkActionOperands, pullActionScalars, expr.MatchReplace}
		actionTyp.Build = func(ops []any, kw []expr.KV) (any, error) {
			return &OperatorTimesKet{
				op:  ops[0].(quantum.Expr),
				ket: ops[1].(quantum.Expr),
			}, nil
		}
	})
	return actionTyp
}

// ApplyOperator is op |ket>, reduced by the action rules where the
// operator has a known effect on the state.
func ApplyOperator(op, ket quantum.Expr) (quantum.Expr, error) {
	v, err := actionType().Create([]any{op, ket}, nil)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

func checkActionOperands(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	if len(ops) != 2 {
		return expr.PassResult{}, fmt.Errorf(
			"%w: operator action needs (operator, ket), got %d operands",
			quantum.ErrUnsupported, len(ops))
	}
	if !operator.Algebra().IsMember(ops[0]) {
		return expr.PassResult{}, fmt.Errorf(
			"%w: action operator %s", quantum.ErrUnsupported, expr.KeyOf(ops[0]))
	}
	if !Algebra().IsMember(ops[1]) {
		return expr.PassResult{}, fmt.Errorf(
			"%w: action target %s", quantum.ErrUnsupported, expr.KeyOf(ops[1]))
	}
	return expr.Continue(ops, kw), nil
}

// pullActionScalars moves scalar prefactors of either operand in
// front of the action. Coefficients do not conjugate here; only bras
// conjugate.
func pullActionScalars(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	coeff := scalar.Scalar(scalar.One)
	op, ket := ops[0], ops[1]
	pulled := false
	if st, ok := op.(*quantum.ScalarTimes); ok {
		coeff = scalar.Mul(coeff, st.Coeff())
		op = st.Term()
		pulled = true
	}
	if st, ok := ket.(*quantum.ScalarTimes); ok {
		coeff = scalar.Mul(coeff, st.Coeff())
		ket = st.Term()
		pulled = true
	}
	if !pulled {
		return expr.Continue(ops, kw), nil
	}
	if scalar.IsZero(coeff) {
		return expr.Done(ZeroKet()), nil
	}
	inner, err := t.Create([]any{op, ket}, kw)
	if err != nil {
		return expr.PassResult{}, err
	}
	if scalar.IsOne(coeff) {
		return expr.Done(inner), nil
	}
	scaled, err := quantum.Mul(coeff, inner)
	if err != nil {
		return expr.PassResult{}, err
	}
	return expr.Done(scaled), nil
}

// localOperator is the view of the operator package's concrete local
// operators the action rules need.
type localOperator interface {
	quantum.Expr
	Param() scalar.Scalar
	LocalSpace() *hilbert.LocalSpace
}

func actionRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "zero-op",
			Pattern: expr.PatHead(headW("a", operator.HeadZero), ketW("k")),
			Replace: func(b expr.Bindings) (any, error) { return ZeroKet(), nil },
		},
		expr.Rule{
			Name:    "identity-op",
			Pattern: expr.PatHead(headW("a", operator.HeadIdentity), ketW("k")),
			Replace: func(b expr.Bindings) (any, error) { return b["k"], nil },
		},
		expr.Rule{
			Name:    "zero-ket",
			Pattern: expr.PatHead(opW("a"), headW("k", HeadZeroKet)),
			Replace: func(b expr.Bindings) (any, error) { return ZeroKet(), nil },
		},
		expr.Rule{
			// a |n> = sqrt(n) |n-1>, the zero ket for n = 0.
			Name:    "lower-basis",
			Pattern: expr.PatHead(headW("a", operator.HeadDestroy), headW("k", HeadBasisKet)),
			Replace: func(b expr.Bindings) (any, error) {
				op := b["a"].(localOperator)
				ket := b["k"].(*BasisKet)
				if !hilbert.Equal(op.Space(), ket.Space()) {
					return nil, expr.ErrCannotSimplify
				}
				n, ok := ket.indexScalar()
				if !ok {
					return nil, expr.ErrCannotSimplify
				}
				if scalar.IsZero(n) {
					return ZeroKet(), nil
				}
				prev, err := ket.Prev()
				if err != nil {
					return nil, err
				}
				return quantum.Mul(scalar.Sqrt(n), prev)
			},
		},
		expr.Rule{
			// a+ |n> = sqrt(n+1) |n+1>, falling off a truncated basis
			// to the zero ket.
			Name:    "raise-basis",
			Pattern: expr.PatHead(headW("a", operator.HeadCreate), headW("k", HeadBasisKet)),
			Replace: func(b expr.Bindings) (any, error) {
				op := b["a"].(localOperator)
				ket := b["k"].(*BasisKet)
				if !hilbert.Equal(op.Space(), ket.Space()) {
					return nil, expr.ErrCannotSimplify
				}
				n, ok := ket.indexScalar()
				if !ok {
					return nil, expr.ErrCannotSimplify
				}
				next, err := ket.Next()
				if err != nil {
					return nil, err
				}
				return quantum.Mul(scalar.Sqrt(scalar.Add(n, scalar.One)), next)
			},
		},
		expr.Rule{
			// sigma_jk |m> = delta_km |j>.
			Name:    "sigma-basis",
			Pattern: expr.PatHead(headW("a", operator.HeadLocalSigma), headW("k", HeadBasisKet)),
			Replace: func(b expr.Bindings) (any, error) {
				sig := b["a"].(*operator.SigmaOp)
				ket := b["k"].(*BasisKet)
				if !hilbert.Equal(sig.Space(), ket.Space()) {
					return nil, expr.ErrCannotSimplify
				}
				if expr.Equal(sig.Lower(), ket.Index()) {
					return NewBasisKet(sig.Upper(), ket.LocalSpace())
				}
				if symbolicKetIndex(sig.Lower()) || symbolicKetIndex(ket.Index()) {
					return nil, expr.ErrCannotSimplify
				}
				return ZeroKet(), nil
			},
		},
		expr.Rule{
			// Phase(phi) |n> = exp(i n phi) |n>.
			Name:    "phase-basis",
			Pattern: expr.PatHead(headW("a", operator.HeadPhase), headW("k", HeadBasisKet)),
			Replace: func(b expr.Bindings) (any, error) {
				op := b["a"].(localOperator)
				ket := b["k"].(*BasisKet)
				if !hilbert.Equal(op.Space(), ket.Space()) {
					return nil, expr.ErrCannotSimplify
				}
				n, ok := ket.indexScalar()
				if !ok {
					return nil, expr.ErrCannotSimplify
				}
				phase := scalar.Exp(scalar.Mul(scalar.ImagUnit, n, op.Param()))
				return quantum.Mul(phase, ket)
			},
		},
		expr.Rule{
			// Coherent states are eigenstates of the annihilator.
			Name:    "lower-coherent",
			Pattern: expr.PatHead(headW("a", operator.HeadDestroy), headW("k", HeadCoherentStateKet)),
			Replace: func(b expr.Bindings) (any, error) {
				op := b["a"].(localOperator)
				ket := b["k"].(*CoherentStateKet)
				if !hilbert.Equal(op.Space(), ket.Space()) {
					return nil, expr.ErrCannotSimplify
				}
				return quantum.Mul(ket.Ampl(), ket)
			},
		},
	)
}
