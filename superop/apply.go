package superop

import (
	"fmt"
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
)

// AppliedOp is a super-operator applied to an operator, kept symbolic
// when the super-operator has no closed action. The result is a
// member of the operator algebra.
type AppliedOp struct {
	sop quantum.Expr
	op  quantum.Expr
}

func (a *AppliedOp) Head() string      { return HeadApply }
func (a *AppliedOp) Args() []any       { return []any{a.sop, a.op} }
func (a *AppliedOp) Kwargs() []expr.KV { return nil }
func (a *AppliedOp) Key() string       { return expr.MakeKey(HeadApply, a.Args(), nil) }
func (a *AppliedOp) Space() hilbert.Space {
	return hilbert.ProductOf(a.sop.Space(), a.op.Space())
}
func (a *AppliedOp) AlgebraRef() *quantum.Algebra { return operator.Algebra() }

// Super is the applied super-operator, Operand the operator it acts
// on.
func (a *AppliedOp) Super() quantum.Expr   { return a.sop }
func (a *AppliedOp) Operand() quantum.Expr { return a.op }

func (a *AppliedOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, HeadApply, 1, a.Args(), nil)
}

// The Hermitian conjugate of a symbolic application has no closed
// form.
func (a *AppliedOp) Adjoint() (quantum.Expr, error) {
	return nil, fmt.Errorf("%w: adjoint of %s", quantum.ErrUnsupported, HeadApply)
}

var (
	applyOnce sync.Once
	applyT    *expr.OpType
)

func applyType() *expr.OpType {
	applyOnce.Do(func() {
		applyT = &expr.OpType{HeadTag: HeadApply}
		applyT.Rules = applyRules()
		applyT.Passes = []expr.Pass{checkApplyOperands, expr.MatchReplace}
		applyT.Build = func(ops []any, kw []expr.KV) (any, error) {
			return &AppliedOp{
				sop: ops[0].(quantum.Expr),
				op:  ops[1].(quantum.Expr),
			}, nil
		}
	})
	return applyT
}

func checkApplyOperands(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	if len(ops) != 2 {
		return expr.PassResult{}, fmt.Errorf("%w: %s needs (super, operator), got %d operands",
			quantum.ErrUnsupported, t.HeadTag, len(ops))
	}
	if !Algebra().IsMember(ops[0]) {
		return expr.PassResult{}, fmt.Errorf("%w: %T is not a super-operator",
			quantum.ErrUnsupported, ops[0])
	}
	if !operator.Algebra().IsMember(ops[1]) {
		return expr.PassResult{}, fmt.Errorf("%w: %T is not an operator",
			quantum.ErrUnsupported, ops[1])
	}
	return expr.Continue(ops, kw), nil
}

// Apply evaluates a super-operator's action on an operator. Left and
// right multiplication act directly, sums distribute, products
// compose inside out; a bare super-operator symbol stays symbolic.
func Apply(sop, op quantum.Expr) (quantum.Expr, error) {
	v, err := applyType().Create([]any{sop, op}, nil)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(operator.Algebra(), v)
}

func superW(name string) *expr.Pattern {
	return expr.Wc(name, expr.OfClass(superClass()))
}

func operandW(name string) *expr.Pattern {
	return expr.Wc(name, expr.OfClass(expr.Class{
		Name:   "Operator",
		Member: func(v any) bool { return operator.Algebra().IsMember(v) },
	}))
}

func applyRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "apply-zero-super",
			Pattern: expr.PatHead(expr.Wc("z", expr.OfHead(HeadZero)), operandW("x")),
			Replace: func(b expr.Bindings) (any, error) { return operator.Zero(), nil },
		},
		expr.Rule{
			Name:    "apply-identity-super",
			Pattern: expr.PatHead(expr.Wc("i", expr.OfHead(HeadIdentity)), operandW("x")),
			Replace: func(b expr.Bindings) (any, error) { return b["x"], nil },
		},
		expr.Rule{
			Name:    "apply-zero-operand",
			Pattern: expr.PatHead(superW("s"), expr.Wc("z", expr.OfHead(operator.HeadZero))),
			Replace: func(b expr.Bindings) (any, error) { return operator.Zero(), nil },
		},
		expr.Rule{
			Name:    "apply-spre",
			Pattern: expr.PatHead(expr.Wc("p", expr.OfHead(HeadSPre)), operandW("x")),
			Replace: func(b expr.Bindings) (any, error) {
				p := b["p"].(*preOp)
				return operator.Mul(p.Operand(), b["x"])
			},
		},
		expr.Rule{
			Name:    "apply-spost",
			Pattern: expr.PatHead(expr.Wc("p", expr.OfHead(HeadSPost)), operandW("x")),
			Replace: func(b expr.Bindings) (any, error) {
				p := b["p"].(*preOp)
				return operator.Mul(b["x"], p.Operand())
			},
		},
		expr.Rule{
			Name:    "apply-sum",
			Pattern: expr.PatHead(expr.Wc("sum", expr.OfHead(HeadPlus)), operandW("x")),
			Replace: func(b expr.Bindings) (any, error) {
				sum := b["sum"].(quantum.Expr)
				x := b["x"].(quantum.Expr)
				terms := make([]any, 0, len(sum.Args()))
				for _, t := range sum.Args() {
					applied, err := Apply(t.(quantum.Expr), x)
					if err != nil {
						return nil, err
					}
					terms = append(terms, applied)
				}
				return operator.Add(terms...)
			},
		},
		expr.Rule{
			// (S1 S2) X = S1 (S2 X), composed from the right.
			Name:    "apply-product",
			Pattern: expr.PatHead(expr.Wc("prod", expr.OfHead(HeadTimes)), operandW("x")),
			Replace: func(b expr.Bindings) (any, error) {
				prod := b["prod"].(quantum.Expr)
				factors := prod.Args()
				acc := b["x"].(quantum.Expr)
				for i := len(factors) - 1; i >= 0; i-- {
					applied, err := Apply(factors[i].(quantum.Expr), acc)
					if err != nil {
						return nil, err
					}
					acc = applied
				}
				return acc, nil
			},
		},
		expr.Rule{
			Name:    "apply-scalar-super",
			Pattern: expr.PatHead(expr.Wc("st", expr.OfHead(HeadScalarTimes)), operandW("x")),
			Replace: func(b expr.Bindings) (any, error) {
				st := b["st"].(*quantum.ScalarTimes)
				inner, err := Apply(st.Term(), b["x"].(quantum.Expr))
				if err != nil {
					return nil, err
				}
				return operator.Mul(st.Coeff(), inner)
			},
		},
		expr.Rule{
			Name:    "apply-scalar-operand",
			Pattern: expr.PatHead(superW("s"), expr.Wc("st", expr.OfHead(operator.HeadScalarTimes))),
			Replace: func(b expr.Bindings) (any, error) {
				st := b["st"].(*quantum.ScalarTimes)
				inner, err := Apply(b["s"].(quantum.Expr), st.Term())
				if err != nil {
					return nil, err
				}
				return operator.Mul(st.Coeff(), inner)
			},
		},
	)
}
