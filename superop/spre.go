package superop

import (
	"fmt"
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// preOp is left or right multiplication by a fixed operator, the two
// generating super-operators. The head distinguishes the side.
type preOp struct {
	head string
	op   quantum.Expr
}

func (p *preOp) Head() string         { return p.head }
func (p *preOp) Args() []any          { return []any{p.op} }
func (p *preOp) Kwargs() []expr.KV    { return nil }
func (p *preOp) Key() string          { return expr.MakeKey(p.head, p.Args(), nil) }
func (p *preOp) Space() hilbert.Space { return p.op.Space() }
func (p *preOp) AlgebraRef() *quantum.Algebra { return Algebra() }

// Operand is the multiplying operator.
func (p *preOp) Operand() quantum.Expr { return p.op }

func (p *preOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, p.head, 1, p.Args(), nil)
}

// The super-adjoint of multiplication by A is multiplication by A's
// Hermitian conjugate, on the same side.
func (p *preOp) Adjoint() (quantum.Expr, error) {
	adj, err := p.op.Adjoint()
	if err != nil {
		return nil, err
	}
	return newPre(p.head, adj)
}

var (
	preOnce  sync.Once
	preTypes map[string]*expr.OpType
)

func sideTypes() map[string]*expr.OpType {
	preOnce.Do(func() {
		preTypes = map[string]*expr.OpType{
			HeadSPre:  sideType(HeadSPre),
			HeadSPost: sideType(HeadSPost),
		}
	})
	return preTypes
}

func sideType(head string) *expr.OpType {
	t := &expr.OpType{HeadTag: head}
	t.Rules = sideRules(head)
	t.Passes = []expr.Pass{checkSideOperand, expr.MatchReplace}
	t.Build = func(ops []any, kw []expr.KV) (any, error) {
		return &preOp{head: head, op: ops[0].(quantum.Expr)}, nil
	}
	return t
}

// checkSideOperand admits exactly one operator-algebra member.
func checkSideOperand(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	if len(ops) != 1 {
		return expr.PassResult{}, fmt.Errorf("%w: %s needs one operand, got %d",
			quantum.ErrUnsupported, t.HeadTag, len(ops))
	}
	if !operator.Algebra().IsMember(ops[0]) {
		return expr.PassResult{}, fmt.Errorf("%w: %s of %T",
			quantum.ErrUnsupported, t.HeadTag, ops[0])
	}
	return expr.Continue(ops, kw), nil
}

// sideRules collapse multiplication by the operator algebra's neutral
// elements and pull scalar prefactors out of the operand.
func sideRules(head string) *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "side-zero",
			Pattern: expr.PatHead(expr.Wc("z", expr.OfHead(operator.HeadZero))),
			Replace: func(b expr.Bindings) (any, error) { return Zero(), nil },
		},
		expr.Rule{
			Name:    "side-identity",
			Pattern: expr.PatHead(expr.Wc("i", expr.OfHead(operator.HeadIdentity))),
			Replace: func(b expr.Bindings) (any, error) { return Identity(), nil },
		},
		expr.Rule{
			Name:    "side-pull-scalar",
			Pattern: expr.PatHead(expr.Wc("st", expr.OfHead(operator.HeadScalarTimes))),
			Replace: func(b expr.Bindings) (any, error) {
				st := b["st"].(*quantum.ScalarTimes)
				side, err := newPre(head, st.Term())
				if err != nil {
					return nil, err
				}
				return quantum.Mul(st.Coeff(), side)
			},
		},
	)
}

func newPre(head string, op quantum.Expr) (quantum.Expr, error) {
	v, err := sideTypes()[head].Create([]any{op}, nil)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// SPre is the super-operator of left multiplication by op.
func SPre(op quantum.Expr) (quantum.Expr, error) {
	return newPre(HeadSPre, op)
}

// SPost is the super-operator of right multiplication by op.
func SPost(op quantum.Expr) (quantum.Expr, error) {
	return newPre(HeadSPost, op)
}

// Liouvillian assembles the Lindblad generator for a Hamiltonian h
// and a set of collapse operators:
//
//	L rho = -i [h, rho] + sum_j (L_j rho L_j+ - (1/2){L_j+ L_j, rho})
func Liouvillian(h quantum.Expr, collapse ...quantum.Expr) (quantum.Expr, error) {
	preH, err := SPre(h)
	if err != nil {
		return nil, err
	}
	postH, err := SPost(h)
	if err != nil {
		return nil, err
	}
	comm, err := Sub(preH, postH)
	if err != nil {
		return nil, err
	}
	total, err := Mul(scalar.Neg(scalar.ImagUnit), comm)
	if err != nil {
		return nil, err
	}
	for _, l := range collapse {
		diss, err := dissipator(l)
		if err != nil {
			return nil, err
		}
		total, err = Add(total, diss)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

func dissipator(l quantum.Expr) (quantum.Expr, error) {
	ld, err := l.Adjoint()
	if err != nil {
		return nil, err
	}
	ldl, err := operator.Mul(ld, l)
	if err != nil {
		return nil, err
	}
	preL, err := SPre(l)
	if err != nil {
		return nil, err
	}
	postLd, err := SPost(ld)
	if err != nil {
		return nil, err
	}
	jump, err := Mul(preL, postLd)
	if err != nil {
		return nil, err
	}
	preLdl, err := SPre(ldl)
	if err != nil {
		return nil, err
	}
	postLdl, err := SPost(ldl)
	if err != nil {
		return nil, err
	}
	anti, err := Add(preLdl, postLdl)
	if err != nil {
		return nil, err
	}
	damped, err := Mul(scalar.Rat(-1, 2), anti)
	if err != nil {
		return nil, err
	}
	return Add(jump, damped)
}
