package operator

import (
	"fmt"
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
)

// PlusMinusCC is the compact form "A plus conjugate", standing for
// A + A^dag without writing the conjugate term out.
type PlusMinusCC struct {
	op quantum.Expr
}

var (
	pmOnce sync.Once
	pmType *expr.OpType
)

func plusMinusCCType() *expr.OpType {
	pmOnce.Do(func() {
		pmType = &expr.OpType{HeadTag: HeadPlusMinusCC}
		pmType.Rules = expr.NewRuleTable()
		pmType.Passes = []expr.Pass{
			quantum.CheckMembers(Algebra),
			expr.MatchReplace,
		}
		pmType.Build = func(ops []any, kw []expr.KV) (any, error) {
			if len(ops) != 1 {
				return nil, fmt.Errorf("%w: pm-cc needs one operand, got %d",
					quantum.ErrUnsupported, len(ops))
			}
			op, err := quantum.LiftScalar(Algebra(), ops[0])
			if err != nil {
				return nil, err
			}
			return &PlusMinusCC{op: op}, nil
		}
	})
	return pmType
}

// NewPlusMinusCC builds A + c.c. through the canonical constructor
// path.
func NewPlusMinusCC(op any) (quantum.Expr, error) {
	v, err := plusMinusCCType().Create([]any{op}, nil)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

func (p *PlusMinusCC) Head() string      { return HeadPlusMinusCC }
func (p *PlusMinusCC) Args() []any       { return []any{p.op} }
func (p *PlusMinusCC) Kwargs() []expr.KV { return nil }
func (p *PlusMinusCC) Key() string {
	return expr.MakeKey(HeadPlusMinusCC, p.Args(), nil)
}
func (p *PlusMinusCC) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, HeadPlusMinusCC, 1, p.Args(), nil)
}
func (p *PlusMinusCC) Space() hilbert.Space         { return p.op.Space() }
func (p *PlusMinusCC) AlgebraRef() *quantum.Algebra { return Algebra() }

// Operand is the explicitly written half of the sum.
func (p *PlusMinusCC) Operand() quantum.Expr { return p.op }

// Adjoint is the identity: A + c.c. is Hermitian.
func (p *PlusMinusCC) Adjoint() (quantum.Expr, error) { return p, nil }

// DoIt writes the sum out as A + A^dag.
func (p *PlusMinusCC) DoIt() (quantum.Expr, error) {
	adj, err := p.op.Adjoint()
	if err != nil {
		return nil, err
	}
	return Add(p.op, adj)
}

// ExpandSelf writes the sum out and expands it.
func (p *PlusMinusCC) ExpandSelf() (quantum.Expr, error) {
	full, err := p.DoIt()
	if err != nil {
		return nil, err
	}
	return quantum.Expand(full)
}

// CreatePMCCRules are extra binary rules for OperatorPlus that fold
// conjugate term pairs into PlusMinusCC while pushed:
//
//	restore := operator.Algebra().Plus.BinaryRules.PushExtra(operator.CreatePMCCRules()...)
//	defer restore()
func CreatePMCCRules() []expr.Rule {
	return []expr.Rule{
		{
			Name:    "create-pm-cc",
			Pattern: expr.PatHead(opW("a"), opW("b")),
			Replace: func(b expr.Bindings) (any, error) {
				a := b["a"].(quantum.Expr)
				bb := b["b"].(quantum.Expr)
				adj, err := a.Adjoint()
				if err != nil {
					return nil, expr.ErrCannotSimplify
				}
				if !expr.Equal(adj, bb) {
					return nil, expr.ErrCannotSimplify
				}
				if expr.Equal(a, bb) {
					// Hermitian term: a + a is a collection, not a
					// conjugate pair.
					return nil, expr.ErrCannotSimplify
				}
				return NewPlusMinusCC(a)
			},
		},
	}
}

// ExpandPMCCRules are extra rules for the PlusMinusCC type that
// rewrite it back into the explicit sum while pushed.
func ExpandPMCCRules() []expr.Rule {
	return []expr.Rule{
		{
			Name:    "expand-pm-cc",
			Pattern: expr.PatHead(opW("a")),
			Replace: func(b expr.Bindings) (any, error) {
				a := b["a"].(quantum.Expr)
				adj, err := a.Adjoint()
				if err != nil {
					return nil, err
				}
				return quantum.Add(a, adj)
			},
		},
	}
}

// PlusMinusCCRuleTable exposes the pm-cc type's rule table so the
// expand rules can be scoped onto it.
func PlusMinusCCRuleTable() *expr.RuleTable {
	return plusMinusCCType().Rules
}
