package operator

import (
	"fmt"
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// CommutatorOp is the unevaluated commutator [A, B].
type CommutatorOp struct {
	a, b quantum.Expr
}

var (
	commOnce sync.Once
	commType *expr.OpType
)

func commutatorType() *expr.OpType {
	commOnce.Do(func() {
		commType = &expr.OpType{HeadTag: HeadCommutator}
		commType.Rules = expr.NewRuleTable(
			expr.Rule{
				// Operators on disjoint spaces commute.
				Name:    "disjunct-hs-zero",
				Pattern: expr.PatHead(opW("A"), opW("B")),
				Replace: func(b expr.Bindings) (any, error) {
					A := b["A"].(quantum.Expr)
					B := b["B"].(quantum.Expr)
					if !hilbert.Disjoint(A.Space(), B.Space()) {
						return nil, expr.ErrCannotSimplify
					}
					return Zero(), nil
				},
			},
			expr.Rule{
				// Anti-commutativity fixes a canonical operand order:
				// [B, A] becomes -[A, B] when A sorts before B.
				Name:    "commutator-order",
				Pattern: expr.PatHead(opW("A"), opW("B")),
				Replace: func(b expr.Bindings) (any, error) {
					A := b["A"].(quantum.Expr)
					B := b["B"].(quantum.Expr)
					if expr.Equal(A, B) {
						return Zero(), nil
					}
					if !expr.LessByOrderKey(B, A) {
						return nil, expr.ErrCannotSimplify
					}
					swapped, err := Commutator(B, A)
					if err != nil {
						return nil, err
					}
					return quantum.Mul(scalar.MinusOne, swapped)
				},
			},
		)
		commType.Passes = []expr.Pass{
			quantum.CheckMembers(Algebra),
			expr.MatchReplace,
		}
		commType.Build = func(ops []any, kw []expr.KV) (any, error) {
			if len(ops) != 2 {
				return nil, fmt.Errorf("%w: commutator needs two operands, got %d",
					quantum.ErrUnsupported, len(ops))
			}
			a, err := quantum.LiftScalar(Algebra(), ops[0])
			if err != nil {
				return nil, err
			}
			b, err := quantum.LiftScalar(Algebra(), ops[1])
			if err != nil {
				return nil, err
			}
			return &CommutatorOp{a: a, b: b}, nil
		}
	})
	return commType
}

// Commutator builds [a, b] through the canonical constructor path.
func Commutator(a, b any) (quantum.Expr, error) {
	v, err := commutatorType().Create([]any{a, b}, nil)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

func (c *CommutatorOp) Head() string      { return HeadCommutator }
func (c *CommutatorOp) Args() []any       { return []any{c.a, c.b} }
func (c *CommutatorOp) Kwargs() []expr.KV { return nil }
func (c *CommutatorOp) Key() string {
	return expr.MakeKey(HeadCommutator, c.Args(), nil)
}
func (c *CommutatorOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, HeadCommutator, 1, c.Args(), nil)
}
func (c *CommutatorOp) Space() hilbert.Space {
	return hilbert.ProductOf(c.a.Space(), c.b.Space())
}
func (c *CommutatorOp) AlgebraRef() *quantum.Algebra { return Algebra() }

// Adjoint uses [A, B]^dag = [B^dag, A^dag].
func (c *CommutatorOp) Adjoint() (quantum.Expr, error) {
	ad, err := c.a.Adjoint()
	if err != nil {
		return nil, err
	}
	bd, err := c.b.Adjoint()
	if err != nil {
		return nil, err
	}
	return Commutator(bd, ad)
}

// Evaluate writes out A B - B A.
func (c *CommutatorOp) Evaluate() (quantum.Expr, error) {
	ab, err := quantum.Mul(c.a, c.b)
	if err != nil {
		return nil, err
	}
	ba, err := quantum.Mul(c.b, c.a)
	if err != nil {
		return nil, err
	}
	return Sub(ab, ba)
}

// ExpandSelf evaluates the commutator and expands the result.
func (c *CommutatorOp) ExpandSelf() (quantum.Expr, error) {
	ev, err := c.Evaluate()
	if err != nil {
		return nil, err
	}
	return quantum.Expand(ev)
}

func (c *CommutatorOp) DiffOne(sym scalar.Symbol) (any, error) {
	da, err := quantum.Diff(c.a, sym, 1, false)
	if err != nil {
		return nil, err
	}
	db, err := quantum.Diff(c.b, sym, 1, false)
	if err != nil {
		return nil, err
	}
	daq, err := quantum.LiftScalar(Algebra(), da)
	if err != nil {
		return nil, err
	}
	dbq, err := quantum.LiftScalar(Algebra(), db)
	if err != nil {
		return nil, err
	}
	left, err := Commutator(daq, c.b)
	if err != nil {
		return nil, err
	}
	right, err := Commutator(c.a, dbq)
	if err != nil {
		return nil, err
	}
	return quantum.Add(left, right)
}
