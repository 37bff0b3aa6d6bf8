package superop

import (
	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

var scalarClass = expr.Class{
	Name: "Scalar",
	Member: func(v any) bool {
		return quantum.IsScalar(v)
	},
}

// superClass is built lazily: Algebra's rule tables refer back to it,
// so a package-level value would not initialize.
func superClass() expr.Class {
	return expr.Class{
		Name: "SuperOperator",
		Member: func(v any) bool {
			return Algebra().IsMember(v)
		},
	}
}

func coeffTerm(v any) (scalar.Scalar, quantum.Expr) {
	if st, ok := v.(*quantum.ScalarTimes); ok {
		return st.Coeff(), st.Term()
	}
	return scalar.One, v.(quantum.Expr)
}

func sopW(name string) *expr.Pattern {
	return expr.Wc(name, expr.OfClass(superClass()))
}

func headW(name, head string) *expr.Pattern {
	return expr.Wc(name, expr.OfHead(head))
}

func plusBinaryRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "collect-terms",
			Pattern: expr.PatHead(sopW("a"), sopW("b")),
			Replace: func(b expr.Bindings) (any, error) {
				ca, ta := coeffTerm(b["a"])
				cb, tb := coeffTerm(b["b"])
				if !expr.Equal(ta, tb) {
					return nil, expr.ErrCannotSimplify
				}
				return quantum.Mul(scalar.Add(ca, cb), ta)
			},
		},
	)
}

// timesBinaryRules fuse adjacent multiplication super-operators:
// composition of left multiplications is left multiplication by the
// operator product, composition of right multiplications reverses it,
// and left multiplication always sorts before right.
func timesBinaryRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "spre-merge",
			Pattern: expr.PatHead(headW("p1", HeadSPre), headW("p2", HeadSPre)),
			Replace: func(b expr.Bindings) (any, error) {
				p1 := b["p1"].(*preOp)
				p2 := b["p2"].(*preOp)
				prod, err := operator.Mul(p1.Operand(), p2.Operand())
				if err != nil {
					return nil, err
				}
				return SPre(prod)
			},
		},
		expr.Rule{
			Name:    "spost-merge",
			Pattern: expr.PatHead(headW("p1", HeadSPost), headW("p2", HeadSPost)),
			Replace: func(b expr.Bindings) (any, error) {
				p1 := b["p1"].(*preOp)
				p2 := b["p2"].(*preOp)
				prod, err := operator.Mul(p2.Operand(), p1.Operand())
				if err != nil {
					return nil, err
				}
				return SPost(prod)
			},
		},
		expr.Rule{
			// SPost(A) SPre(B) = SPre(B) SPost(A): the two sides act
			// on opposite ends of their target and commute.
			Name:    "spost-spre-order",
			Pattern: expr.PatHead(headW("post", HeadSPost), headW("pre", HeadSPre)),
			Replace: func(b expr.Bindings) (any, error) {
				return quantum.Mul(b["pre"], b["post"])
			},
		},
		expr.Rule{
			Name:    "zero-factor-right",
			Pattern: expr.PatHead(sopW("a"), headW("z", HeadZero)),
			Replace: func(b expr.Bindings) (any, error) { return Zero(), nil },
		},
		expr.Rule{
			Name:    "zero-factor-left",
			Pattern: expr.PatHead(headW("z", HeadZero), sopW("a")),
			Replace: func(b expr.Bindings) (any, error) { return Zero(), nil },
		},
	)
}

func scalarTimesRules() *expr.RuleTable {
	isZero := expr.Cond("is zero", func(v any) bool {
		s, ok := quantum.AsScalar(v)
		return ok && scalar.IsZero(s)
	})
	isOne := expr.Cond("is one", func(v any) bool {
		s, ok := quantum.AsScalar(v)
		return ok && scalar.IsOne(s)
	})
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "scal-zero-coeff",
			Pattern: expr.PatHead(expr.Wc("c", expr.OfClass(scalarClass), isZero), sopW("S")),
			Replace: func(b expr.Bindings) (any, error) { return Zero(), nil },
		},
		expr.Rule{
			Name:    "scal-one-coeff",
			Pattern: expr.PatHead(expr.Wc("c", expr.OfClass(scalarClass), isOne), sopW("S")),
			Replace: func(b expr.Bindings) (any, error) { return b["S"], nil },
		},
		expr.Rule{
			Name:    "scal-zero-super",
			Pattern: expr.PatHead(expr.Wc("c", expr.OfClass(scalarClass)), headW("z", HeadZero)),
			Replace: func(b expr.Bindings) (any, error) { return Zero(), nil },
		},
		expr.Rule{
			Name:    "scal-nested",
			Pattern: expr.PatHead(expr.Wc("c", expr.OfClass(scalarClass)), headW("st", HeadScalarTimes)),
			Replace: func(b expr.Bindings) (any, error) {
				c, _ := quantum.AsScalar(b["c"])
				st := b["st"].(*quantum.ScalarTimes)
				return quantum.Mul(scalar.Mul(c, st.Coeff()), st.Term())
			},
		},
	)
}
