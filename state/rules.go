package state

import (
	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// ketClass is built lazily: Algebra's rule tables refer back to it,
// so a package-level value would not initialize.
func ketClass() expr.Class {
	return expr.Class{
		Name: "Ket",
		Member: func(v any) bool {
			return Algebra().IsMember(v)
		},
	}
}

func operatorClass() expr.Class {
	return expr.Class{
		Name: "Operator",
		Member: func(v any) bool {
			return operator.Algebra().IsMember(v)
		},
	}
}

// coeffTerm splits a ket into scalar prefactor and base term.
func coeffTerm(v any) (scalar.Scalar, quantum.Expr) {
	if st, ok := v.(*quantum.ScalarTimes); ok {
		return st.Coeff(), st.Term()
	}
	return scalar.One, v.(quantum.Expr)
}

func ketW(name string) *expr.Pattern {
	return expr.Wc(name, expr.OfClass(ketClass()))
}

func opW(name string) *expr.Pattern {
	return expr.Wc(name, expr.OfClass(operatorClass()))
}

func headW(name, head string) *expr.Pattern {
	return expr.Wc(name, expr.OfHead(head))
}

// plusBinaryRules collect like terms of a ket sum; a vanishing
// combined coefficient cancels both terms through the reducer's
// neutral check.
func plusBinaryRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "collect-terms",
			Pattern: expr.PatHead(ketW("a"), ketW("b")),
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

// tensorBinaryRules collapse tensor products with a zero factor.
func tensorBinaryRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "zero-factor-right",
			Pattern: expr.PatHead(ketW("a"), headW("z", HeadZeroKet)),
			Replace: func(b expr.Bindings) (any, error) { return ZeroKet(), nil },
		},
		expr.Rule{
			Name:    "zero-factor-left",
			Pattern: expr.PatHead(headW("z", HeadZeroKet), ketW("a")),
			Replace: func(b expr.Bindings) (any, error) { return ZeroKet(), nil },
		},
	)
}

func scalarTimesRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name: "scal-zero-coeff",
			Pattern: expr.PatHead(
				expr.Wc("c", expr.Cond("is zero", func(v any) bool {
					s, ok := quantum.AsScalar(v)
					return ok && scalar.IsZero(s)
				})),
				ketW("k"),
			),
			Replace: func(b expr.Bindings) (any, error) { return ZeroKet(), nil },
		},
		expr.Rule{
			Name: "scal-one-coeff",
			Pattern: expr.PatHead(
				expr.Wc("c", expr.Cond("is one", func(v any) bool {
					s, ok := quantum.AsScalar(v)
					return ok && scalar.IsOne(s)
				})),
				ketW("k"),
			),
			Replace: func(b expr.Bindings) (any, error) { return b["k"], nil },
		},
		expr.Rule{
			Name:    "scal-zero-ket",
			Pattern: expr.PatHead(expr.Wc("c"), headW("z", HeadZeroKet)),
			Replace: func(b expr.Bindings) (any, error) { return ZeroKet(), nil },
		},
		expr.Rule{
			Name:    "scal-nested",
			Pattern: expr.PatHead(expr.Wc("c"), headW("st", HeadScalarTimes)),
			Replace: func(b expr.Bindings) (any, error) {
				c, ok := quantum.AsScalar(b["c"])
				if !ok {
					return nil, expr.ErrCannotSimplify
				}
				st := b["st"].(*quantum.ScalarTimes)
				return quantum.Mul(scalar.Mul(c, st.Coeff()), st.Term())
			},
		},
	)
}
