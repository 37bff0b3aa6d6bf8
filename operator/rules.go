package operator

import (
	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

var scalarClass = expr.Class{
	Name: "Scalar",
	Member: func(v any) bool {
		return quantum.IsScalar(v)
	},
}

// operatorClass is built lazily: Algebra's rule tables refer back to
// it, so a package-level value would not initialize.
func operatorClass() expr.Class {
	return expr.Class{
		Name: "Operator",
		Member: func(v any) bool {
			return Algebra().IsMember(v)
		},
	}
}

// coeffTerm splits an operator into scalar prefactor and base term.
func coeffTerm(v any) (scalar.Scalar, quantum.Expr) {
	if st, ok := v.(*quantum.ScalarTimes); ok {
		return st.Coeff(), st.Term()
	}
	return scalar.One, v.(quantum.Expr)
}

func opW(name string) *expr.Pattern {
	return expr.Wc(name, expr.OfClass(operatorClass()))
}

func headW(name, head string) *expr.Pattern {
	return expr.Wc(name, expr.OfHead(head))
}

func sameLocalSpace(a, b quantum.Expr) bool {
	return hilbert.Equal(a.Space(), b.Space())
}

// plusBinaryRules collect like terms of a sum: u A + v A combines to
// (u+v) A, with a vanishing combined coefficient cancelling both
// terms through the reducer's neutral check.
func plusBinaryRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "collect-terms",
			Pattern: expr.PatHead(opW("a"), opW("b")),
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

// timesBinaryRules normal-order adjacent factor pairs of a product.
func timesBinaryRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			// a a+ = a+ a + 1 on a shared space.
			Name:    "ladder-commutation",
			Pattern: expr.PatHead(headW("a", HeadDestroy), headW("ad", HeadCreate)),
			Replace: func(b expr.Bindings) (any, error) {
				a := b["a"].(quantum.Expr)
				ad := b["ad"].(quantum.Expr)
				if !sameLocalSpace(a, ad) {
					return nil, expr.ErrCannotSimplify
				}
				normal, err := quantum.Mul(ad, a)
				if err != nil {
					return nil, err
				}
				return quantum.Add(normal, Identity())
			},
		},
		expr.Rule{
			// |j><k| |l><m| = delta_kl |j><m| on a shared space.
			Name:    "sigma-combine",
			Pattern: expr.PatHead(headW("s1", HeadLocalSigma), headW("s2", HeadLocalSigma)),
			Replace: func(b expr.Bindings) (any, error) {
				s1 := b["s1"].(*SigmaOp)
				s2 := b["s2"].(*SigmaOp)
				if !sameLocalSpace(s1, s2) {
					return nil, expr.ErrCannotSimplify
				}
				if expr.Equal(s1.Lower(), s2.Upper()) {
					return LocalSigma(s1.Upper(), s2.Lower(), s1.LocalSpace())
				}
				if symbolicIndex(s1.Lower()) || symbolicIndex(s2.Upper()) {
					// Unequal bound symbols may still coincide after
					// substitution.
					return nil, expr.ErrCannotSimplify
				}
				return Zero(), nil
			},
		},
		expr.Rule{
			Name:    "phase-merge",
			Pattern: expr.PatHead(headW("p1", HeadPhase), headW("p2", HeadPhase)),
			Replace: func(b expr.Bindings) (any, error) {
				p1 := b["p1"].(*localOp)
				p2 := b["p2"].(*localOp)
				if !sameLocalSpace(p1, p2) {
					return nil, expr.ErrCannotSimplify
				}
				return Phase(scalar.Add(p1.Param(), p2.Param()), p1.LocalSpace())
			},
		},
		expr.Rule{
			// a D(alpha) = D(alpha) (a + alpha) on a shared space.
			Name:    "destroy-displace",
			Pattern: expr.PatHead(headW("a", HeadDestroy), headW("d", HeadDisplace)),
			Replace: func(b expr.Bindings) (any, error) {
				a := b["a"].(quantum.Expr)
				d := b["d"].(*localOp)
				if !sameLocalSpace(a, d) {
					return nil, expr.ErrCannotSimplify
				}
				shifted, err := quantum.Add(a, d.Param())
				if err != nil {
					return nil, err
				}
				return quantum.Mul(d, shifted)
			},
		},
		expr.Rule{
			// Jz J+ = J+ Jz + J+.
			Name:    "jz-jplus",
			Pattern: expr.PatHead(headW("jz", HeadJz), headW("jp", HeadJplus)),
			Replace: func(b expr.Bindings) (any, error) {
				return jCommute(b["jz"], b["jp"], scalar.One)
			},
		},
		expr.Rule{
			// Jz J- = J- Jz - J-.
			Name:    "jz-jminus",
			Pattern: expr.PatHead(headW("jz", HeadJz), headW("jm", HeadJminus)),
			Replace: func(b expr.Bindings) (any, error) {
				return jCommute(b["jz"], b["jm"], scalar.MinusOne)
			},
		},
		expr.Rule{
			// J- J+ = J+ J- - 2 Jz.
			Name:    "jminus-jplus",
			Pattern: expr.PatHead(headW("jm", HeadJminus), headW("jp", HeadJplus)),
			Replace: func(b expr.Bindings) (any, error) {
				jm := b["jm"].(quantum.Expr)
				jp := b["jp"].(quantum.Expr)
				if !sameLocalSpace(jm, jp) {
					return nil, expr.ErrCannotSimplify
				}
				hs := jm.(*localOp).LocalSpace()
				normal, err := quantum.Mul(jp, jm)
				if err != nil {
					return nil, err
				}
				shift, err := quantum.Mul(scalar.Int(-2), Jz(hs))
				if err != nil {
					return nil, err
				}
				return quantum.Add(normal, shift)
			},
		},
		expr.Rule{
			Name:    "zero-factor-right",
			Pattern: expr.PatHead(opW("a"), headW("z", HeadZero)),
			Replace: func(b expr.Bindings) (any, error) { return Zero(), nil },
		},
		expr.Rule{
			Name:    "zero-factor-left",
			Pattern: expr.PatHead(headW("z", HeadZero), opW("a")),
			Replace: func(b expr.Bindings) (any, error) { return Zero(), nil },
		},
	)
}

// jCommute moves Jz right past a raising or lowering operator:
// Jz J± = J± Jz ± J±.
func jCommute(jzv, jv any, sign scalar.Scalar) (any, error) {
	jz := jzv.(quantum.Expr)
	j := jv.(quantum.Expr)
	if !sameLocalSpace(jz, j) {
		return nil, expr.ErrCannotSimplify
	}
	normal, err := quantum.Mul(j, jz)
	if err != nil {
		return nil, err
	}
	shift, err := quantum.Mul(sign, j)
	if err != nil {
		return nil, err
	}
	return quantum.Add(normal, shift)
}

func symbolicIndex(v any) bool {
	_, ok := v.(scalar.Symbol)
	return ok
}

// scalarTimesRules normalize scalar prefactors before the node is
// built.
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
			Pattern: expr.PatHead(expr.Wc("c", expr.OfClass(scalarClass), isZero), opW("A")),
			Replace: func(b expr.Bindings) (any, error) { return Zero(), nil },
		},
		expr.Rule{
			Name:    "scal-one-coeff",
			Pattern: expr.PatHead(expr.Wc("c", expr.OfClass(scalarClass), isOne), opW("A")),
			Replace: func(b expr.Bindings) (any, error) { return b["A"], nil },
		},
		expr.Rule{
			Name:    "scal-zero-op",
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
