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

// Bra is the dual of a ket. It wraps the ket and delegates all
// arithmetic to it, conjugating scalars on the way through, so the
// ket algebra stays the single source of truth.
type Bra struct {
	ket quantum.Expr
}

// NewBra returns the interned bra of a ket.
func NewBra(ket quantum.Expr) *Bra {
	n := expr.Intern(&Bra{ket: ket})
	return n.(*Bra)
}

func (b *Bra) Head() string      { return HeadBra }
func (b *Bra) Args() []any       { return []any{b.ket} }
func (b *Bra) Kwargs() []expr.KV { return nil }
func (b *Bra) Key() string       { return expr.MakeKey(HeadBra, b.Args(), nil) }
func (b *Bra) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, HeadBra, 1, b.Args(), nil)
}
func (b *Bra) Space() hilbert.Space         { return b.ket.Space() }
func (b *Bra) AlgebraRef() *quantum.Algebra { return Algebra() }

// Ket is the underlying state vector.
func (b *Bra) Ket() quantum.Expr { return b.ket }

// Adjoint undoes the dualization.
func (b *Bra) Adjoint() (quantum.Expr, error) { return b.ket, nil }

// Add sums two bras by summing the underlying kets.
func (b *Bra) Add(o *Bra) (*Bra, error) {
	sum, err := Add(b.ket, o.ket)
	if err != nil {
		return nil, err
	}
	return NewBra(sum), nil
}

// MulScalar scales a bra; the coefficient conjugates on the ket side.
func (b *Bra) MulScalar(s scalar.Scalar) (*Bra, error) {
	scaled, err := Mul(scalar.Conjugate(s), b.ket)
	if err != nil {
		return nil, err
	}
	return NewBra(scaled), nil
}

// MulOperator is <psi| A, evaluated as (A+ |psi>)+.
func (b *Bra) MulOperator(op quantum.Expr) (*Bra, error) {
	adjOp, err := op.Adjoint()
	if err != nil {
		return nil, err
	}
	acted, err := ApplyOperator(adjOp, b.ket)
	if err != nil {
		return nil, err
	}
	return NewBra(acted), nil
}

// MulKet is the inner product <psi|phi>.
func (b *Bra) MulKet(k quantum.Expr) (any, error) {
	return BraKet(b.ket, k)
}

// BraKetOp is an unevaluated inner product. It lives on the trivial
// space: whatever the operand spaces, the value is a scalar amplitude.
type BraKetOp struct {
	bra quantum.Expr
	ket quantum.Expr
}

func (b *BraKetOp) Head() string      { return HeadBraKet }
func (b *BraKetOp) Args() []any       { return []any{b.bra, b.ket} }
func (b *BraKetOp) Kwargs() []expr.KV { return nil }
func (b *BraKetOp) Key() string       { return expr.MakeKey(HeadBraKet, b.Args(), nil) }
func (b *BraKetOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, HeadBraKet, 1, b.Args(), nil)
}
func (b *BraKetOp) Space() hilbert.Space         { return hilbert.TrivialSpace }
func (b *BraKetOp) AlgebraRef() *quantum.Algebra { return Algebra() }

// BraSide and KetSide are the two operands; the bra side is stored as
// the ket it conjugates.
func (b *BraKetOp) BraSide() quantum.Expr { return b.bra }
func (b *BraKetOp) KetSide() quantum.Expr { return b.ket }

// Adjoint is <a|b>* = <b|a>.
func (b *BraKetOp) Adjoint() (quantum.Expr, error) {
	v, err := BraKet(b.ket, b.bra)
	if err != nil {
		return nil, err
	}
	if q, ok := v.(quantum.Expr); ok {
		return q, nil
	}
	// The reversed product reduced to a scalar, carry it on the
	// trivial ket.
	return quantum.LiftScalar(Algebra(), v)
}

var (
	braKetOnce sync.Once
	braKetTyp  *expr.OpType
)

func braKetType() *expr.OpType {
	braKetOnce.Do(func() {
		braKetTyp = &expr.OpType{HeadTag: HeadBraKet}
		braKetTyp.Rules = braKetRules()
		braKetTyp.Passes = []expr.Pass{checkBraKetOperands, expr.MatchReplace}
		braKetTyp.Build = func(ops []any, kw []expr.KV) (any, error) {
			return &BraKetOp{bra: ops[0].(quantum.Expr), ket: ops[1].(quantum.Expr)}, nil
		}
	})
	return braKetTyp
}

func checkBraKetOperands(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	if len(ops) != 2 {
		return expr.PassResult{}, fmt.Errorf(
			"%w: inner product needs (bra, ket), got %d operands", quantum.ErrUnsupported, len(ops))
	}
	out := make([]any, len(ops))
	for i, op := range ops {
		if br, ok := op.(*Bra); ok {
			op = br.Ket()
		}
		if !Algebra().IsMember(op) {
			return expr.PassResult{}, fmt.Errorf(
				"%w: inner product operand %s", quantum.ErrUnsupported, expr.KeyOf(op))
		}
		out[i] = op
	}
	l, r := out[0].(quantum.Expr), out[1].(quantum.Expr)
	zero := expr.Equal(l, ZeroKet()) || expr.Equal(r, ZeroKet())
	if !zero && !hilbert.Equal(l.Space(), r.Space()) {
		return expr.PassResult{}, fmt.Errorf("%w: <%s|%s>",
			quantum.ErrUnequalSpaces, l.Space().Key(), r.Space().Key())
	}
	return expr.Continue(out, kw), nil
}

// BraKet is the inner product <a|b>; a is given as the ket it
// conjugates (or as a Bra). Orthonormal reductions return a bare
// scalar, anything else an unevaluated BraKetOp.
func BraKet(a, b any) (any, error) {
	return braKetType().Create([]any{a, b}, nil)
}

func braKetRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "zero-side",
			Pattern: expr.PatHead(ketW("a"), ketW("b")),
			Replace: func(b expr.Bindings) (any, error) {
				if expr.Equal(b["a"], ZeroKet()) || expr.Equal(b["b"], ZeroKet()) {
					return scalar.Zero, nil
				}
				return nil, expr.ErrCannotSimplify
			},
		},
		expr.Rule{
			Name:    "trivial",
			Pattern: expr.PatHead(headW("a", HeadTrivialKet), headW("b", HeadTrivialKet)),
			Replace: func(b expr.Bindings) (any, error) { return scalar.One, nil },
		},
		expr.Rule{
			// <m|n> = delta_mn in an orthonormal basis.
			Name:    "orthonormal",
			Pattern: expr.PatHead(headW("a", HeadBasisKet), headW("b", HeadBasisKet)),
			Replace: func(b expr.Bindings) (any, error) {
				ka := b["a"].(*BasisKet)
				kb := b["b"].(*BasisKet)
				if expr.Equal(ka.Index(), kb.Index()) {
					return scalar.One, nil
				}
				if symbolicKetIndex(ka.Index()) || symbolicKetIndex(kb.Index()) {
					// Unequal bound symbols may coincide after
					// substitution.
					return nil, expr.ErrCannotSimplify
				}
				return scalar.Zero, nil
			},
		},
		expr.Rule{
			// Scalar prefactors pull out, conjugated on the bra side.
			Name:    "pull-scalars",
			Pattern: expr.PatHead(ketW("a"), ketW("b")),
			Replace: func(b expr.Bindings) (any, error) {
				ca, ta := coeffTerm(b["a"])
				cb, tb := coeffTerm(b["b"])
				if scalar.IsOne(ca) && scalar.IsOne(cb) {
					return nil, expr.ErrCannotSimplify
				}
				inner, err := BraKet(ta, tb)
				if err != nil {
					return nil, err
				}
				return quantum.Mul(scalar.Mul(scalar.Conjugate(ca), cb), inner)
			},
		},
	)
}

func symbolicKetIndex(v any) bool {
	_, ok := v.(scalar.Scalar)
	return ok
}

// sigmaIndex reports whether a basis index can name a transition
// operator index: composite symbolic indices cannot.
func sigmaIndex(v any) bool {
	switch v.(type) {
	case int, string, scalar.Symbol:
		return true
	}
	return false
}

// KetBraOp is an unevaluated outer product |a><b|. It is a member of
// the operator algebra.
type KetBraOp struct {
	ket quantum.Expr
	bra quantum.Expr
}

func (k *KetBraOp) Head() string      { return HeadKetBra }
func (k *KetBraOp) Args() []any       { return []any{k.ket, k.bra} }
func (k *KetBraOp) Kwargs() []expr.KV { return nil }
func (k *KetBraOp) Key() string       { return expr.MakeKey(HeadKetBra, k.Args(), nil) }
func (k *KetBraOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, HeadKetBra, 1, k.Args(), nil)
}
func (k *KetBraOp) Space() hilbert.Space         { return k.ket.Space() }
func (k *KetBraOp) AlgebraRef() *quantum.Algebra { return operator.Algebra() }

// KetSide and BraSide are the two operands; the bra side is stored as
// the ket it conjugates.
func (k *KetBraOp) KetSide() quantum.Expr { return k.ket }
func (k *KetBraOp) BraSide() quantum.Expr { return k.bra }

// Adjoint is (|a><b|)+ = |b><a|.
func (k *KetBraOp) Adjoint() (quantum.Expr, error) {
	return KetBra(k.bra, k.ket)
}

var (
	ketBraOnce sync.Once
	ketBraTyp  *expr.OpType
)

func ketBraType() *expr.OpType {
	ketBraOnce.Do(func() {
		ketBraTyp = &expr.OpType{HeadTag: HeadKetBra}
		ketBraTyp.Rules = ketBraRules()
		ketBraTyp.Passes = []expr.Pass{checkKetBraOperands, expr.MatchReplace}
		ketBraTyp.Build = func(ops []any, kw []expr.KV) (any, error) {
			return &KetBraOp{ket: ops[0].(quantum.Expr), bra: ops[1].(quantum.Expr)}, nil
		}
	})
	return ketBraTyp
}

func checkKetBraOperands(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	if len(ops) != 2 {
		return expr.PassResult{}, fmt.Errorf(
			"%w: outer product needs (ket, bra), got %d operands", quantum.ErrUnsupported, len(ops))
	}
	out := make([]any, len(ops))
	for i, op := range ops {
		if br, ok := op.(*Bra); ok {
			op = br.Ket()
		}
		if !Algebra().IsMember(op) {
			return expr.PassResult{}, fmt.Errorf(
				"%w: outer product operand %s", quantum.ErrUnsupported, expr.KeyOf(op))
		}
		out[i] = op
	}
	l, r := out[0].(quantum.Expr), out[1].(quantum.Expr)
	zero := expr.Equal(l, ZeroKet()) || expr.Equal(r, ZeroKet())
	if !zero && !hilbert.Equal(l.Space(), r.Space()) {
		return expr.PassResult{}, fmt.Errorf("%w: |%s><%s|",
			quantum.ErrUnequalSpaces, l.Space().Key(), r.Space().Key())
	}
	return expr.Continue(out, kw), nil
}

// KetBra is the outer product |a><b|; b is given as the ket it
// conjugates (or as a Bra). Basis kets reduce to the local transition
// operator.
func KetBra(a, b any) (quantum.Expr, error) {
	v, err := ketBraType().Create([]any{a, b}, nil)
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(operator.Algebra(), v)
}

func ketBraRules() *expr.RuleTable {
	return expr.NewRuleTable(
		expr.Rule{
			Name:    "zero-side",
			Pattern: expr.PatHead(ketW("a"), ketW("b")),
			Replace: func(b expr.Bindings) (any, error) {
				if expr.Equal(b["a"], ZeroKet()) || expr.Equal(b["b"], ZeroKet()) {
					return operator.Zero(), nil
				}
				return nil, expr.ErrCannotSimplify
			},
		},
		expr.Rule{
			// |j><k| of basis kets is the transition operator.
			Name:    "local-sigma",
			Pattern: expr.PatHead(headW("a", HeadBasisKet), headW("b", HeadBasisKet)),
			Replace: func(b expr.Bindings) (any, error) {
				ka := b["a"].(*BasisKet)
				kb := b["b"].(*BasisKet)
				if !sigmaIndex(ka.Index()) || !sigmaIndex(kb.Index()) {
					return nil, expr.ErrCannotSimplify
				}
				return operator.LocalSigma(ka.Index(), kb.Index(), ka.LocalSpace())
			},
		},
		expr.Rule{
			// Scalar prefactors pull out, conjugated on the bra side.
			Name:    "pull-scalars",
			Pattern: expr.PatHead(ketW("a"), ketW("b")),
			Replace: func(b expr.Bindings) (any, error) {
				ca, ta := coeffTerm(b["a"])
				cb, tb := coeffTerm(b["b"])
				if scalar.IsOne(ca) && scalar.IsOne(cb) {
					return nil, expr.ErrCannotSimplify
				}
				outer, err := KetBra(ta, tb)
				if err != nil {
					return nil, err
				}
				return quantum.Mul(scalar.Mul(ca, scalar.Conjugate(cb)), outer)
			},
		},
	)
}
