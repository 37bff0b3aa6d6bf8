package state

import (
	"fmt"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// BasisKet is one element of the computational basis of a local
// space. The index is an integer, a basis label, or a bound index
// symbol.
type BasisKet struct {
	idx any
	hs  *hilbert.LocalSpace
}

// NewBasisKet returns the interned basis ket |idx> on hs. An integer
// index outside the space's dimension yields the zero ket instead of
// an error, so truncated ladders fall off the basis cleanly.
func NewBasisKet(idx any, hs *hilbert.LocalSpace) (quantum.Expr, error) {
	resolved, err := resolveKetIndex(idx, hs)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return ZeroKet(), nil
	}
	n := expr.Intern(&BasisKet{idx: resolved, hs: hs})
	return n.(quantum.Expr), nil
}

// resolveKetIndex normalizes a basis index. A nil result means the
// index fell outside the basis.
func resolveKetIndex(v any, hs *hilbert.LocalSpace) (any, error) {
	switch x := v.(type) {
	case int:
		if !hs.InRange(x) {
			return nil, nil
		}
		return x, nil
	case string:
		ind, err := hs.IndexOfLabel(x)
		if err != nil {
			// Spaces without a basis keep the symbolic label.
			return x, nil
		}
		return ind, nil
	case scalar.Symbol:
		return x, nil
	case scalar.Scalar:
		// Composite symbolic indices (n+1 from Next) evaluate to
		// integers after substitution.
		if n, ok := asInt(x); ok {
			return resolveKetIndex(n, hs)
		}
		return x, nil
	}
	return nil, fmt.Errorf("%w: basis index %T", quantum.ErrUnsupported, v)
}

func (k *BasisKet) Head() string { return HeadBasisKet }
func (k *BasisKet) Args() []any  { return []any{k.idx} }
func (k *BasisKet) Kwargs() []expr.KV {
	return expr.Kw(expr.KV{Key: "hs", Val: k.hs})
}
func (k *BasisKet) Key() string {
	return expr.MakeKey(HeadBasisKet, k.Args(), k.Kwargs())
}
func (k *BasisKet) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(0, HeadBasisKet, 1, k.Args(), k.Kwargs())
}
func (k *BasisKet) Space() hilbert.Space         { return k.hs }
func (k *BasisKet) AlgebraRef() *quantum.Algebra { return Algebra() }

// Index is the resolved basis index.
func (k *BasisKet) Index() any { return k.idx }

func (k *BasisKet) LocalSpace() *hilbert.LocalSpace { return k.hs }

func (k *BasisKet) Adjoint() (quantum.Expr, error) { return NewBra(k), nil }

// Next is the basis ket one step up, the zero ket past the end of the
// basis.
func (k *BasisKet) Next() (quantum.Expr, error) { return k.shift(1) }

// Prev is the basis ket one step down, the zero ket below the start.
func (k *BasisKet) Prev() (quantum.Expr, error) { return k.shift(-1) }

func (k *BasisKet) shift(by int) (quantum.Expr, error) {
	switch idx := k.idx.(type) {
	case int:
		return NewBasisKet(idx+by, k.hs)
	case scalar.Scalar:
		return NewBasisKet(scalar.Add(idx, scalar.Int(int64(by))), k.hs)
	}
	return nil, fmt.Errorf("%w: cannot shift basis index %v", quantum.ErrUnsupported, k.idx)
}

// SubstIndex substitutes a bound index symbol; an integer substitute
// that falls off the basis turns the ket into the zero ket.
func (k *BasisKet) SubstIndex(m map[string]any) (any, error) {
	switch idx := k.idx.(type) {
	case scalar.Symbol:
		repl, hit := m[idx.Key()]
		if !hit {
			return k, nil
		}
		return NewBasisKet(repl, k.hs)
	case scalar.Scalar:
		sm := map[string]scalar.Scalar{}
		for key, v := range m {
			if s, ok := quantum.AsScalar(v); ok {
				sm[key] = s
			}
		}
		return NewBasisKet(scalar.Subst(idx, sm), k.hs)
	}
	return k, nil
}

// asInt extracts an exact integer value from a numeric scalar.
func asInt(s scalar.Scalar) (int, bool) {
	n, ok := s.(scalar.Number)
	if !ok {
		return 0, false
	}
	re := n.Re()
	if !re.IsInt() || !scalar.Equal(n, scalar.Int(re.Num().Int64())) {
		return 0, false
	}
	return int(re.Num().Int64()), true
}

// symbolic scalar indices that are not plain symbols (n+1 from Next on
// a symbolic ket) are carried as scalars.
func (k *BasisKet) indexScalar() (scalar.Scalar, bool) {
	switch idx := k.idx.(type) {
	case int:
		return scalar.Int(int64(idx)), true
	case scalar.Symbol:
		return idx, true
	case scalar.Scalar:
		return idx, true
	}
	return nil, false
}

// CoherentStateKet is the coherent state |alpha> of a bosonic mode.
type CoherentStateKet struct {
	alpha scalar.Scalar
	hs    *hilbert.LocalSpace
}

// NewCoherentStateKet returns the interned coherent state with
// amplitude alpha on hs.
func NewCoherentStateKet(alpha scalar.Scalar, hs *hilbert.LocalSpace) quantum.Expr {
	n := expr.Intern(&CoherentStateKet{alpha: alpha, hs: hs})
	return n.(quantum.Expr)
}

func (c *CoherentStateKet) Head() string { return HeadCoherentStateKet }
func (c *CoherentStateKet) Args() []any  { return []any{c.alpha} }
func (c *CoherentStateKet) Kwargs() []expr.KV {
	return expr.Kw(expr.KV{Key: "hs", Val: c.hs})
}
func (c *CoherentStateKet) Key() string {
	return expr.MakeKey(HeadCoherentStateKet, c.Args(), c.Kwargs())
}
func (c *CoherentStateKet) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(0, HeadCoherentStateKet, 1, c.Args(), c.Kwargs())
}
func (c *CoherentStateKet) Space() hilbert.Space         { return c.hs }
func (c *CoherentStateKet) AlgebraRef() *quantum.Algebra { return Algebra() }

// Ampl is the coherent amplitude.
func (c *CoherentStateKet) Ampl() scalar.Scalar { return c.alpha }

func (c *CoherentStateKet) LocalSpace() *hilbert.LocalSpace { return c.hs }

func (c *CoherentStateKet) Adjoint() (quantum.Expr, error) { return NewBra(c), nil }

// ToFock expands the coherent state in the number basis:
//
//	|alpha> = exp(-|alpha|^2/2) sum_n alpha^n / sqrt(n!) |n>
//
// as an indexed sum bound to idx.
func (c *CoherentStateKet) ToFock(idx scalar.Symbol) (quantum.Expr, error) {
	norm := scalar.Exp(scalar.Mul(
		scalar.Rat(-1, 2), c.alpha, scalar.Conjugate(c.alpha)))
	coeff, err := scalar.Div(
		scalar.Apply("pow", c.alpha, idx),
		scalar.Sqrt(scalar.Factorial(idx)))
	if err != nil {
		return nil, err
	}
	ket, err := NewBasisKet(idx, c.hs)
	if err != nil {
		return nil, err
	}
	term, err := Mul(scalar.Mul(norm, coeff), ket)
	if err != nil {
		return nil, err
	}
	return quantum.NewIndexedSum(Algebra(), term, quantum.NewIndexOverBasis(idx, c.hs))
}
