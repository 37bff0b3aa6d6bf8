package quantum

import (
	"fmt"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/scalar"
)

// Optional capabilities. Types opt in by implementing the interface;
// the generic entry points below dispatch through them and fall back
// to the identity behavior (or a named error) when a type does not.

// Expander distributes products over sums.
type Expander interface {
	ExpandSelf() (Expr, error)
}

// ScalarMapper applies a scalar simplification function to every
// embedded coefficient.
type ScalarMapper interface {
	MapScalars(f scalar.SimplifyFunc) (Expr, error)
}

// Differentiable takes a single symbolic derivative.
type Differentiable interface {
	DiffOne(sym scalar.Symbol) (any, error)
}

// SeriesExpander returns the truncated power-series coefficients
// [c0 ... c_order] of the expression in param around about.
type SeriesExpander interface {
	SeriesTerms(param scalar.Symbol, about scalar.Scalar, order int) ([]any, error)
}

// FreeSymbolic overrides the generic free-symbol walk; indexed sums
// use it to hide their bound indices.
type FreeSymbolic interface {
	FreeScalarSymbols() map[string]struct{}
}

// Expand distributes products over sums throughout the expression.
func Expand(e Expr) (Expr, error) {
	if x, ok := e.(Expander); ok {
		return x.ExpandSelf()
	}
	return e, nil
}

// SimplifyScalar applies f to every scalar coefficient in the
// expression, rebuilding through the canonical constructors.
func SimplifyScalar(e Expr, f scalar.SimplifyFunc) (Expr, error) {
	if m, ok := e.(ScalarMapper); ok {
		return m.MapScalars(f)
	}
	return e, nil
}

// FreeSymbols collects the free scalar symbols of any operand,
// keyed by symbol key.
func FreeSymbols(v any) map[string]struct{} {
	out := map[string]struct{}{}
	collectFreeSymbols(v, out)
	return out
}

func collectFreeSymbols(v any, out map[string]struct{}) {
	switch x := v.(type) {
	case FreeSymbolic:
		for k := range x.FreeScalarSymbols() {
			out[k] = struct{}{}
		}
	case scalar.Scalar:
		for k := range scalar.FreeSymbols(x) {
			out[k] = struct{}{}
		}
	case expr.Node:
		for _, a := range x.Args() {
			collectFreeSymbols(a, out)
		}
		for _, kv := range x.Kwargs() {
			collectFreeSymbols(kv.Val, out)
		}
	}
}

// Diff is the n-th symbolic derivative with respect to sym. When sym
// does not appear free in the expression the result short-circuits
// to the algebra's zero without consulting the type. With
// expandSimplify the result is expanded before it is returned.
func Diff(e Expr, sym scalar.Symbol, n int, expandSimplify bool) (any, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: derivative order %d", ErrUnsupported, n)
	}
	res := any(e)
	for i := 0; i < n; i++ {
		cur, ok := res.(Expr)
		if !ok {
			s, isScalar := AsScalar(res)
			if !isScalar {
				return nil, fmt.Errorf("%w: cannot differentiate %T", ErrUnsupported, res)
			}
			res = scalar.Diff(s, sym)
			continue
		}
		if _, free := FreeSymbols(cur)[sym.Key()]; !free {
			res = cur.AlgebraRef().Zero()
			break
		}
		d, ok := cur.(Differentiable)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not differentiable", ErrUnsupported, cur.Head())
		}
		next, err := d.DiffOne(sym)
		if err != nil {
			return nil, err
		}
		res = next
	}
	if expandSimplify {
		if cur, ok := res.(Expr); ok {
			return Expand(cur)
		}
	}
	return res, nil
}

// SeriesExpand returns the order+1 coefficients of the expression as
// a power series in param around about. Coefficients are type-stable:
// vanishing entries are the algebra's canonical zero, never a bare
// numeric zero.
func SeriesExpand(e Expr, param scalar.Symbol, about scalar.Scalar, order int) ([]Expr, error) {
	if order < 0 {
		return nil, fmt.Errorf("%w: series order %d", ErrUnsupported, order)
	}
	var terms []any
	if se, ok := e.(SeriesExpander); ok {
		t, err := se.SeriesTerms(param, about, order)
		if err != nil {
			return nil, err
		}
		terms = t
	} else {
		if _, free := FreeSymbols(e)[param.Key()]; free {
			return nil, fmt.Errorf("quantum: series expansion of %s: %w",
				e.Head(), scalar.ErrCannotExpand)
		}
		terms = []any{e}
	}
	return NormalizeSeries(e.AlgebraRef(), terms, order)
}

// NormalizeSeries pads, truncates and canonicalizes raw series
// coefficients: bare scalars become scalar multiples of the identity
// (zero and one collapsing to the canonical elements).
func NormalizeSeries(a *Algebra, terms []any, order int) ([]Expr, error) {
	out := make([]Expr, order+1)
	for i := range out {
		if i >= len(terms) {
			out[i] = a.Zero()
			continue
		}
		e, err := LiftScalar(a, terms[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// LiftScalar converts an operand into a member of the algebra,
// lifting scalars onto the identity.
func LiftScalar(a *Algebra, v any) (Expr, error) {
	if q, ok := v.(Expr); ok {
		if q.AlgebraRef() != a {
			return nil, fmt.Errorf("%w: %s value in %s series",
				ErrMixedAlgebras, q.AlgebraRef().Name, a.Name)
		}
		return q, nil
	}
	s, ok := AsScalar(v)
	if !ok {
		return nil, fmt.Errorf("%w: cannot lift %T into %s", ErrUnsupported, v, a.Name)
	}
	if scalar.IsZero(s) {
		return a.Zero(), nil
	}
	if scalar.IsOne(s) {
		return a.One(), nil
	}
	lifted, err := ScalarMul(a, s, a.One())
	if err != nil {
		return nil, err
	}
	q, ok := lifted.(Expr)
	if !ok {
		return nil, fmt.Errorf("%w: scalar lift produced %T", ErrUnsupported, lifted)
	}
	return q, nil
}

// ConvolveSeries combines the series coefficients of two factors
// into the series of their product, c_k = sum_i l_i * r_(k-i).
func ConvolveSeries(a *Algebra, lt, rt []any, order int) ([]any, error) {
	out := make([]any, order+1)
	for k := 0; k <= order; k++ {
		terms := make([]any, 0, k+1)
		for i := 0; i <= k; i++ {
			if i >= len(lt) || k-i >= len(rt) {
				continue
			}
			p, err := Mul(lt[i], rt[k-i])
			if err != nil {
				return nil, err
			}
			terms = append(terms, p)
		}
		switch len(terms) {
		case 0:
			out[k] = a.Zero()
		case 1:
			out[k] = terms[0]
		default:
			s, err := Add(terms...)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
	}
	return out, nil
}
