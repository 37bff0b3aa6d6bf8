package quantum

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/scalar"
)

// IndexRange is a finite range a bound summation index runs over.
type IndexRange interface {
	expr.Keyer

	// Sym is the bound index symbol.
	Sym() scalar.Symbol

	// Rename rebinds the range to a new index symbol.
	Rename(to scalar.Symbol) IndexRange

	// Values enumerates the concrete index values. Ranges over the
	// basis of a space without one fail with ErrBasisNotSet.
	Values() ([]any, error)

	// Len is the number of values, for sums over constant terms.
	Len() (int, error)
}

// IndexOverList runs an index over explicit values.
type IndexOverList struct {
	sym    scalar.Symbol
	values []any
}

// NewIndexOverList binds sym to the given values.
func NewIndexOverList(sym scalar.Symbol, values ...any) IndexOverList {
	return IndexOverList{sym: sym, values: values}
}

func (r IndexOverList) Sym() scalar.Symbol { return r.sym }

func (r IndexOverList) Rename(to scalar.Symbol) IndexRange {
	return IndexOverList{sym: to, values: r.values}
}

func (r IndexOverList) Values() ([]any, error) {
	return append([]any(nil), r.values...), nil
}

func (r IndexOverList) Len() (int, error) { return len(r.values), nil }

func (r IndexOverList) Key() string {
	parts := make([]string, 0, len(r.values))
	for _, v := range r.values {
		parts = append(parts, expr.KeyOf(v))
	}
	return "IndexOverList(" + r.sym.Key() + ",(" + strings.Join(parts, ",") + "))"
}

// IndexOverRange runs an index over the integers start..stop
// (inclusive) with the given step.
type IndexOverRange struct {
	sym               scalar.Symbol
	start, stop, step int
}

// NewIndexOverRange binds sym to start..stop inclusive.
func NewIndexOverRange(sym scalar.Symbol, start, stop, step int) (IndexOverRange, error) {
	if step == 0 {
		return IndexOverRange{}, fmt.Errorf("%w: index range with step 0", ErrUnsupported)
	}
	return IndexOverRange{sym: sym, start: start, stop: stop, step: step}, nil
}

func (r IndexOverRange) Sym() scalar.Symbol { return r.sym }

func (r IndexOverRange) Rename(to scalar.Symbol) IndexRange {
	return IndexOverRange{sym: to, start: r.start, stop: r.stop, step: r.step}
}

func (r IndexOverRange) Values() ([]any, error) {
	var out []any
	if r.step > 0 {
		for i := r.start; i <= r.stop; i += r.step {
			out = append(out, i)
		}
	} else {
		for i := r.start; i >= r.stop; i += r.step {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r IndexOverRange) Len() (int, error) {
	vs, _ := r.Values()
	return len(vs), nil
}

func (r IndexOverRange) Key() string {
	return "IndexOverRange(" + r.sym.Key() + "," +
		strconv.Itoa(r.start) + "," + strconv.Itoa(r.stop) + "," +
		strconv.Itoa(r.step) + ")"
}

// IndexOverBasis runs an index over all basis-state indices of a
// local Hilbert space.
type IndexOverBasis struct {
	sym   scalar.Symbol
	space *hilbert.LocalSpace
}

// NewIndexOverBasis binds sym to the basis indices of the space.
func NewIndexOverBasis(sym scalar.Symbol, space *hilbert.LocalSpace) IndexOverBasis {
	return IndexOverBasis{sym: sym, space: space}
}

func (r IndexOverBasis) Sym() scalar.Symbol          { return r.sym }
func (r IndexOverBasis) Space() *hilbert.LocalSpace { return r.space }

func (r IndexOverBasis) Rename(to scalar.Symbol) IndexRange {
	return IndexOverBasis{sym: to, space: r.space}
}

func (r IndexOverBasis) Values() ([]any, error) {
	dim, err := r.space.Dimension()
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, dim)
	for i := 0; i < dim; i++ {
		out = append(out, i)
	}
	return out, nil
}

func (r IndexOverBasis) Len() (int, error) { return r.space.Dimension() }

func (r IndexOverBasis) Key() string {
	return "IndexOverBasis(" + r.sym.Key() + "," + r.space.Key() + ")"
}

// Ranges is an ordered list of bound index ranges, usable as a
// keyword-argument value.
type Ranges []IndexRange

func (rs Ranges) Key() string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, r.Key())
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// BoundSyms returns the bound symbol keys.
func (rs Ranges) BoundSyms() map[string]struct{} {
	out := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		out[r.Sym().Key()] = struct{}{}
	}
	return out
}

// IndexSubstituter lets a type control how bound index values are
// substituted into it; the atoms that store a raw index (basis kets,
// transition operators) implement it.
type IndexSubstituter interface {
	SubstIndex(m map[string]any) (any, error)
}

// SubstIndexes replaces bound index symbols with concrete values or
// fresh symbols throughout an operand, rebuilding expression nodes
// through their canonical constructors.
func SubstIndexes(v any, m map[string]any) (any, error) {
	if len(m) == 0 {
		return v, nil
	}
	if sym, ok := v.(scalar.Symbol); ok {
		if repl, hit := m[sym.Key()]; hit {
			return repl, nil
		}
		return v, nil
	}
	if is, ok := v.(IndexSubstituter); ok {
		return is.SubstIndex(m)
	}
	if s, ok := v.(scalar.Scalar); ok {
		sm := make(map[string]scalar.Scalar, len(m))
		for k, repl := range m {
			rs, ok := AsScalar(repl)
			if !ok {
				return nil, fmt.Errorf("%w: index value %T in scalar", ErrUnsupported, repl)
			}
			sm[k] = rs
		}
		return scalar.Subst(s, sm), nil
	}
	if n, ok := v.(expr.Node); ok {
		args := make([]any, len(n.Args()))
		for i, a := range n.Args() {
			sub, err := SubstIndexes(a, m)
			if err != nil {
				return nil, err
			}
			args[i] = sub
		}
		kw := make([]expr.KV, len(n.Kwargs()))
		for i, pair := range n.Kwargs() {
			sub, err := SubstIndexes(pair.Val, m)
			if err != nil {
				return nil, err
			}
			kw[i] = expr.KV{Key: pair.Key, Val: sub}
		}
		return expr.CreateByHead(n.Head(), args, kw)
	}
	return v, nil
}

// freshSym primes a symbol until its key avoids every name in taken.
func freshSym(sym scalar.Symbol, taken map[string]struct{}) scalar.Symbol {
	out := sym
	for {
		if _, clash := taken[out.Key()]; !clash {
			return out
		}
		out = out.Prime()
	}
}
