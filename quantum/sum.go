package quantum

import (
	"errors"
	"fmt"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/scalar"
)

// IndexedSum is a symbolic finite sum of a term over one or more
// bound index ranges. Every algebra with an IndexedSum op type shares
// this node; the head tag and capability table distinguish them.
type IndexedSum struct {
	alg    *Algebra
	head   string
	term   Expr
	ranges Ranges
}

func (s *IndexedSum) Head() string  { return s.head }
func (s *IndexedSum) Args() []any   { return []any{s.term} }
func (s *IndexedSum) Kwargs() []expr.KV {
	return expr.Kw(expr.KV{Key: "ranges", Val: s.ranges})
}
func (s *IndexedSum) Key() string {
	return expr.MakeKey(s.head, s.Args(), s.Kwargs())
}
func (s *IndexedSum) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, s.head, 1, s.Args(), s.Kwargs())
}

func (s *IndexedSum) Space() hilbert.Space { return s.term.Space() }
func (s *IndexedSum) AlgebraRef() *Algebra { return s.alg }

// Term is the summand.
func (s *IndexedSum) Term() Expr { return s.term }

// IndexRanges are the bound ranges, outermost first.
func (s *IndexedSum) IndexRanges() Ranges { return s.ranges }

// Adjoint conjugates the term inside the sum.
func (s *IndexedSum) Adjoint() (Expr, error) {
	if s.alg.Dagger != nil {
		return s.alg.Dagger(s)
	}
	adj, err := s.term.Adjoint()
	if err != nil {
		return nil, err
	}
	return makeIndexedSum(s.alg, adj, s.ranges)
}

// FreeScalarSymbols hides the bound indices.
func (s *IndexedSum) FreeScalarSymbols() map[string]struct{} {
	free := FreeSymbols(s.term)
	for bound := range s.ranges.BoundSyms() {
		delete(free, bound)
	}
	return free
}

// ExpandSelf expands the term in place.
func (s *IndexedSum) ExpandSelf() (Expr, error) {
	t, err := Expand(s.term)
	if err != nil {
		return nil, err
	}
	return makeIndexedSum(s.alg, t, s.ranges)
}

// MapScalars maps coefficients inside the term.
func (s *IndexedSum) MapScalars(f scalar.SimplifyFunc) (Expr, error) {
	t, err := SimplifyScalar(s.term, f)
	if err != nil {
		return nil, err
	}
	return makeIndexedSum(s.alg, t, s.ranges)
}

// DiffOne differentiates the term.
func (s *IndexedSum) DiffOne(sym scalar.Symbol) (any, error) {
	d, ok := s.term.(Differentiable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not differentiable", ErrUnsupported, s.term.Head())
	}
	dt, err := d.DiffOne(sym)
	if err != nil {
		return nil, err
	}
	de, err := LiftScalar(s.alg, dt)
	if err != nil {
		return nil, err
	}
	return makeIndexedSum(s.alg, de, s.ranges)
}

// DoIt writes the sum out as an explicit finite sum, substituting
// each combination of index values into the term. It fails with
// ErrBasisNotSet when a basis range has no basis.
func (s *IndexedSum) DoIt() (any, error) {
	terms := []any{}
	var walk func(i int, m map[string]any) error
	walk = func(i int, m map[string]any) error {
		if i == len(s.ranges) {
			sub, err := SubstIndexes(s.term, m)
			if err != nil {
				return err
			}
			terms = append(terms, sub)
			return nil
		}
		r := s.ranges[i]
		vals, err := r.Values()
		if err != nil {
			return err
		}
		for _, v := range vals {
			m[r.Sym().Key()] = v
			if err := walk(i+1, m); err != nil {
				return err
			}
		}
		delete(m, r.Sym().Key())
		return nil
	}
	if err := walk(0, map[string]any{}); err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return s.alg.Zero(), nil
	}
	return Add(terms...)
}

// makeIndexedSum funnels construction through the algebra's op type.
func makeIndexedSum(a *Algebra, term Expr, ranges Ranges) (Expr, error) {
	if a.IndexedSum == nil {
		return nil, fmt.Errorf("%w: %s has no indexed sums", ErrUnsupported, a.Name)
	}
	v, err := a.IndexedSum.Create([]any{term},
		expr.Kw(expr.KV{Key: "ranges", Val: ranges}))
	if err != nil {
		return nil, err
	}
	return LiftScalar(a, v)
}

// NewIndexedSum builds an indexed sum through the canonical
// constructor path.
func NewIndexedSum(a *Algebra, term Expr, ranges ...IndexRange) (Expr, error) {
	return makeIndexedSum(a, term, Ranges(ranges))
}

// IndexedSumType assembles the op type shared by every algebra's
// indexed sum: flatten nested sums, pull out constant terms, then
// build the node. The algebra pointer is bound late via the setup
// callback because op types and algebras reference each other.
func IndexedSumType(head string, alg func() *Algebra) *expr.OpType {
	t := &expr.OpType{HeadTag: head}
	t.Passes = []expr.Pass{assocIndexed(alg), sumOverConst(alg)}
	t.Build = func(ops []any, kw []expr.KV) (any, error) {
		a := alg()
		term, ranges, err := sumParts(a, ops, kw)
		if err != nil {
			return nil, err
		}
		if len(ranges) == 0 {
			return term, nil
		}
		return &IndexedSum{alg: a, head: head, term: term, ranges: ranges}, nil
	}
	return t
}

func sumParts(a *Algebra, ops []any, kw []expr.KV) (Expr, Ranges, error) {
	if len(ops) != 1 {
		return nil, nil, fmt.Errorf("%w: indexed sum needs exactly one term, got %d",
			ErrUnsupported, len(ops))
	}
	term, err := LiftScalar(a, ops[0])
	if err != nil {
		return nil, nil, err
	}
	raw, ok := expr.LookupKw(kw, "ranges")
	if !ok {
		return nil, nil, fmt.Errorf("%w: indexed sum without ranges", ErrUnsupported)
	}
	ranges, ok := raw.(Ranges)
	if !ok {
		return nil, nil, fmt.Errorf("%w: ranges argument %T", ErrUnsupported, raw)
	}
	return term, ranges, nil
}

// assocIndexed flattens a sum whose term is itself an indexed sum of
// the same algebra, renaming inner indices that collide with outer
// ones.
func assocIndexed(alg func() *Algebra) expr.Pass {
	return func(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
		a := alg()
		term, ranges, err := sumParts(a, ops, kw)
		if err != nil {
			return expr.PassResult{}, err
		}
		inner, ok := term.(*IndexedSum)
		if !ok || inner.head != t.HeadTag {
			return expr.Continue([]any{term},
				expr.Kw(expr.KV{Key: "ranges", Val: ranges})), nil
		}
		innerTerm, innerRanges, err := disjointRanges(inner.term, inner.ranges, ranges.BoundSyms())
		if err != nil {
			return expr.PassResult{}, err
		}
		merged := append(append(Ranges{}, ranges...), innerRanges...)
		return expr.Continue([]any{innerTerm},
			expr.Kw(expr.KV{Key: "ranges", Val: merged})), nil
	}
}

// sumOverConst collapses a sum whose term does not involve any bound
// index into count * term, when every range has a known length.
func sumOverConst(alg func() *Algebra) expr.Pass {
	return func(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
		a := alg()
		term, ranges, err := sumParts(a, ops, kw)
		if err != nil {
			return expr.PassResult{}, err
		}
		free := FreeSymbols(term)
		for bound := range ranges.BoundSyms() {
			if _, used := free[bound]; used {
				return expr.Continue([]any{term},
					expr.Kw(expr.KV{Key: "ranges", Val: ranges})), nil
			}
		}
		count := 1
		for _, r := range ranges {
			n, err := r.Len()
			if err != nil {
				if errors.Is(err, hilbert.ErrBasisNotSet) {
					return expr.Continue([]any{term},
						expr.Kw(expr.KV{Key: "ranges", Val: ranges})), nil
				}
				return expr.PassResult{}, err
			}
			count *= n
		}
		scaled, err := ScalarMul(a, scalar.Int(int64(count)), term)
		if err != nil {
			return expr.PassResult{}, err
		}
		return expr.Done(scaled), nil
	}
}

// disjointRanges renames the bound symbols of ranges that collide
// with taken, substituting the renames into term.
func disjointRanges(term Expr, ranges Ranges, taken map[string]struct{}) (Expr, Ranges, error) {
	all := map[string]struct{}{}
	for k := range taken {
		all[k] = struct{}{}
	}
	for k := range FreeSymbols(term) {
		all[k] = struct{}{}
	}
	renames := map[string]any{}
	out := make(Ranges, len(ranges))
	for i, r := range ranges {
		sym := r.Sym()
		if _, clash := taken[sym.Key()]; !clash {
			out[i] = r
			continue
		}
		fresh := freshSym(sym, all)
		all[fresh.Key()] = struct{}{}
		renames[sym.Key()] = fresh
		out[i] = r.Rename(fresh)
	}
	if len(renames) == 0 {
		return term, out, nil
	}
	sub, err := SubstIndexes(term, renames)
	if err != nil {
		return nil, nil, err
	}
	newTerm, ok := sub.(Expr)
	if !ok {
		return nil, nil, fmt.Errorf("%w: index rename produced %T", ErrUnsupported, sub)
	}
	return newTerm, out, nil
}

// mulIndexedSums multiplies when at least one factor is an indexed
// sum: bound indices are renamed apart, then the product becomes one
// sum over the concatenated ranges.
func mulIndexedSums(a *Algebra, l, r Expr, lSum, rSum bool) (any, error) {
	switch {
	case lSum && rSum:
		ls := l.(*IndexedSum)
		rs := r.(*IndexedSum)
		taken := ls.ranges.BoundSyms()
		for k := range FreeSymbols(ls.term) {
			taken[k] = struct{}{}
		}
		rTerm, rRanges, err := disjointRanges(rs.term, rs.ranges, taken)
		if err != nil {
			return nil, err
		}
		prod, err := Mul(ls.term, rTerm)
		if err != nil {
			return nil, err
		}
		term, err := LiftScalar(a, prod)
		if err != nil {
			return nil, err
		}
		return makeIndexedSum(a, term, append(append(Ranges{}, ls.ranges...), rRanges...))
	case lSum:
		ls := l.(*IndexedSum)
		lTerm, lRanges, err := disjointRanges(ls.term, ls.ranges, FreeSymbols(r))
		if err != nil {
			return nil, err
		}
		prod, err := Mul(lTerm, r)
		if err != nil {
			return nil, err
		}
		term, err := LiftScalar(a, prod)
		if err != nil {
			return nil, err
		}
		return makeIndexedSum(a, term, lRanges)
	default:
		rs := r.(*IndexedSum)
		rTerm, rRanges, err := disjointRanges(rs.term, rs.ranges, FreeSymbols(l))
		if err != nil {
			return nil, err
		}
		prod, err := Mul(l, rTerm)
		if err != nil {
			return nil, err
		}
		term, err := LiftScalar(a, prod)
		if err != nil {
			return nil, err
		}
		return makeIndexedSum(a, term, rRanges)
	}
}

// Sum returns the indexed-sum builder for an index symbol, with the
// range given by the shape of rangeArgs:
//
//	Sum(a, i)               -> over the basis of the term's space
//	Sum(a, i, space)        -> over the basis of space
//	Sum(a, i, []any{...})   -> over explicit values
//	Sum(a, i, n)            -> i = 0..n
//	Sum(a, i, lo, hi)       -> i = lo..hi
//	Sum(a, i, lo, hi, step) -> i = lo..hi by step
func Sum(a *Algebra, idx scalar.Symbol, rangeArgs ...any) func(term Expr) (Expr, error) {
	return func(term Expr) (Expr, error) {
		r, err := dispatchRange(idx, term, rangeArgs)
		if err != nil {
			return nil, err
		}
		return makeIndexedSum(a, term, Ranges{r})
	}
}

func dispatchRange(idx scalar.Symbol, term Expr, rangeArgs []any) (IndexRange, error) {
	switch len(rangeArgs) {
	case 0:
		locals := term.Space().Locals()
		if len(locals) != 1 {
			return nil, fmt.Errorf("%w: basis sum needs a single local space, term lives on %s",
				ErrUnsupported, term.Space().Key())
		}
		return NewIndexOverBasis(idx, locals[0]), nil
	case 1:
		switch arg := rangeArgs[0].(type) {
		case *hilbert.LocalSpace:
			return NewIndexOverBasis(idx, arg), nil
		case []any:
			return NewIndexOverList(idx, arg...), nil
		case []int:
			vals := make([]any, len(arg))
			for i, v := range arg {
				vals[i] = v
			}
			return NewIndexOverList(idx, vals...), nil
		case int:
			return NewIndexOverRange(idx, 0, arg, 1)
		}
	case 2:
		lo, lok := rangeArgs[0].(int)
		hi, hok := rangeArgs[1].(int)
		if lok && hok {
			return NewIndexOverRange(idx, lo, hi, 1)
		}
	case 3:
		lo, lok := rangeArgs[0].(int)
		hi, hok := rangeArgs[1].(int)
		st, sok := rangeArgs[2].(int)
		if lok && hok && sok {
			return NewIndexOverRange(idx, lo, hi, st)
		}
	}
	return nil, fmt.Errorf("%w: sum range arguments %v", ErrUnsupported, rangeArgs)
}
