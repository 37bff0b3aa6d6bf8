package quantum

import (
	"fmt"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/scalar"
)

// Operation is the shared body of n-ary operation nodes. The concrete
// algebras embed it through Plus, Times, ScalarTimes and AdjointOp;
// the head tag and capability table are bound at construction.
type Operation struct {
	alg  *Algebra
	head string
	ops  []any
	kw   []expr.KV
}

func (o *Operation) Head() string       { return o.head }
func (o *Operation) Args() []any        { return o.ops }
func (o *Operation) Kwargs() []expr.KV  { return o.kw }
func (o *Operation) AlgebraRef() *Algebra { return o.alg }

func (o *Operation) Key() string {
	return expr.MakeKey(o.head, o.ops, o.kw)
}

func (o *Operation) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(1, o.head, 1, o.ops, o.kw)
}

func (o *Operation) Space() hilbert.Space { return SpaceOfAll(o.ops) }

// operands as algebra members.
func (o *Operation) exprOps() ([]Expr, error) {
	out := make([]Expr, len(o.ops))
	for i, op := range o.ops {
		e, err := LiftScalar(o.alg, op)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Plus is the n-ary commutative sum of an algebra.
type Plus struct{ Operation }

// BuildPlus is the Build callback for a sum op type.
func BuildPlus(head string, alg func() *Algebra) func([]any, []expr.KV) (any, error) {
	return func(ops []any, kw []expr.KV) (any, error) {
		return &Plus{Operation{alg: alg(), head: head, ops: ops, kw: kw}}, nil
	}
}

func (p *Plus) Adjoint() (Expr, error) {
	if p.alg.Dagger != nil {
		return p.alg.Dagger(p)
	}
	terms, err := p.exprOps()
	if err != nil {
		return nil, err
	}
	adj := make([]any, len(terms))
	for i, t := range terms {
		a, err := t.Adjoint()
		if err != nil {
			return nil, err
		}
		adj[i] = a
	}
	v, err := Add(adj...)
	return liftResult(p.alg, v, err)
}

func (p *Plus) ExpandSelf() (Expr, error) {
	terms, err := p.exprOps()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(terms))
	for i, t := range terms {
		e, err := Expand(t)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	v, err := Add(out...)
	return liftResult(p.alg, v, err)
}

func (p *Plus) MapScalars(f scalar.SimplifyFunc) (Expr, error) {
	terms, err := p.exprOps()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(terms))
	for i, t := range terms {
		m, err := SimplifyScalar(t, f)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	v, err := Add(out...)
	return liftResult(p.alg, v, err)
}

func (p *Plus) DiffOne(sym scalar.Symbol) (any, error) {
	terms, err := p.exprOps()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(terms))
	for i, t := range terms {
		d, err := Diff(t, sym, 1, false)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return Add(out...)
}

func (p *Plus) SeriesTerms(param scalar.Symbol, about scalar.Scalar, order int) ([]any, error) {
	terms, err := p.exprOps()
	if err != nil {
		return nil, err
	}
	out := make([]any, order+1)
	for k := range out {
		out[k] = p.alg.Zero()
	}
	for _, t := range terms {
		series, err := SeriesExpand(t, param, about, order)
		if err != nil {
			return nil, err
		}
		for k := range out {
			s, err := Add(out[k], series[k])
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
	}
	return out, nil
}

// Times is the n-ary product of an algebra. Operand order is
// semantic up to commutation across disjoint spaces.
type Times struct{ Operation }

// BuildTimes is the Build callback for a product op type.
func BuildTimes(head string, alg func() *Algebra) func([]any, []expr.KV) (any, error) {
	return func(ops []any, kw []expr.KV) (any, error) {
		return &Times{Operation{alg: alg(), head: head, ops: ops, kw: kw}}, nil
	}
}

func (t *Times) Adjoint() (Expr, error) {
	if t.alg.Dagger != nil {
		return t.alg.Dagger(t)
	}
	factors, err := t.exprOps()
	if err != nil {
		return nil, err
	}
	adj := make([]any, 0, len(factors))
	for i := len(factors) - 1; i >= 0; i-- {
		a, err := factors[i].Adjoint()
		if err != nil {
			return nil, err
		}
		adj = append(adj, a)
	}
	v, err := Mul(adj...)
	return liftResult(t.alg, v, err)
}

// ExpandSelf distributes the product over every sum factor. The
// number of produced terms is the product of the summand counts, so
// wide sums are expensive to expand.
func (t *Times) ExpandSelf() (Expr, error) {
	factors, err := t.exprOps()
	if err != nil {
		return nil, err
	}
	summands := make([][]any, len(factors))
	for i, f := range factors {
		e, err := Expand(f)
		if err != nil {
			return nil, err
		}
		if n, ok := e.(expr.Node); ok && t.alg.Plus != nil && n.Head() == t.alg.Plus.HeadTag {
			summands[i] = n.Args()
		} else {
			summands[i] = []any{e}
		}
	}
	terms := []any{}
	pick := make([]any, len(summands))
	var walk func(i int) error
	walk = func(i int) error {
		if i == len(summands) {
			prod, err := Mul(append([]any{}, pick...)...)
			if err != nil {
				return err
			}
			terms = append(terms, prod)
			return nil
		}
		for _, s := range summands[i] {
			pick[i] = s
			if err := walk(i + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, err
	}
	var v Expr
	if len(terms) == 1 {
		v, err = LiftScalar(t.alg, terms[0])
	} else {
		var raw any
		raw, err = Add(terms...)
		v, err = liftResult(t.alg, raw, err)
	}
	if err != nil {
		return nil, err
	}
	// Mul can normal-order a factor pair into a fresh sum, leaving
	// products of sums inside the assembled result. Expand again
	// until the result is stable.
	if n, ok := v.(expr.Node); ok && t.alg.Plus != nil && n.Head() == t.alg.Plus.HeadTag {
		return Expand(v)
	}
	return v, nil
}

func (t *Times) MapScalars(f scalar.SimplifyFunc) (Expr, error) {
	factors, err := t.exprOps()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(factors))
	for i, fac := range factors {
		m, err := SimplifyScalar(fac, f)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	v, err := Mul(out...)
	return liftResult(t.alg, v, err)
}

// DiffOne applies the Leibniz rule without commuting any factors.
func (t *Times) DiffOne(sym scalar.Symbol) (any, error) {
	factors, err := t.exprOps()
	if err != nil {
		return nil, err
	}
	terms := []any{}
	for i := range factors {
		d, err := Diff(factors[i], sym, 1, false)
		if err != nil {
			return nil, err
		}
		if q, ok := d.(Expr); ok && expr.Equal(q, t.alg.Zero()) {
			continue
		}
		part := make([]any, 0, len(factors))
		part = append(part, anySlice(factors[:i])...)
		part = append(part, d)
		part = append(part, anySlice(factors[i+1:])...)
		prod, err := Mul(part...)
		if err != nil {
			return nil, err
		}
		terms = append(terms, prod)
	}
	if len(terms) == 0 {
		return t.alg.Zero(), nil
	}
	return Add(terms...)
}

func (t *Times) SeriesTerms(param scalar.Symbol, about scalar.Scalar, order int) ([]any, error) {
	factors, err := t.exprOps()
	if err != nil {
		return nil, err
	}
	acc := []any{t.alg.One()}
	for _, f := range factors {
		series, err := SeriesExpand(f, param, about, order)
		if err != nil {
			return nil, err
		}
		next := make([]any, len(series))
		for i, s := range series {
			next[i] = s
		}
		acc, err = ConvolveSeries(t.alg, acc, next, order)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// ScalarTimes is a scalar coefficient times a single algebra member.
type ScalarTimes struct {
	alg   *Algebra
	head  string
	coeff scalar.Scalar
	term  Expr
}

// BuildScalarTimes is the Build callback for a scalar-times op type.
func BuildScalarTimes(head string, alg func() *Algebra) func([]any, []expr.KV) (any, error) {
	return func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 2 {
			return nil, fmt.Errorf("%w: scalar product needs (coeff, term), got %d operands",
				ErrUnsupported, len(ops))
		}
		coeff, ok := AsScalar(ops[0])
		if !ok {
			return nil, fmt.Errorf("%w: coefficient %T", ErrUnsupported, ops[0])
		}
		term, err := LiftScalar(alg(), ops[1])
		if err != nil {
			return nil, err
		}
		return &ScalarTimes{alg: alg(), head: head, coeff: coeff, term: term}, nil
	}
}

func (s *ScalarTimes) Head() string        { return s.head }
func (s *ScalarTimes) Args() []any         { return []any{s.coeff, s.term} }
func (s *ScalarTimes) Kwargs() []expr.KV   { return nil }
func (s *ScalarTimes) AlgebraRef() *Algebra { return s.alg }
func (s *ScalarTimes) Space() hilbert.Space { return s.term.Space() }

// Coeff is the scalar prefactor.
func (s *ScalarTimes) Coeff() scalar.Scalar { return s.coeff }

// Term is the scaled expression.
func (s *ScalarTimes) Term() Expr { return s.term }

func (s *ScalarTimes) Key() string {
	return expr.MakeKey(s.head, s.Args(), nil)
}

// OrderKey mirrors the term's key with the coefficient magnitude in
// the sort-coefficient slot, so scaled copies of a term sort next to
// the term, smaller magnitudes first.
func (s *ScalarTimes) OrderKey() expr.KeyTuple {
	k := s.term.OrderKey()
	out := append(expr.KeyTuple{}, k...)
	if len(out) > 2 {
		out[2] = scalar.Magnitude(s.coeff)
	}
	return out
}

func (s *ScalarTimes) Adjoint() (Expr, error) {
	if s.alg.Dagger != nil {
		return s.alg.Dagger(s)
	}
	adj, err := s.term.Adjoint()
	if err != nil {
		return nil, err
	}
	v, err := Mul(scalar.Conjugate(s.coeff), adj)
	return liftResult(s.alg, v, err)
}

func (s *ScalarTimes) ExpandSelf() (Expr, error) {
	t, err := Expand(s.term)
	if err != nil {
		return nil, err
	}
	if n, ok := t.(expr.Node); ok && s.alg.Plus != nil && n.Head() == s.alg.Plus.HeadTag {
		terms := make([]any, len(n.Args()))
		for i, arg := range n.Args() {
			p, err := Mul(s.coeff, arg)
			if err != nil {
				return nil, err
			}
			terms[i] = p
		}
		v, err := Add(terms...)
		return liftResult(s.alg, v, err)
	}
	v, err := Mul(s.coeff, t)
	return liftResult(s.alg, v, err)
}

func (s *ScalarTimes) MapScalars(f scalar.SimplifyFunc) (Expr, error) {
	t, err := SimplifyScalar(s.term, f)
	if err != nil {
		return nil, err
	}
	v, err := Mul(f(s.coeff), t)
	return liftResult(s.alg, v, err)
}

func (s *ScalarTimes) DiffOne(sym scalar.Symbol) (any, error) {
	dc := scalar.Diff(s.coeff, sym)
	dt, err := Diff(s.term, sym, 1, false)
	if err != nil {
		return nil, err
	}
	left, err := Mul(dc, s.term)
	if err != nil {
		return nil, err
	}
	right, err := Mul(s.coeff, dt)
	if err != nil {
		return nil, err
	}
	return Add(left, right)
}

func (s *ScalarTimes) SeriesTerms(param scalar.Symbol, about scalar.Scalar, order int) ([]any, error) {
	coeffSeries, err := scalar.SeriesCoeffs(s.coeff, param, about, order)
	if err != nil {
		return nil, fmt.Errorf("quantum: series of coefficient %s: %w", s.coeff, err)
	}
	termSeries, err := SeriesExpand(s.term, param, about, order)
	if err != nil {
		return nil, err
	}
	cs := make([]any, len(coeffSeries))
	for i, c := range coeffSeries {
		cs[i] = c
	}
	ts := make([]any, len(termSeries))
	for i, t := range termSeries {
		ts[i] = t
	}
	return ConvolveSeries(s.alg, cs, ts, order)
}

// AdjointOp is the unevaluated Hermitian conjugate of an atom that
// has no simpler adjoint form.
type AdjointOp struct{ Operation }

// BuildAdjoint is the Build callback for an adjoint op type.
func BuildAdjoint(head string, alg func() *Algebra) func([]any, []expr.KV) (any, error) {
	return func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 1 {
			return nil, fmt.Errorf("%w: adjoint needs one operand, got %d",
				ErrUnsupported, len(ops))
		}
		if _, err := LiftScalar(alg(), ops[0]); err != nil {
			return nil, err
		}
		return &AdjointOp{Operation{alg: alg(), head: head, ops: ops, kw: kw}}, nil
	}
}

// Operand is the conjugated expression.
func (a *AdjointOp) Operand() Expr { return a.ops[0].(Expr) }

// Adjoint undoes the conjugation.
func (a *AdjointOp) Adjoint() (Expr, error) { return a.Operand(), nil }

func (a *AdjointOp) ExpandSelf() (Expr, error) {
	inner, err := Expand(a.Operand())
	if err != nil {
		return nil, err
	}
	adj, err := inner.Adjoint()
	if err != nil {
		return nil, err
	}
	return adj, nil
}

func (a *AdjointOp) MapScalars(f scalar.SimplifyFunc) (Expr, error) {
	inner, err := SimplifyScalar(a.Operand(), f)
	if err != nil {
		return nil, err
	}
	return inner.Adjoint()
}

func (a *AdjointOp) DiffOne(sym scalar.Symbol) (any, error) {
	d, err := Diff(a.Operand(), sym, 1, false)
	if err != nil {
		return nil, err
	}
	q, err := LiftScalar(a.alg, d)
	if err != nil {
		return nil, err
	}
	return q.Adjoint()
}

// Standard passes an algebra wires into its sum and product types.

// LiftScalars converts bare scalar operands of a sum into scalar
// multiples of the identity.
func LiftScalars(alg func() *Algebra) expr.Pass {
	return func(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
		a := alg()
		out := make([]any, len(ops))
		for i, op := range ops {
			s, ok := AsScalar(op)
			if !ok {
				out[i] = op
				continue
			}
			lifted, err := ScalarMul(a, s, a.One())
			if err != nil {
				return expr.PassResult{}, err
			}
			out[i] = lifted
		}
		return expr.Continue(out, kw), nil
	}
}

// PullScalars extracts scalar operands and scalar prefactors of a
// product into one leading coefficient: A * (c B) * d collapses to
// (c d) * (A B). A zero coefficient short-circuits to the algebra's
// zero.
func PullScalars(alg func() *Algebra) expr.Pass {
	return func(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
		a := alg()
		coeff := scalar.Scalar(scalar.One)
		rest := make([]any, 0, len(ops))
		pulled := false
		for _, op := range ops {
			if s, ok := AsScalar(op); ok {
				coeff = scalar.Mul(coeff, s)
				pulled = true
				continue
			}
			if st, ok := op.(*ScalarTimes); ok && st.alg == a {
				coeff = scalar.Mul(coeff, st.coeff)
				rest = append(rest, st.term)
				pulled = true
				continue
			}
			rest = append(rest, op)
		}
		if !pulled {
			return expr.Continue(ops, kw), nil
		}
		if scalar.IsZero(coeff) {
			return expr.Done(a.Zero()), nil
		}
		inner, err := t.Create(rest, kw)
		if err != nil {
			return expr.PassResult{}, err
		}
		if scalar.IsOne(coeff) {
			return expr.Done(inner), nil
		}
		scaled, err := Mul(coeff, inner)
		if err != nil {
			return expr.PassResult{}, err
		}
		return expr.Done(scaled), nil
	}
}

// CheckMembers fails construction when an operand is neither a
// scalar nor a member of the algebra.
func CheckMembers(alg func() *Algebra) expr.Pass {
	return func(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
		a := alg()
		for _, op := range ops {
			if IsScalar(op) {
				continue
			}
			if a.IsMember != nil && !a.IsMember(op) {
				return expr.PassResult{}, fmt.Errorf(
					"%w: %s operand %s", ErrUnsupported, t.HeadTag, expr.KeyOf(op))
			}
		}
		return expr.Continue(ops, kw), nil
	}
}

// CheckSameSpace fails construction unless all operands share one
// Hilbert space (sums of states).
func CheckSameSpace(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	var space hilbert.Space
	for _, op := range ops {
		q, ok := op.(Expr)
		if !ok {
			continue
		}
		switch {
		case space == nil:
			space = q.Space()
		case !hilbert.Equal(space, q.Space()):
			return expr.PassResult{}, fmt.Errorf("%w: %s vs %s",
				ErrUnequalSpaces, space.Key(), q.Space().Key())
		}
	}
	return expr.Continue(ops, kw), nil
}

// CheckDisjointSpaces fails construction unless all operands act on
// pairwise disjoint spaces (tensor products).
func CheckDisjointSpaces(t *expr.OpType, ops []any, kw []expr.KV) (expr.PassResult, error) {
	for i := range ops {
		for j := i + 1; j < len(ops); j++ {
			si, sj := SpaceOf(ops[i]), SpaceOf(ops[j])
			if si.IsTrivial() || sj.IsTrivial() {
				continue
			}
			if !hilbert.Disjoint(si, sj) {
				return expr.PassResult{}, fmt.Errorf("%w: %s and %s",
					ErrOverlappingSpaces, si.Key(), sj.Key())
			}
		}
	}
	return expr.Continue(ops, kw), nil
}

func liftResult(a *Algebra, v any, err error) (Expr, error) {
	if err != nil {
		return nil, err
	}
	return LiftScalar(a, v)
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
