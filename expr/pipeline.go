package expr

import "fmt"

// PassResult carries the outcome of one simplification pass: either
// the (possibly rewritten) operands for the next pass, or a finished
// value that short-circuits construction entirely.
type PassResult struct {
	Ops   []any
	Kw    []KV
	Value any
	done  bool
}

// Continue hands the operands to the next pass.
func Continue(ops []any, kw []KV) PassResult {
	return PassResult{Ops: ops, Kw: kw}
}

// Done aborts the pipeline and yields v as the constructed value.
func Done(v any) PassResult {
	return PassResult{Value: v, done: true}
}

// Pass is one step of an operation type's construction pipeline.
type Pass func(t *OpType, ops []any, kw []KV) (PassResult, error)

// OpType is the capability descriptor of one operation type: its head
// tag, the ordered simplification passes run on construction, the
// rewrite tables those passes consult, and the structural callbacks
// the passes dispatch on. Fields a type does not need stay nil.
type OpType struct {
	HeadTag string

	Passes      []Pass
	Rules       *RuleTable
	BinaryRules *RuleTable

	// Neutral returns the operation's neutral element, used by
	// FilterNeutral and by the binary reducer's cancellation step.
	Neutral func() any

	// Less orders operands for OrderBy. It must be consistent with
	// a strict weak ordering; ties keep input order.
	Less func(a, b any) bool

	// Build constructs the final node once all passes have run.
	Build func(ops []any, kw []KV) (any, error)
}

// Create runs the construction pipeline: each pass in order, then
// Build, then interning. A pass returning Done short-circuits with
// its value, so rewrites can collapse an operation to something of a
// different type (a sum of one term, a product that cancels to a
// scalar multiple of identity).
func (t *OpType) Create(ops []any, kw []KV) (any, error) {
	for _, pass := range t.Passes {
		res, err := pass(t, ops, kw)
		if err != nil {
			return nil, err
		}
		if res.done {
			return res.Value, nil
		}
		ops, kw = res.Ops, res.Kw
	}
	if t.Build == nil {
		return nil, fmt.Errorf("expr: type %s has no builder", t.HeadTag)
	}
	v, err := t.Build(ops, kw)
	if err != nil {
		return nil, err
	}
	if n, ok := v.(Node); ok {
		return Intern(n), nil
	}
	return v, nil
}

// Assoc flattens operands of the same operation type into the outer
// operand list.
func Assoc(t *OpType, ops []any, kw []KV) (PassResult, error) {
	flat := make([]any, 0, len(ops))
	for _, op := range ops {
		if n, ok := op.(Node); ok && n.Head() == t.HeadTag {
			flat = append(flat, n.Args()...)
			continue
		}
		flat = append(flat, op)
	}
	return Continue(flat, kw), nil
}

// Idem removes adjacent duplicate operands after ordering, so that
// idempotent operations keep a single copy of each operand.
func Idem(t *OpType, ops []any, kw []KV) (PassResult, error) {
	out := make([]any, 0, len(ops))
	for _, op := range ops {
		if len(out) > 0 && Equal(out[len(out)-1], op) {
			continue
		}
		out = append(out, op)
	}
	return Continue(out, kw), nil
}

// OrderBy stably sorts the operands with the type's comparator.
// Stability matters: operands the comparator cannot distinguish (in
// particular non-commuting factors on the same space) keep their
// input order.
func OrderBy(t *OpType, ops []any, kw []KV) (PassResult, error) {
	if t.Less == nil {
		return Continue(ops, kw), nil
	}
	sorted := make([]any, len(ops))
	copy(sorted, ops)
	SortStable(sorted, t.Less)
	return Continue(sorted, kw), nil
}

// FilterNeutral drops operands equal to the type's neutral element.
// An empty result collapses to the neutral element itself; a single
// survivor is returned unwrapped.
func FilterNeutral(t *OpType, ops []any, kw []KV) (PassResult, error) {
	if t.Neutral == nil {
		return Continue(ops, kw), nil
	}
	neutral := t.Neutral()
	kept := make([]any, 0, len(ops))
	for _, op := range ops {
		if Equal(op, neutral) {
			continue
		}
		kept = append(kept, op)
	}
	switch len(kept) {
	case 0:
		return Done(neutral), nil
	case 1:
		return Done(kept[0]), nil
	}
	return Continue(kept, kw), nil
}

// MatchReplace applies the type's rule table to the full operand
// list. The first rule that fires ends construction with its
// replacement; rules that want construction to continue rebuild via
// the type's Create, which terminates because replacements are
// strictly simpler.
func MatchReplace(t *OpType, ops []any, kw []KV) (PassResult, error) {
	if t.Rules == nil {
		return Continue(ops, kw), nil
	}
	proto := &ProtoExpr{Ops: ops, Kw: kw}
	repl, ok, err := t.Rules.Apply(t.HeadTag, proto)
	if err != nil {
		return PassResult{}, err
	}
	if ok {
		return Done(repl), nil
	}
	return Continue(ops, kw), nil
}
