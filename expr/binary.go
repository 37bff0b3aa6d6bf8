package expr

// MatchReplaceBinary simplifies the operand list with the type's
// binary rule table until no adjacent pair matches any rule. The list
// is halved recursively, each half reduced, and the halves merged by
// rewriting pairs across the boundary, so a chain of n operands costs
// O(n log n) pair checks instead of repeated full scans.
func MatchReplaceBinary(t *OpType, ops []any, kw []KV) (PassResult, error) {
	if t.BinaryRules == nil {
		return Continue(ops, kw), nil
	}
	reduced, err := reduceBinary(t, ops)
	if err != nil {
		return PassResult{}, err
	}
	if t.Neutral != nil {
		switch len(reduced) {
		case 0:
			return Done(t.Neutral()), nil
		case 1:
			return Done(reduced[0]), nil
		}
	}
	return Continue(reduced, kw), nil
}

func reduceBinary(t *OpType, ops []any) ([]any, error) {
	if len(ops) <= 1 {
		return ops, nil
	}
	mid := len(ops) / 2
	left, err := reduceBinary(t, ops[:mid])
	if err != nil {
		return nil, err
	}
	right, err := reduceBinary(t, ops[mid:])
	if err != nil {
		return nil, err
	}
	return mergeBinary(t, left, right)
}

// mergeBinary combines two fully reduced lists. Only the boundary
// pair can match a rule; its replacement may cancel to the neutral
// element (dropping both sides), splice as operands of the same type,
// or stand as a single new operand, and each case re-exposes a fresh
// boundary that is merged again.
func mergeBinary(t *OpType, a, b []any) ([]any, error) {
	if len(a) == 0 || len(b) == 0 {
		return concat(a, b), nil
	}
	repl, ok, err := t.BinaryRules.Apply(t.HeadTag,
		&ProtoExpr{Ops: []any{a[len(a)-1], b[0]}})
	if err != nil {
		return nil, err
	}
	if !ok {
		return concat(a, b), nil
	}
	if t.Neutral != nil && Equal(repl, t.Neutral()) {
		return mergeBinary(t, a[:len(a)-1], b[1:])
	}
	var mid []any
	if n, isNode := repl.(Node); isNode && n.Head() == t.HeadTag {
		mid = n.Args()
	} else {
		mid = []any{repl}
	}
	left, err := mergeBinary(t, a[:len(a)-1], mid)
	if err != nil {
		return nil, err
	}
	return mergeBinary(t, left, b[1:])
}

func concat(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
