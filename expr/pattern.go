package expr

import (
	"fmt"
	"strings"
)

// Class is a capability class that wildcard constraints dispatch on:
// a named membership predicate, registered explicitly per algebra
// instead of probing runtime types.
type Class struct {
	Name   string
	Member func(any) bool
}

// Pattern describes an expected node shape: a head tag (or a set of
// tags, or the raw proto view), fixed sub-patterns for positional and
// keyword slots, and named wildcards that bind matched sub-expressions.
type Pattern struct {
	wildcard string
	class    *Class
	cond     func(any) bool
	condName string

	heads []string
	proto bool
	args  []any
	kw    []KV
}

// WcOpt constrains a wildcard.
type WcOpt func(*Pattern)

// OfClass restricts a wildcard to members of a capability class.
func OfClass(c Class) WcOpt {
	return func(p *Pattern) { p.class = &c }
}

// OfHead restricts a wildcard to nodes with one of the given head tags.
func OfHead(heads ...string) WcOpt {
	return func(p *Pattern) { p.heads = heads }
}

// Cond adds a named filter predicate to a wildcard.
func Cond(name string, f func(any) bool) WcOpt {
	return func(p *Pattern) {
		p.cond = f
		p.condName = name
	}
}

// Wc returns a named wildcard pattern. The same name appearing twice
// in one pattern must bind to equal values for the match to succeed.
func Wc(name string, opts ...WcOpt) *Pattern {
	p := &Pattern{wildcard: name}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pat returns a pattern matching nodes with the given head tag and
// positional sub-patterns.
func Pat(head string, args ...any) *Pattern {
	return &Pattern{heads: []string{head}, args: args}
}

// PatAny is Pat over a set of acceptable head tags.
func PatAny(heads []string, args ...any) *Pattern {
	return &Pattern{heads: heads, args: args}
}

// PatHead returns a pattern matching the raw operand view of a
// proto-expression (or finished node) regardless of its head. Rule
// tables use it to match candidates during construction, before the
// node exists.
func PatHead(args ...any) *Pattern {
	return &Pattern{proto: true, args: args}
}

// WithKw adds keyword sub-patterns.
func (p *Pattern) WithKw(kw ...KV) *Pattern {
	q := *p
	q.kw = kw
	return &q
}

// Bindings maps wildcard names to the values they matched.
type Bindings map[string]any

// MatchResult is the outcome of a match: either a binding map, or a
// structured failure with a human-readable reason. A failed match is
// not an error.
type MatchResult struct {
	bindings Bindings
	reason   string
	ok       bool
}

// OK reports whether the match succeeded.
func (m MatchResult) OK() bool { return m.ok }

// Bindings returns the wildcard bindings of a successful match.
func (m MatchResult) Bindings() Bindings { return m.bindings }

// Reason describes why the match failed.
func (m MatchResult) Reason() string { return m.reason }

func matched(b Bindings) MatchResult {
	if b == nil {
		b = Bindings{}
	}
	return MatchResult{bindings: b, ok: true}
}

func noMatch(format string, args ...any) MatchResult {
	return MatchResult{reason: fmt.Sprintf(format, args...)}
}

// Match matches a candidate value against a pattern. A non-Pattern
// pattern value matches iff the candidate equals it.
func Match(pattern, candidate any) MatchResult {
	p, isPattern := pattern.(*Pattern)
	if !isPattern {
		if Equal(pattern, candidate) {
			return matched(nil)
		}
		return noMatch("%s does not equal %s",
			KeyOf(candidate), KeyOf(pattern))
	}
	if p.wildcard != "" {
		return p.matchWildcard(candidate)
	}
	if p.proto {
		ops, kw, ok := protoView(candidate)
		if !ok {
			return noMatch("wrong type: %T has no operand view", candidate)
		}
		return p.matchOperands(ops, kw)
	}
	n, ok := candidate.(Node)
	if !ok {
		return noMatch("wrong type: %T is not an expression node", candidate)
	}
	if !headAllowed(p.heads, n.Head()) {
		return noMatch("wrong type: head %s not in {%s}",
			n.Head(), strings.Join(p.heads, ","))
	}
	return p.matchOperands(n.Args(), n.Kwargs())
}

func (p *Pattern) matchWildcard(candidate any) MatchResult {
	if p.class != nil && !p.class.Member(candidate) {
		return noMatch("head mismatch: %s is not a %s",
			KeyOf(candidate), p.class.Name)
	}
	if len(p.heads) > 0 {
		n, ok := candidate.(Node)
		if !ok || !headAllowed(p.heads, n.Head()) {
			return noMatch("head mismatch: %s is not one of {%s}",
				KeyOf(candidate), strings.Join(p.heads, ","))
		}
	}
	if p.cond != nil && !p.cond(candidate) {
		return noMatch("condition %s not met for %s",
			p.condName, KeyOf(candidate))
	}
	return matched(Bindings{p.wildcard: candidate})
}

func (p *Pattern) matchOperands(ops []any, kw []KV) MatchResult {
	if len(ops) != len(p.args) {
		return noMatch("wrong number of operands: %d != %d",
			len(ops), len(p.args))
	}
	bindings := Bindings{}
	for i, sub := range p.args {
		res := Match(sub, ops[i])
		if !res.ok {
			return noMatch("sub-pattern mismatch at position %d: %s",
				i, res.reason)
		}
		if conflict, name := mergeBindings(bindings, res.bindings); conflict {
			return noMatch("inconsistent binding for wildcard %s", name)
		}
	}
	for _, pair := range p.kw {
		val, ok := LookupKw(kw, pair.Key)
		if !ok {
			return noMatch("no keyword argument %s", pair.Key)
		}
		res := Match(pair.Val, val)
		if !res.ok {
			return noMatch("sub-pattern mismatch at key %s: %s",
				pair.Key, res.reason)
		}
		if conflict, name := mergeBindings(bindings, res.bindings); conflict {
			return noMatch("inconsistent binding for wildcard %s", name)
		}
	}
	return matched(bindings)
}

// mergeBindings folds src into dst; a wildcard bound to two non-equal
// values is a conflict.
func mergeBindings(dst, src Bindings) (conflict bool, name string) {
	for k, v := range src {
		if prev, ok := dst[k]; ok && !Equal(prev, v) {
			return true, k
		}
		dst[k] = v
	}
	return false, ""
}

func headAllowed(heads []string, head string) bool {
	for _, h := range heads {
		if h == head {
			return true
		}
	}
	return false
}
