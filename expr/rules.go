package expr

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// Replacer builds a replacement value from the bindings of a
// successful pattern match. Returning ErrCannotSimplify declines the
// rewrite; any other error aborts construction.
type Replacer func(b Bindings) (any, error)

// Rule is a named pattern-to-replacement rewrite.
type Rule struct {
	Name    string
	Pattern *Pattern
	Replace Replacer
}

// RuleTable is an ordered list of rules attached to an operation
// type. Rules are applied first to last; order is semantic.
type RuleTable struct {
	mu       sync.RWMutex
	rules    []Rule
	disabled map[string]bool
}

// NewRuleTable returns a table holding the given rules in order.
func NewRuleTable(rules ...Rule) *RuleTable {
	return &RuleTable{rules: rules}
}

// Names returns the rule names in application order.
func (t *RuleTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.rules))
	for _, r := range t.rules {
		names = append(names, r.Name)
	}
	return names
}

// SetDisabled turns a named rule off or on. Unknown names are
// ignored so configuration can carry rules for types that are not
// loaded.
func (t *RuleTable) SetDisabled(name string, off bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disabled == nil {
		t.disabled = map[string]bool{}
	}
	t.disabled[name] = off
}

// Add appends rules permanently.
func (t *RuleTable) Add(rules ...Rule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, rules...)
}

// PushExtra appends rules for a bounded scope and returns the restore
// function that removes them. Callers defer the restore so that
// temporary rule sets cannot leak past a panic.
func (t *RuleTable) PushExtra(rules ...Rule) (restore func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.rules)
	t.rules = append(t.rules, rules...)
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.rules = t.rules[:n]
	}
}

// WithExtraRules runs fn with the extra rules active and removes
// them again on every exit path.
func (t *RuleTable) WithExtraRules(rules []Rule, fn func() error) error {
	restore := t.PushExtra(rules...)
	defer restore()
	return fn()
}

// snapshot returns the active rules under the read lock.
func (t *RuleTable) snapshot() []Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Rule, 0, len(t.rules))
	for _, r := range t.rules {
		if t.disabled[r.Name] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Apply tries each active rule against the candidate in order and
// returns the first replacement, with ok=false when no rule fired.
// The candidate is typically a *ProtoExpr during construction.
func (t *RuleTable) Apply(head string, candidate any) (any, bool, error) {
	for _, r := range t.snapshot() {
		res := Match(r.Pattern, candidate)
		if !res.OK() {
			log.Trace().
				Str("head", head).
				Str("rule", r.Name).
				Str("reason", res.Reason()).
				Msg("rule did not match")
			continue
		}
		repl, err := r.Replace(res.Bindings())
		if err != nil {
			if errors.Is(err, ErrCannotSimplify) {
				log.Trace().
					Str("head", head).
					Str("rule", r.Name).
					Msg("rule declined")
				continue
			}
			return nil, false, err
		}
		log.Debug().
			Str("head", head).
			Str("rule", r.Name).
			Str("result", KeyOf(repl)).
			Msg("rule applied")
		return repl, true, nil
	}
	return nil, false, nil
}
