// Package expr is the expression-rewriting core: canonical node
// identity and ordering, wildcard pattern matching, ordered rule
// tables, the create simplification pipeline, and the binary pairwise
// reducer for large associative operand lists.
//
// Nodes are immutable trees identified by (head, positional arguments,
// keyword arguments). Every node built through an OpType's Create path
// is interned by its canonical key, so repeated construction of an
// identical node yields the same value.
//
// Simplification passes strictly reduce or preserve operand counts, so
// pipelines terminate for well-formed rule sets. A rule set whose
// replacements re-grow what another rule shrinks can loop; that risk
// lies with the rule author. Deeply nested trees are simplified
// recursively and can exhaust the stack for pathological inputs.
package expr

import (
	"errors"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrCannotSimplify is the control-flow signal raised by a rule's
// replacement to say "this rule matched the shape but declines to
// produce a replacement". The rewriter treats it as "try next rule".
var ErrCannotSimplify = errors.New("expr: cannot simplify")

// KV is a single keyword argument. Keyword arguments are kept as
// ordered slices, never Go maps, so that node identity and iteration
// are deterministic.
type KV struct {
	Key string
	Val any
}

// Kw builds a keyword-argument list.
func Kw(pairs ...KV) []KV { return pairs }

// Node is an immutable expression tree node.
type Node interface {
	// Head is the type tag of the node ("OperatorPlus", "Destroy", ...).
	Head() string
	// Args are the positional operands.
	Args() []any
	// Kwargs are the keyword operands, in canonical order.
	Kwargs() []KV
	// Key is the canonical identity of the node; two nodes are
	// structurally equal iff their keys are equal.
	Key() string
	// OrderKey is the recursive sort key used for canonical ordering
	// of commutative operands.
	OrderKey() KeyTuple
}

// Keyer is anything with a canonical identity key. Scalars, Hilbert
// spaces and index ranges satisfy it alongside Node.
type Keyer interface {
	Key() string
}

// KeyOf returns the canonical identity string for any operand value.
func KeyOf(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case Keyer:
		return x.Key()
	case string:
		return strconv.Quote(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return reflect.TypeOf(v).String() + "#?"
	}
}

// MakeKey builds the canonical key for a node from its identity
// triple. All node implementations must use it.
func MakeKey(head string, args []any, kw []KV) string {
	var b strings.Builder
	b.WriteString(head)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(KeyOf(a))
	}
	for i, pair := range sortedKw(kw) {
		if i > 0 || len(args) > 0 {
			b.WriteByte(',')
		}
		b.WriteString(pair.Key)
		b.WriteByte('=')
		b.WriteString(KeyOf(pair.Val))
	}
	b.WriteByte(')')
	return b.String()
}

func sortedKw(kw []KV) []KV {
	if len(kw) < 2 {
		return kw
	}
	out := append([]KV(nil), kw...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Equal reports structural equality between two operand values.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ka, aIsKeyer := a.(Keyer)
	kb, bIsKeyer := b.(Keyer)
	if aIsKeyer && bIsKeyer {
		return ka.Key() == kb.Key()
	}
	if aIsKeyer != bIsKeyer {
		return false
	}
	return reflect.DeepEqual(a, b)
}

var (
	internMu sync.RWMutex
	interned = map[string]Node{}
)

// Intern returns the canonical instance for a node: the cached node
// with the same key if one exists, else the argument after caching it.
func Intern(n Node) Node {
	key := n.Key()
	internMu.RLock()
	cached, ok := interned[key]
	internMu.RUnlock()
	if ok {
		return cached
	}
	internMu.Lock()
	defer internMu.Unlock()
	if cached, ok := interned[key]; ok {
		return cached
	}
	interned[key] = n
	return n
}

// ProtoExpr is the raw (operand-list, keyword-list) view of a node
// under construction. Rule matching runs against it before the final
// node exists.
type ProtoExpr struct {
	Ops []any
	Kw  []KV
}

// protoView extracts the raw operand view from a candidate, whether
// it is a proto-expression or an already-constructed node.
func protoView(v any) (ops []any, kw []KV, ok bool) {
	switch x := v.(type) {
	case *ProtoExpr:
		return x.Ops, x.Kw, true
	case Node:
		return x.Args(), x.Kwargs(), true
	}
	return nil, nil, false
}

// LookupKw finds a keyword argument by key.
func LookupKw(kw []KV, key string) (any, bool) {
	for _, pair := range kw {
		if pair.Key == key {
			return pair.Val, true
		}
	}
	return nil, false
}

// CreateFunc builds an algebra node from raw operands, running the
// owning type's simplification pipeline.
type CreateFunc func(ops []any, kw []KV) (any, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]CreateFunc{}
)

// RegisterCreate registers the canonical constructor for a head tag,
// making the type reachable from proto-expressions supplied by
// external collaborators (parsers, services).
func RegisterCreate(head string, fn CreateFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[head] = fn
}

// CreateByHead dispatches a proto-expression to the registered
// constructor for its head tag.
func CreateByHead(head string, ops []any, kw []KV) (any, error) {
	registryMu.RLock()
	fn, ok := registry[head]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.New("expr: no registered type with head " + head)
	}
	return fn(ops, kw)
}
