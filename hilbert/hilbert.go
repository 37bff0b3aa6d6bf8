// Package hilbert models the Hilbert spaces that quantum expressions
// act on. A space is a tag (a LocalSpace) or a product of tags; it
// decides which expressions may be combined and whether two factors
// act on disjoint degrees of freedom.
package hilbert

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrBasisNotSet is returned when an operation needs a concrete basis
// on a space that has none. Callers that can tolerate an unknown basis
// should degrade to a symbolic result instead of propagating it.
var ErrBasisNotSet = errors.New("hilbert: basis not set")

// Space is a Hilbert space: the trivial space, a single local degree
// of freedom, a product of local degrees of freedom, or the full space.
type Space interface {
	// Locals returns the local factors, sorted by label. It is empty
	// for the trivial space and nil for the full space.
	Locals() []*LocalSpace

	// Key is the canonical identity of the space. Two spaces are equal
	// iff their keys are equal.
	Key() string

	IsTrivial() bool
	IsFull() bool

	// Dimension returns the product of the factor dimensions. It
	// returns ErrBasisNotSet if any factor has unknown dimension.
	Dimension() (int, error)
}

// LocalSpace is a single local degree of freedom, identified by a
// label and optionally carrying a dimension and basis labels.
// Instances are interned: constructing the same signature twice
// returns the same pointer.
type LocalSpace struct {
	label     string
	dimension int // 0 = unknown
	basis     []string
	key       string
}

// LocalOption configures a LocalSpace under construction.
type LocalOption func(*LocalSpace)

// WithDimension fixes the dimension of the space without naming basis
// states.
func WithDimension(n int) LocalOption {
	return func(ls *LocalSpace) {
		ls.dimension = n
	}
}

// WithBasis names the basis states of the space, fixing its dimension.
func WithBasis(labels ...string) LocalOption {
	return func(ls *LocalSpace) {
		ls.basis = append([]string(nil), labels...)
		ls.dimension = len(labels)
	}
}

var (
	localMu    sync.Mutex
	localCache = map[string]*LocalSpace{}
)

// NewLocal returns the local space with the given label. A label may
// be any non-empty string; integer tags from the physics notation
// ("hs=1") are passed as their decimal string.
func NewLocal(label string, opts ...LocalOption) *LocalSpace {
	ls := &LocalSpace{label: label}
	for _, opt := range opts {
		opt(ls)
	}
	var b strings.Builder
	b.WriteString("LocalSpace(")
	b.WriteString(strconv.Quote(label))
	if len(ls.basis) > 0 {
		b.WriteString(",basis=")
		b.WriteString(strings.Join(ls.basis, "|"))
	} else if ls.dimension > 0 {
		b.WriteString(",dimension=")
		b.WriteString(strconv.Itoa(ls.dimension))
	}
	b.WriteString(")")
	ls.key = b.String()

	localMu.Lock()
	defer localMu.Unlock()
	if cached, ok := localCache[ls.key]; ok {
		return cached
	}
	localCache[ls.key] = ls
	return ls
}

// NewLocalInt is shorthand for NewLocal with a numeric tag.
func NewLocalInt(tag int, opts ...LocalOption) *LocalSpace {
	return NewLocal(strconv.Itoa(tag), opts...)
}

func (ls *LocalSpace) Label() string        { return ls.label }
func (ls *LocalSpace) Key() string          { return ls.key }
func (ls *LocalSpace) Locals() []*LocalSpace { return []*LocalSpace{ls} }
func (ls *LocalSpace) IsTrivial() bool      { return false }
func (ls *LocalSpace) IsFull() bool         { return false }
func (ls *LocalSpace) String() string       { return ls.key }

// HasBasis reports whether basis labels are defined for the space.
func (ls *LocalSpace) HasBasis() bool { return len(ls.basis) > 0 }

func (ls *LocalSpace) Dimension() (int, error) {
	if ls.dimension == 0 {
		return 0, fmt.Errorf("dimension of %s: %w", ls.key, ErrBasisNotSet)
	}
	return ls.dimension, nil
}

// BasisLabels returns the basis labels, or ErrBasisNotSet.
func (ls *LocalSpace) BasisLabels() ([]string, error) {
	if len(ls.basis) == 0 {
		return nil, fmt.Errorf("basis of %s: %w", ls.key, ErrBasisNotSet)
	}
	return ls.basis, nil
}

// IndexOfLabel resolves a basis label to its zero-based index.
func (ls *LocalSpace) IndexOfLabel(label string) (int, error) {
	labels, err := ls.BasisLabels()
	if err != nil {
		return 0, err
	}
	for i, l := range labels {
		if l == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("label %q not in basis of %s", label, ls.key)
}

// LabelOfIndex returns the basis label for a zero-based index. Without
// a basis the decimal index itself serves as the label.
func (ls *LocalSpace) LabelOfIndex(ind int) (string, error) {
	if ind < 0 {
		return "", fmt.Errorf("index %d must be >= 0", ind)
	}
	if len(ls.basis) > 0 {
		if ind >= len(ls.basis) {
			return "", fmt.Errorf(
				"index %d must be < the dimension %d of %s",
				ind, len(ls.basis), ls.key)
		}
		return ls.basis[ind], nil
	}
	if ls.dimension > 0 && ind >= ls.dimension {
		return "", fmt.Errorf(
			"index %d must be < the dimension %d of %s",
			ind, ls.dimension, ls.key)
	}
	return strconv.Itoa(ind), nil
}

// InRange reports whether a zero-based basis index lies inside the
// space. With unknown dimension every non-negative index is in range.
func (ls *LocalSpace) InRange(ind int) bool {
	if ind < 0 {
		return false
	}
	return ls.dimension == 0 || ind < ls.dimension
}

type trivialSpace struct{}
type fullSpace struct{}

// TrivialSpace is the neutral element of the space product: the space
// of expressions that act on no degree of freedom.
var TrivialSpace Space = trivialSpace{}

// FullSpace contains every other space. It is the space of expressions
// valid on any degree of freedom, such as the zero state.
var FullSpace Space = fullSpace{}

func (trivialSpace) Locals() []*LocalSpace  { return []*LocalSpace{} }
func (trivialSpace) Key() string            { return "TrivialSpace" }
func (trivialSpace) IsTrivial() bool        { return true }
func (trivialSpace) IsFull() bool           { return false }
func (trivialSpace) Dimension() (int, error) { return 1, nil }
func (trivialSpace) String() string         { return "TrivialSpace" }

func (fullSpace) Locals() []*LocalSpace { return nil }
func (fullSpace) Key() string           { return "FullSpace" }
func (fullSpace) IsTrivial() bool       { return false }
func (fullSpace) IsFull() bool          { return true }
func (fullSpace) Dimension() (int, error) {
	return 0, fmt.Errorf("dimension of FullSpace: %w", ErrBasisNotSet)
}
func (fullSpace) String() string { return "FullSpace" }

// productSpace is a product of two or more distinct local spaces.
type productSpace struct {
	locals []*LocalSpace
	key    string
}

func (ps *productSpace) Locals() []*LocalSpace { return ps.locals }
func (ps *productSpace) Key() string           { return ps.key }
func (ps *productSpace) IsTrivial() bool       { return false }
func (ps *productSpace) IsFull() bool          { return false }
func (ps *productSpace) String() string        { return ps.key }

func (ps *productSpace) Dimension() (int, error) {
	dim := 1
	for _, ls := range ps.locals {
		d, err := ls.Dimension()
		if err != nil {
			return 0, err
		}
		dim *= d
	}
	return dim, nil
}

// ProductOf returns the smallest space containing all given spaces.
// Duplicate factors are merged; the trivial space is dropped; the full
// space absorbs everything.
func ProductOf(spaces ...Space) Space {
	seen := map[string]*LocalSpace{}
	for _, s := range spaces {
		if s.IsFull() {
			return FullSpace
		}
		for _, ls := range s.Locals() {
			seen[ls.Key()] = ls
		}
	}
	if len(seen) == 0 {
		return TrivialSpace
	}
	locals := make([]*LocalSpace, 0, len(seen))
	for _, ls := range seen {
		locals = append(locals, ls)
	}
	sort.Slice(locals, func(i, j int) bool {
		return localLess(locals[i], locals[j])
	})
	if len(locals) == 1 {
		return locals[0]
	}
	keys := make([]string, len(locals))
	for i, ls := range locals {
		keys[i] = ls.Key()
	}
	return &productSpace{
		locals: locals,
		key:    "ProductSpace(" + strings.Join(keys, ",") + ")",
	}
}

// Equal reports whether two spaces are the same space.
func Equal(a, b Space) bool { return a.Key() == b.Key() }

// Disjoint reports whether two spaces share no local factor. The full
// space is disjoint only from the trivial space.
func Disjoint(a, b Space) bool {
	if a.IsFull() {
		return b.IsTrivial()
	}
	if b.IsFull() {
		return a.IsTrivial()
	}
	inA := map[string]bool{}
	for _, ls := range a.Locals() {
		inA[ls.Key()] = true
	}
	for _, ls := range b.Locals() {
		if inA[ls.Key()] {
			return false
		}
	}
	return true
}

// Contains reports whether a contains b (a >= b).
func Contains(a, b Space) bool {
	if a.IsFull() || b.IsTrivial() {
		return true
	}
	if b.IsFull() {
		return false
	}
	inA := map[string]bool{}
	for _, ls := range a.Locals() {
		inA[ls.Key()] = true
	}
	for _, ls := range b.Locals() {
		if !inA[ls.Key()] {
			return false
		}
	}
	return true
}

// Intersect returns the largest space contained in both a and b.
func Intersect(a, b Space) Space {
	if a.IsFull() {
		return b
	}
	if b.IsFull() {
		return a
	}
	inB := map[string]bool{}
	for _, ls := range b.Locals() {
		inB[ls.Key()] = true
	}
	var common []Space
	for _, ls := range a.Locals() {
		if inB[ls.Key()] {
			common = append(common, ls)
		}
	}
	return ProductOf(common...)
}

// Less is a deterministic total order over spaces, used when sorting
// commuting operands by the space they act on. The trivial space sorts
// first and the full space last.
func Less(a, b Space) bool {
	ra, rb := spaceRank(a), spaceRank(b)
	if ra != rb {
		return ra < rb
	}
	la, lb := a.Locals(), b.Locals()
	for i := 0; i < len(la) && i < len(lb); i++ {
		if la[i].Key() != lb[i].Key() {
			return localLess(la[i], lb[i])
		}
	}
	return len(la) < len(lb)
}

func spaceRank(s Space) int {
	switch {
	case s.IsTrivial():
		return 0
	case s.IsFull():
		return 2
	default:
		return 1
	}
}

// localLess orders local spaces by label, comparing numeric labels
// numerically so that "2" sorts before "10".
func localLess(a, b *LocalSpace) bool {
	na, errA := strconv.Atoi(a.label)
	nb, errB := strconv.Atoi(b.label)
	if errA == nil && errB == nil {
		if na != nb {
			return na < nb
		}
		return a.key < b.key
	}
	if errA == nil {
		return true
	}
	if errB == nil {
		return false
	}
	if a.label != b.label {
		return a.label < b.label
	}
	return a.key < b.key
}
