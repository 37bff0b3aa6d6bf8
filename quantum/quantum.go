// Package quantum holds the shared layer of the algebraic type
// hierarchy: the quantum expression interface, the per-algebra
// capability table, generic arithmetic over that table, the two
// Hilbert-space-aware operand orderings, and indexed sums. The
// concrete algebras (operator, state, superop) register themselves
// here and inherit all generic behavior.
package quantum

import (
	"errors"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/scalar"
)

var (
	// ErrUnsupported marks operations the algebra deliberately
	// refuses, like adding two indexed sums.
	ErrUnsupported = errors.New("quantum: unsupported operation")

	// ErrUnequalSpaces marks arithmetic that requires operands on the
	// same Hilbert space.
	ErrUnequalSpaces = errors.New("quantum: operands on unequal Hilbert spaces")

	// ErrOverlappingSpaces marks constructions that require disjoint
	// Hilbert spaces.
	ErrOverlappingSpaces = errors.New("quantum: operands on overlapping Hilbert spaces")

	// ErrSpaceTooLarge marks an operand whose space exceeds the space
	// the operation acts on.
	ErrSpaceTooLarge = errors.New("quantum: operand space too large")

	// ErrMixedAlgebras marks arithmetic between members of different
	// algebras without a defined product.
	ErrMixedAlgebras = errors.New("quantum: operands from different algebras")
)

// Expr is a Hilbert-space-aware expression node. Everything an
// algebra builds satisfies it.
type Expr interface {
	expr.Node

	// Space is the Hilbert space the expression acts on, derived
	// from the operands.
	Space() hilbert.Space

	// AlgebraRef is the capability table of the owning algebra.
	AlgebraRef() *Algebra

	// Adjoint is the Hermitian conjugate.
	Adjoint() (Expr, error)
}

// Algebra is the capability table of one concrete algebra. Generic
// arithmetic and the simplification passes dispatch through it
// instead of through a type hierarchy. Fields an algebra does not
// support stay nil and yield ErrUnsupported.
type Algebra struct {
	Name string

	// IsMember reports whether a value belongs to this algebra.
	IsMember func(v any) bool

	// Zero and One return the canonical zero and neutral elements.
	// They construct lazily on first call and always return the
	// interned instance.
	Zero func() Expr
	One  func() Expr

	// Dagger overrides the adjoint of every composite node of the
	// algebra. The state algebra sets it so that the adjoint of any
	// ket, however composite, is the bra wrapping it. When nil, the
	// nodes compute their adjoint structurally.
	Dagger func(e Expr) (Expr, error)

	Plus        *expr.OpType
	Times       *expr.OpType
	ScalarTimes *expr.OpType
	Adjoint     *expr.OpType
	IndexedSum  *expr.OpType
}

// AlgebraOf returns the capability table governing a value, or nil
// for plain scalars and non-quantum operands.
func AlgebraOf(v any) *Algebra {
	if q, ok := v.(Expr); ok {
		return q.AlgebraRef()
	}
	return nil
}

// SpaceOf returns the Hilbert space of any operand; non-quantum
// operands (scalars, labels) live on the trivial space.
func SpaceOf(v any) hilbert.Space {
	if q, ok := v.(Expr); ok {
		return q.Space()
	}
	return hilbert.TrivialSpace
}

// SpaceOfAll is the product space spanned by a list of operands.
func SpaceOfAll(ops []any) hilbert.Space {
	spaces := make([]hilbert.Space, 0, len(ops))
	for _, op := range ops {
		spaces = append(spaces, SpaceOf(op))
	}
	return hilbert.ProductOf(spaces...)
}

// AsScalar converts an operand to a Scalar when possible.
func AsScalar(v any) (scalar.Scalar, bool) {
	switch x := v.(type) {
	case scalar.Scalar:
		return x, true
	case int:
		return scalar.Int(int64(x)), true
	case int64:
		return scalar.Int(x), true
	}
	return nil, false
}

// IsScalar reports whether an operand is treated as a scalar
// coefficient rather than an algebra member.
func IsScalar(v any) bool {
	_, ok := AsScalar(v)
	return ok
}
