package quantum

import (
	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
)

// FullCommutativeLess orders the operands of fully commutative
// operations (sums): first by Hilbert space, then by recursive order
// key, giving the canonical deterministic term order.
func FullCommutativeLess(a, b any) bool {
	sa, sb := SpaceOf(a), SpaceOf(b)
	if !hilbert.Equal(sa, sb) {
		return hilbert.Less(sa, sb)
	}
	return expr.LessByOrderKey(a, b)
}

// DisjunctCommutativeLess orders the operands of products, where
// factors commute only across disjoint Hilbert spaces. Factors
// sharing any space compare as unordered, so a stable sort never
// moves one past the other; factors on disjoint spaces order by
// space.
//
// This is a partial order, not a strict weak ordering. Stable sorting
// with it canonicalizes the commuting rearrangements while keeping
// every non-commuting adjacency intact.
func DisjunctCommutativeLess(a, b any) bool {
	sa, sb := SpaceOf(a), SpaceOf(b)
	if !hilbert.Disjoint(sa, sb) {
		return false
	}
	if hilbert.Equal(sa, sb) {
		// Both trivial. Freely interchangeable, order by key.
		return expr.LessByOrderKey(a, b)
	}
	return hilbert.Less(sa, sb)
}
