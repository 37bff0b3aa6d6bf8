package hilbert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSpaceInterning(t *testing.T) {
	assert.Same(t, NewLocalInt(1), NewLocal("1"))
	assert.Same(t, NewLocalInt(1, WithDimension(3)), NewLocalInt(1, WithDimension(3)))
	assert.NotSame(t, NewLocalInt(1), NewLocalInt(1, WithDimension(3)))
	assert.NotSame(t, NewLocalInt(1), NewLocalInt(2))
}

func TestLocalSpaceBasis(t *testing.T) {
	t.Run("unknown dimension", func(t *testing.T) {
		hs := NewLocal("mode")
		_, err := hs.Dimension()
		assert.ErrorIs(t, err, ErrBasisNotSet)
		assert.False(t, hs.HasBasis())
		assert.True(t, hs.InRange(1000))
		assert.False(t, hs.InRange(-1))
		lbl, err := hs.LabelOfIndex(7)
		require.NoError(t, err)
		assert.Equal(t, "7", lbl)
	})

	t.Run("dimension without labels", func(t *testing.T) {
		hs := NewLocal("qubit", WithDimension(2))
		d, err := hs.Dimension()
		require.NoError(t, err)
		assert.Equal(t, 2, d)
		assert.True(t, hs.InRange(1))
		assert.False(t, hs.InRange(2))
		_, err = hs.LabelOfIndex(2)
		assert.Error(t, err)
		_, err = hs.BasisLabels()
		assert.ErrorIs(t, err, ErrBasisNotSet)
	})

	t.Run("named basis", func(t *testing.T) {
		hs := NewLocal("atom", WithBasis("g", "e"))
		d, err := hs.Dimension()
		require.NoError(t, err)
		assert.Equal(t, 2, d)
		assert.True(t, hs.HasBasis())

		i, err := hs.IndexOfLabel("e")
		require.NoError(t, err)
		assert.Equal(t, 1, i)
		_, err = hs.IndexOfLabel("f")
		assert.Error(t, err)

		lbl, err := hs.LabelOfIndex(0)
		require.NoError(t, err)
		assert.Equal(t, "g", lbl)
		_, err = hs.LabelOfIndex(-1)
		assert.Error(t, err)
	})
}

func TestProductOf(t *testing.T) {
	h1, h2 := NewLocalInt(1), NewLocalInt(2)

	t.Run("merges and sorts factors", func(t *testing.T) {
		p := ProductOf(h2, h1, h2)
		require.Len(t, p.Locals(), 2)
		assert.Same(t, h1, p.Locals()[0])
		assert.Same(t, h2, p.Locals()[1])
	})

	t.Run("numeric labels sort numerically", func(t *testing.T) {
		p := ProductOf(NewLocalInt(10), h2)
		assert.Same(t, h2, p.Locals()[0])
	})

	t.Run("trivial space is the neutral element", func(t *testing.T) {
		assert.True(t, Equal(TrivialSpace, ProductOf()))
		assert.Same(t, h1, ProductOf(h1, TrivialSpace))
	})

	t.Run("full space absorbs", func(t *testing.T) {
		assert.True(t, Equal(FullSpace, ProductOf(h1, FullSpace)))
	})

	t.Run("dimension multiplies", func(t *testing.T) {
		p := ProductOf(
			NewLocalInt(3, WithDimension(2)),
			NewLocalInt(4, WithDimension(3)),
		)
		d, err := p.Dimension()
		require.NoError(t, err)
		assert.Equal(t, 6, d)

		_, err = ProductOf(h1, NewLocalInt(3, WithDimension(2))).Dimension()
		assert.ErrorIs(t, err, ErrBasisNotSet)
	})

	t.Run("associative by key", func(t *testing.T) {
		h3 := NewLocalInt(3)
		assert.True(t, Equal(
			ProductOf(ProductOf(h1, h2), h3),
			ProductOf(h1, ProductOf(h2, h3)),
		))
	})
}

func TestSpaceRelations(t *testing.T) {
	h1, h2, h3 := NewLocalInt(1), NewLocalInt(2), NewLocalInt(3)
	p12 := ProductOf(h1, h2)
	p23 := ProductOf(h2, h3)

	t.Run("disjoint", func(t *testing.T) {
		assert.True(t, Disjoint(h1, h2))
		assert.False(t, Disjoint(h1, h1))
		assert.False(t, Disjoint(p12, p23))
		assert.True(t, Disjoint(p12, h3))
		assert.True(t, Disjoint(TrivialSpace, h1))
		assert.True(t, Disjoint(FullSpace, TrivialSpace))
		assert.False(t, Disjoint(FullSpace, h1))
	})

	t.Run("contains", func(t *testing.T) {
		assert.True(t, Contains(p12, h1))
		assert.False(t, Contains(h1, p12))
		assert.True(t, Contains(FullSpace, p12))
		assert.False(t, Contains(p12, FullSpace))
		assert.True(t, Contains(p12, TrivialSpace))
		assert.False(t, Contains(p12, p23))
	})

	t.Run("intersect", func(t *testing.T) {
		assert.True(t, Equal(h2, Intersect(p12, p23)))
		assert.True(t, Intersect(h1, h2).IsTrivial())
		assert.True(t, Equal(p12, Intersect(FullSpace, p12)))
	})
}

func TestSpaceLess(t *testing.T) {
	h2, h10 := NewLocalInt(2), NewLocalInt(10)
	p := ProductOf(h2, h10)

	assert.True(t, Less(TrivialSpace, h2))
	assert.True(t, Less(h2, FullSpace))

	// "2" before "10": numeric labels compare numerically.
	assert.True(t, Less(h2, h10))
	assert.False(t, Less(h10, h2))

	// A product sorts after its own leading factor.
	assert.True(t, Less(h2, p))
	assert.False(t, Less(p, h2))

	assert.True(t, Less(NewLocal("a"), NewLocal("b")))
	// Numeric labels sort before alphabetic ones.
	assert.True(t, Less(h2, NewLocal("a")))
}
