package scalar

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCollectsLikeTerms(t *testing.T) {
	x := Sym("x")
	y := Sym("y")

	tests := []struct {
		name string
		got  Scalar
		want Scalar
	}{
		{"numbers fold", Add(Int(2), Int(3)), Int(5)},
		{"like terms combine", Add(x, x), Mul(Int(2), x)},
		{"coefficients merge", Add(Mul(Int(2), x), Mul(Int(3), x)), Mul(Int(5), x)},
		{"cancellation", Add(x, Neg(x)), Zero},
		{"nested sums flatten", Add(Add(x, y), x), Add(Mul(Int(2), x), y)},
		{"i squared", Mul(ImagUnit, ImagUnit), MinusOne},
		{"powers collect", Mul(x, x), Pow(x, 2)},
		{"inverse cancels", Mul(x, PowRat(x, big.NewRat(-1, 1))), One},
		{"zero annihilates", Mul(Zero, x), Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Equal(tt.want, tt.got),
				"got %s want %s", tt.got.Key(), tt.want.Key())
		})
	}
}

func TestExactRoot(t *testing.T) {
	tests := []struct {
		name string
		v    int64
		q    int64
		root int64
		ok   bool
	}{
		{"perfect square", 9, 2, 3, true},
		{"perfect cube", 8, 3, 2, true},
		{"large cube", 1000000, 3, 100, true},
		{"one", 1, 5, 1, true},
		{"not a square", 10, 2, 0, false},
		{"not a cube", 9, 3, 0, false},
		{"negative radicand", -4, 2, 0, false},
		{"first root", 4, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := exactRoot(big.NewInt(tt.v), tt.q)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.root, r.Int64())
			}
		})
	}
}

func TestPowers(t *testing.T) {
	n := Sym("n")

	t.Run("exact square roots", func(t *testing.T) {
		assert.True(t, Equal(Int(3), Sqrt(Int(9))))
		assert.True(t, Equal(Rat(3, 2), Sqrt(Rat(9, 4))))
		assert.True(t, Equal(Zero, Sqrt(Zero)))
	})

	t.Run("irrational roots stay symbolic", func(t *testing.T) {
		s := Sqrt(Int(2))
		_, isNum := s.(Number)
		assert.False(t, isNum, "got %s", s.Key())
	})

	t.Run("negative integer exponent", func(t *testing.T) {
		assert.True(t, Equal(Rat(1, 4), Pow(Int(2), -2)))
	})

	t.Run("power of a power multiplies exponents", func(t *testing.T) {
		assert.True(t, Equal(n, Sqrt(Pow(n, 2))))
	})

	t.Run("sqrt factors through products", func(t *testing.T) {
		// sqrt(4 n^2) = 2 n.
		assert.True(t, Equal(Mul(Int(2), n), Sqrt(Mul(Int(4), n, n))))
	})
}

func TestConjugate(t *testing.T) {
	a := Sym("alpha")
	b := Sym("beta")

	t.Run("numbers", func(t *testing.T) {
		assert.True(t, Equal(Neg(ImagUnit), Conjugate(ImagUnit)))
		assert.True(t, Equal(Int(3), Conjugate(Int(3))))
	})

	t.Run("symbols are real", func(t *testing.T) {
		assert.True(t, Equal(a, Conjugate(a)))
	})

	t.Run("distributes over sums and products", func(t *testing.T) {
		s := Add(a, Mul(ImagUnit, b))
		want := Add(a, Mul(Neg(ImagUnit), b))
		assert.True(t, Equal(want, Conjugate(s)),
			"got %s want %s", Conjugate(s).Key(), want.Key())
	})

	t.Run("involution", func(t *testing.T) {
		s := Mul(Complex(big.NewRat(1, 2), big.NewRat(3, 1)), a, Exp(Mul(ImagUnit, b)))
		assert.True(t, Equal(s, Conjugate(Conjugate(s))))
	})

	t.Run("exp conjugates its argument", func(t *testing.T) {
		got := Conjugate(Exp(Mul(ImagUnit, b)))
		want := Exp(Mul(Neg(ImagUnit), b))
		assert.True(t, Equal(want, got), "got %s want %s", got.Key(), want.Key())
	})
}

func TestDiff(t *testing.T) {
	x := Sym("x")
	y := Sym("y")

	tests := []struct {
		name string
		got  Scalar
		want Scalar
	}{
		{"constant", Diff(Int(7), x), Zero},
		{"own symbol", Diff(x, x), One},
		{"other symbol", Diff(y, x), Zero},
		{"power rule", Diff(Pow(x, 3), x), Mul(Int(3), Pow(x, 2))},
		{"product rule", Diff(Mul(x, y), x), y},
		{"exponential", Diff(Exp(Mul(Int(2), x)), x), Mul(Int(2), Exp(Mul(Int(2), x)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Equal(tt.want, tt.got),
				"got %s want %s", tt.got.Key(), tt.want.Key())
		})
	}
}

func TestSeriesCoeffs(t *testing.T) {
	tv := Sym("t")
	x := Sym("x")

	t.Run("polynomial about zero", func(t *testing.T) {
		// 1 + 2t + t^2.
		s := Add(One, Mul(Int(2), tv), Pow(tv, 2))
		coeffs, err := SeriesCoeffs(s, tv, Zero, 3)
		require.NoError(t, err)
		require.Len(t, coeffs, 4)
		want := []Scalar{One, Int(2), One, Zero}
		for i, w := range want {
			assert.True(t, Equal(w, coeffs[i]), "order %d: got %s", i, coeffs[i].Key())
		}
	})

	t.Run("product convolves", func(t *testing.T) {
		// (1+t)^2 = 1 + 2t + t^2.
		s := Pow(Add(One, tv), 2)
		coeffs, err := SeriesCoeffs(s, tv, Zero, 2)
		require.NoError(t, err)
		want := []Scalar{One, Int(2), One}
		for i, w := range want {
			assert.True(t, Equal(w, coeffs[i]), "order %d: got %s", i, coeffs[i].Key())
		}
	})

	t.Run("constant in the parameter", func(t *testing.T) {
		coeffs, err := SeriesCoeffs(x, tv, Zero, 2)
		require.NoError(t, err)
		assert.True(t, Equal(x, coeffs[0]))
		assert.True(t, Equal(Zero, coeffs[1]))
	})

	t.Run("about a nonzero point", func(t *testing.T) {
		coeffs, err := SeriesCoeffs(tv, tv, One, 1)
		require.NoError(t, err)
		assert.True(t, Equal(One, coeffs[0]))
		assert.True(t, Equal(One, coeffs[1]))
	})

	t.Run("non-polynomial fails", func(t *testing.T) {
		_, err := SeriesCoeffs(Exp(tv), tv, Zero, 2)
		assert.ErrorIs(t, err, ErrCannotExpand)
		_, err = SeriesCoeffs(Sqrt(tv), tv, Zero, 2)
		assert.ErrorIs(t, err, ErrCannotExpand)
	})
}

func TestSubstAndFreeSymbols(t *testing.T) {
	x := Sym("x")
	y := Sym("y")
	s := Add(Mul(Int(2), x), Exp(y))

	free := FreeSymbols(s)
	assert.Contains(t, free, x.Key())
	assert.Contains(t, free, y.Key())
	assert.True(t, ContainsSymbol(s, x))
	assert.False(t, ContainsSymbol(s, Sym("z")))

	got := Subst(s, map[string]Scalar{x.Key(): Int(3), y.Key(): Zero})
	assert.True(t, Equal(Int(7), got), "got %s", got.Key())
}

func TestFuncEvaluation(t *testing.T) {
	assert.True(t, Equal(One, Exp(Zero)))
	assert.True(t, Equal(Int(24), Factorial(Int(4))))
	assert.True(t, Equal(One, Factorial(Zero)))

	n := Sym("n")
	sym := Factorial(n)
	_, isNum := sym.(Number)
	assert.False(t, isNum)
	assert.True(t, Equal(Int(6), Subst(sym, map[string]Scalar{n.Key(): Int(3)})))
}
