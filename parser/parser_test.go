package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
	"github.com/qalgebra/qalgebra/state"
)

func newParser(t *testing.T) *Parser {
	t.Helper()
	p, err := New()
	require.NoError(t, err)
	return p
}

func TestParseScalars(t *testing.T) {
	p := newParser(t)

	tests := []struct {
		name  string
		input string
		want  scalar.Scalar
	}{
		{"integer sum", "2 + 3", scalar.Int(5)},
		{"rational product", "1/2 * 4", scalar.Int(2)},
		{"imaginary unit squares", "i * i", scalar.MinusOne},
		{"leading minus", "-3 + 1", scalar.Int(-2)},
		{"symbol", "t", scalar.Sym("t")},
		{"power", "2^3", scalar.Int(8)},
		{"parentheses", "2 * (1 + 3)", scalar.Int(8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.input)
			require.NoError(t, err)
			s, ok := got.(scalar.Scalar)
			require.True(t, ok, "got %T", got)
			assert.True(t, scalar.Equal(tt.want, s), "got %s want %s", s.Key(), tt.want.Key())
		})
	}
}

func TestParseOperators(t *testing.T) {
	p := newParser(t)

	t.Run("commutator collapses to identity", func(t *testing.T) {
		got, err := p.Parse("Destroy(hs=1) * Create(hs=1) - Create(hs=1) * Destroy(hs=1)")
		require.NoError(t, err)
		assert.True(t, expr.Equal(operator.Identity(), got))
	})

	t.Run("like terms collect", func(t *testing.T) {
		got, err := p.Parse("2 * OperatorSymbol(A, hs=1) + 3 * OperatorSymbol(A, hs=1)")
		require.NoError(t, err)
		st, ok := got.(*quantum.ScalarTimes)
		require.True(t, ok, "got %T", got)
		assert.True(t, scalar.Equal(scalar.Int(5), st.Coeff()))
	})

	t.Run("parametrized head takes a symbolic argument", func(t *testing.T) {
		got, err := p.Parse("Phase(phi, hs=1)")
		require.NoError(t, err)
		q, ok := got.(quantum.Expr)
		require.True(t, ok)
		assert.Equal(t, operator.HeadPhase, q.Head())
	})

	t.Run("adjoint head", func(t *testing.T) {
		got, err := p.Parse("Adjoint(Destroy(hs=1))")
		require.NoError(t, err)
		assert.True(t, expr.Equal(operator.Create(hilbert.NewLocalInt(1)), got))
	})

	t.Run("ket head", func(t *testing.T) {
		got, err := p.Parse("BasisKet(0, hs=1)")
		require.NoError(t, err)
		want, err := state.NewBasisKet(0, hilbert.NewLocalInt(1))
		require.NoError(t, err)
		assert.True(t, expr.Equal(want, got))
	})

	t.Run("operator power", func(t *testing.T) {
		got, err := p.Parse("OperatorSymbol(A, hs=1)^2")
		require.NoError(t, err)
		q, ok := got.(quantum.Expr)
		require.True(t, ok)
		assert.Equal(t, operator.HeadTimes, q.Head())
		assert.Len(t, q.Args(), 2)
	})
}

func TestParseErrors(t *testing.T) {
	p := newParser(t)

	tests := []struct {
		name  string
		input string
	}{
		{"unknown head", "Frobnicate(hs=1)"},
		{"unbalanced parens", "Destroy(hs=1"},
		{"trailing operator", "OperatorSymbol(A, hs=1) +"},
		{"positional after keyword", "LocalSigma(hs=1, 0, 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.input)
			assert.Error(t, err)
		})
	}
}
