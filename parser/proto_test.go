package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
)

func TestParseProto(t *testing.T) {
	t.Run("leaf with keyword argument", func(t *testing.T) {
		got, err := ParseProto([]byte(`{
			"head": "Destroy",
			"kwargs": [{"key": "hs", "value": 1}]
		}`))
		require.NoError(t, err)
		assert.True(t, expr.Equal(operator.Destroy(hilbert.NewLocalInt(1)), got))
	})

	t.Run("symbol name stays a string", func(t *testing.T) {
		got, err := ParseProto([]byte(`{
			"head": "OperatorSymbol",
			"args": ["A"],
			"kwargs": [{"key": "hs", "value": 1}]
		}`))
		require.NoError(t, err)
		assert.True(t, expr.Equal(operator.NewSymbol("A", hilbert.NewLocalInt(1)), got))
	})

	t.Run("nested operations simplify on construction", func(t *testing.T) {
		got, err := ParseProto([]byte(`{
			"head": "OperatorTimes",
			"args": [
				{"head": "Destroy", "kwargs": [{"key": "hs", "value": 1}]},
				{"head": "Create", "kwargs": [{"key": "hs", "value": 1}]}
			]
		}`))
		require.NoError(t, err)
		q, ok := got.(quantum.Expr)
		require.True(t, ok, "got %T", got)
		// a a+ normal-orders to a+ a + 1.
		assert.Equal(t, operator.HeadPlus, q.Head())
	})

	t.Run("symbolic parameter", func(t *testing.T) {
		got, err := ParseProto([]byte(`{
			"head": "Phase",
			"args": ["phi"],
			"kwargs": [{"key": "hs", "value": 1}]
		}`))
		require.NoError(t, err)
		q, ok := got.(quantum.Expr)
		require.True(t, ok)
		assert.Equal(t, operator.HeadPhase, q.Head())
	})
}

func TestParseProtoErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing head", `{"args": [1]}`},
		{"unknown head", `{"head": "Frobnicate"}`},
		{"non-integer literal", `{"head": "LocalSigma", "args": [0.5, 1], "kwargs": [{"key": "hs", "value": 1}]}`},
		{"malformed json", `{"head": "Destroy"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProto([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}
