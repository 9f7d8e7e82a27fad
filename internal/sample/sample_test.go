package sample

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyForLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		label string
		want  Policy
	}{
		{"background", PolicyReference},
		{"atm", PolicyReference},
		{" ATM ", PolicyReference},
		{"signal", PolicySelfWeighted},
		{"nnbar", PolicySelfWeighted},
	}
	for _, tt := range tests {
		got, err := PolicyForLabel(tt.label)
		require.NoError(t, err, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}

	_, err := PolicyForLabel("cosmics")
	assert.Error(t, err)

	p, err := Spec{Label: "nnbar"}.Policy()
	require.NoError(t, err)
	assert.Equal(t, "self-weighted", p.String())
}

func TestSchemaError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("open: %w", &SchemaError{Sample: "atm", Field: "nuvtxx"})
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "nuvtxx", se.Field)
	assert.Contains(t, err.Error(), `sample "atm"`)
	assert.Contains(t, err.Error(), "missing")

	inner := errors.New("NULL value")
	wrapped := &SchemaError{Sample: "nnbar", Field: "vertex_x", Err: inner}
	assert.True(t, errors.Is(wrapped, inner))
	assert.Contains(t, wrapped.Error(), "NULL value")
}

func TestTableWeights(t *testing.T) {
	t.Parallel()

	tbl := Table{{Index: 0, Weight: 1.5}, {Index: 3, Weight: 2}}
	assert.Equal(t, []float64{1.5, 2}, tbl.Weights())
}
