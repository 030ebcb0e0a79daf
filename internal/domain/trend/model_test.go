package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightFor(t *testing.T) {
	tests := []struct {
		kind EventKind
		want float64
	}{
		{EventView, 1.0},
		{EventClick, 2.0},
		{EventShare, 3.0},
	}
	for _, tt := range tests {
		got, err := WeightFor(tt.kind)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, string(tt.kind))
	}

	_, err := WeightFor("bogus")
	assert.ErrorIs(t, err, ErrInvalidEventKind)
}

func TestParseEventKind(t *testing.T) {
	kind, err := ParseEventKind(" SHARE ")
	require.NoError(t, err)
	assert.Equal(t, EventShare, kind)

	_, err = ParseEventKind("like")
	assert.ErrorIs(t, err, ErrInvalidEventKind)
}
