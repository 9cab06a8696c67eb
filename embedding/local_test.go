package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Deterministic(t *testing.T) {
	l := NewLocal(0)
	ctx := context.Background()

	a, err := l.Embed(ctx, "some article text")
	require.NoError(t, err)
	b, err := l.Embed(ctx, "some article text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimensions)
}

func TestLocal_DifferentInputsDiffer(t *testing.T) {
	l := NewLocal(64)
	ctx := context.Background()

	a, err := l.Embed(ctx, "first text")
	require.NoError(t, err)
	b, err := l.Embed(ctx, "second text")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLocal_UnitNorm(t *testing.T) {
	l := NewLocal(128)

	vec, err := l.Embed(context.Background(), "normalize me")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}

func TestLocal_Dimensions(t *testing.T) {
	assert.Equal(t, 32, NewLocal(32).Dimensions())
	assert.Equal(t, DefaultDimensions, NewLocal(0).Dimensions())
}
