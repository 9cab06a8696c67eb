package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
)

// Local is a deterministic offline provider. It hashes the text into a seed
// and expands it into a pseudo-random unit vector: stable for identical
// input, not semantically meaningful. It exists so enrichment never hard
// fails when the remote endpoint is unavailable.
type Local struct {
	dimensions int
}

// NewLocal creates a local provider. A non-positive dimension falls back to
// the remote model's size so local and remote vectors stay comparable.
func NewLocal(dimensions int) *Local {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Local{dimensions: dimensions}
}

// Embed returns the seeded pseudo-random unit vector for text.
func (l *Local) Embed(_ context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, l.dimensions)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}

	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

// Dimensions returns the vector length.
func (l *Local) Dimensions() int {
	return l.dimensions
}
