// Package embedding turns article text into fixed-length vectors. Two
// providers share one interface: a remote HTTP service and a deterministic
// local approximation used for offline and degraded operation.
package embedding

import "context"

// DefaultDimensions matches the remote model's output size.
const DefaultDimensions = 768

// Provider produces a fixed-length vector for a text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
