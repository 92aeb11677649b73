package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultDimension is the vector size used when none is configured.
	DefaultDimension = 768

	// normWarnTolerance is the |norm-1| above which a vector is logged as
	// drifting but still accepted.
	normWarnTolerance = 1e-3
	// normErrorTolerance is the |norm-1| above which a vector is rejected.
	normErrorTolerance = 1e-2
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrZeroVector        = errors.New("embedding is a zero vector")
	ErrNotNormalized     = errors.New("embedding is not L2-normalized")
	ErrEmptyResponse     = errors.New("embedding provider returned no vector")
)

// Embedder turns text into a unit-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Check is the outcome of validating a vector.
type Check struct {
	Norm float64
	// Drift is set when the norm deviates from 1 beyond the warning
	// tolerance but is still usable.
	Drift bool
}

// Validate verifies the vector has the expected dimension and unit length.
// A dim of zero skips the dimension check.
func Validate(vec []float32, dim int) (Check, error) {
	if len(vec) == 0 {
		return Check{}, ErrEmptyResponse
	}
	if dim > 0 && len(vec) != dim {
		return Check{}, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(vec))
	}

	norm := Norm(vec)
	if norm == 0 || math.IsNaN(norm) {
		return Check{Norm: norm}, ErrZeroVector
	}

	deviation := math.Abs(norm - 1)
	if deviation > normErrorTolerance {
		return Check{Norm: norm}, fmt.Errorf("%w: norm %.4f", ErrNotNormalized, norm)
	}
	return Check{Norm: norm, Drift: deviation > normWarnTolerance}, nil
}

// Norm returns the L2 norm of vec.
func Norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of vec.
func Normalize(vec []float32) ([]float32, error) {
	norm := Norm(vec)
	if norm == 0 || math.IsNaN(norm) {
		return nil, ErrZeroVector
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
