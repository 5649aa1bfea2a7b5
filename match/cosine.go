package match

import (
	"errors"
	"math"
)

var (
	// ErrZeroNorm is returned when a vector has no magnitude.
	ErrZeroNorm = errors.New("match: zero-norm vector")
	// ErrDimensionMismatch is returned for vectors of different lengths.
	ErrDimensionMismatch = errors.New("match: vector dimensions differ")
)

// Cosine returns dot(a,b) / (|a| * |b|).
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroNorm
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
