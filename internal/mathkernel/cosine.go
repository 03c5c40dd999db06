// Package mathkernel provides the small set of numeric primitives the
// vector index builds on: cosine similarity and distance over equal-length
// real vectors.
package mathkernel

import (
	"math"

	"github.com/alexgetty/roux/internal/rerrors"
)

// CosineSimilarity computes the cosine similarity of a and b.
//
// Fails with rerrors.DimensionMismatch if len(a) != len(b), and with
// rerrors.InvalidInput if either vector is empty. If either vector has
// zero magnitude, returns 0 rather than failing: a zero vector carries
// no directional signal, not an error.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, rerrors.Invalid("cosine_similarity: vectors must not be empty")
	}
	if len(a) != len(b) {
		return 0, rerrors.DimensionErr(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// CosineDistance computes 1 - CosineSimilarity(a, b), except that when both
// vectors have zero magnitude it returns 1 rather than 0: two signals with
// no direction are treated as maximally dissimilar ("unknown", not
// "identical").
func CosineDistance(a, b []float32) (float64, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}

	if isZero(a) && isZero(b) {
		return 1, nil
	}

	return 1 - sim, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
