// Package vector holds the distance math shared by the in-process stores.
package vector

import "math"

// CosineDistance returns 1 - cos(a, b), matching pgvector's <=> operator.
// Mismatched or zero-length vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
