// Package timeline ranks era examples and computes semantic drift across eras.
package timeline

import "math"

// CosineSimilarity computes the cosine similarity between two vectors,
// clamped to [-1, 1] to absorb floating-point drift. Mismatched lengths and
// zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}

	return clamp(dot/denominator, -1, 1)
}

// Normalize returns a unit-length copy of v. Zero vectors are returned as a
// zero copy; they cannot be normalized and score 0 against everything.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}

	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Centroid computes the mean of the given normalized vectors. Vectors are
// normalized here regardless of their origin; the codec's output is not
// trusted to be unit length. Returns nil for empty input.
func Centroid(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}

	dims := len(vecs[0])
	sum := make([]float64, dims)
	for _, v := range vecs {
		for i, x := range Normalize(v) {
			sum[i] += float64(x)
		}
	}

	centroid := make([]float32, dims)
	for i := range sum {
		centroid[i] = float32(sum[i] / float64(len(vecs)))
	}
	return centroid
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
