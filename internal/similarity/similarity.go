// Package similarity implements cosine relatedness between embedding vectors
// and the linear best-match scan used for category retrieval.
package similarity

import "math"

// Cosine returns the cosine similarity of a and b. Vectors of different or
// zero length, and vectors with a zero norm, score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Match is the winning candidate of a Best scan.
type Match[T any] struct {
	Item  T
	Index int
	Score float64
}

// Best scans candidates in order and returns the one with the highest cosine
// similarity to query. The current best is only replaced on a strictly greater
// score, so the earliest candidate wins ties. Candidates whose vector length
// differs from the query are skipped. ok is false when nothing was usable.
func Best[T any](query []float32, candidates []T, vec func(T) []float32) (m Match[T], ok bool) {
	m.Index = -1
	for i, c := range candidates {
		v := vec(c)
		if len(v) == 0 || len(v) != len(query) {
			continue
		}
		score := Cosine(query, v)
		if !ok || score > m.Score {
			m = Match[T]{Item: c, Index: i, Score: score}
			ok = true
		}
	}
	return m, ok
}
