package embedding

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
//
// Empty or zero-norm vectors score 0. Vectors of different lengths are
// compared as if the shorter one were right-padded with zeros, so embeddings
// produced under older dimensions still yield a neutral, finite score.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Scored pairs an item with its similarity to a query.
type Scored[T any] struct {
	Item       T
	Similarity float64
}

// FindSimilar scores items against query and returns those at or above
// minSimilarity, most similar first, truncated to topK (topK <= 0 keeps all).
// Items with an empty vector are skipped. Ties keep input order.
func FindSimilar[T any](query Vector, items []T, vectorOf func(T) Vector, minSimilarity float64, topK int) []Scored[T] {
	results := make([]Scored[T], 0, len(items))
	for _, item := range items {
		vec := vectorOf(item)
		if len(vec) == 0 {
			continue
		}
		sim := Cosine(query, vec)
		if sim >= minSimilarity {
			results = append(results, Scored[T]{Item: item, Similarity: sim})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
