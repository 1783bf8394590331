package ranking

import (
	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/types"
)

// Thresholds for prior work-item search.
const (
	DuplicateMinSimilarity = 0.7
	DuplicateTopK          = 3
	CommitMinSimilarity    = 0.6
	CommitTopK             = 1
)

// SimilarWorkItems returns the items whose description embedding is at least
// minSimilarity to query, best first, at most topK. Items without an embedding
// are skipped.
func SimilarWorkItems(query embedding.Vector, items []types.WorkItem, minSimilarity float64, topK int) []embedding.Scored[types.WorkItem] {
	return embedding.FindSimilar(query, items, func(w types.WorkItem) embedding.Vector {
		return w.DescriptionEmbedding
	}, minSimilarity, topK)
}
