// Package ranking scores and orders candidates for a work item. Both modes are
// pure functions of their inputs: equal inputs always give the same order.
package ranking

import (
	"context"
	"sort"

	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/types"
)

// Mode selects a scoring formula.
type Mode string

const (
	// ModeProfile scores embedded skill text and work-profile similarity.
	ModeProfile Mode = "profile"
	// ModeOverlap scores literal skill overlap and skill-embedding similarity.
	ModeOverlap Mode = "overlap"
)

const (
	// DefaultTopN is used when a caller passes topN <= 0.
	DefaultTopN = 5
	// DefaultMinSimilarity is the overlap-mode exclusion threshold.
	DefaultMinSimilarity = 0.5
)

// Options configures a Ranker.
type Options struct {
	Mode          Mode
	TopN          int
	MinSimilarity float64
}

// Ranker ranks candidates with the configured mode.
type Ranker struct {
	embedder embedding.Embedder
	opts     Options
}

// NewRanker returns a Ranker. Zero options mean profile mode, DefaultTopN and
// DefaultMinSimilarity.
func NewRanker(embedder embedding.Embedder, opts Options) *Ranker {
	if opts.Mode == "" {
		opts.Mode = ModeProfile
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = DefaultMinSimilarity
	}
	return &Ranker{embedder: embedder, opts: opts}
}

// Mode reports the configured mode.
func (r *Ranker) Mode() Mode {
	return r.opts.Mode
}

// Rank scores candidates against item with the configured mode.
func (r *Ranker) Rank(ctx context.Context, item *types.WorkItem, candidates []types.Candidate) []types.MatchResult {
	if r.opts.Mode == ModeOverlap {
		skillEmbedding := item.SkillEmbedding
		if len(skillEmbedding) == 0 {
			skillEmbedding = r.embedder.Embed(ctx, embedding.JoinSkills(item.RequiredSkills))
		}
		return RankByOverlap(item.RequiredSkills, skillEmbedding, candidates, r.opts.MinSimilarity, r.opts.TopN)
	}
	return RankByProfile(ctx, r.embedder, item.RequiredSkills, item.DescriptionEmbedding, candidates, r.opts.TopN)
}

// sortAndTruncate orders by combined score, keeping input order on ties.
func sortAndTruncate(results []types.MatchResult, topN int) []types.MatchResult {
	if topN <= 0 {
		topN = DefaultTopN
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})
	if len(results) > topN {
		results = results[:topN]
	}
	return results
}
