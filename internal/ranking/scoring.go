package ranking

import (
	"context"

	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/types"
)

// Weights for profile mode
const (
	skillSimilarityWeight   = 0.7
	profileSimilarityWeight = 0.3
)

// Weights for overlap mode
const (
	skillOverlapWeight        = 0.6
	embeddingSimilarityWeight = 0.4
)

// RankByProfile scores each candidate as
// 0.7*cosine(embed(required skills), embed(candidate skills)) + 0.3*cosine(description, profile)
// and returns the top topN, highest first.
func RankByProfile(ctx context.Context, embedder embedding.Embedder, requiredSkills []string, descriptionEmbedding embedding.Vector, candidates []types.Candidate, topN int) []types.MatchResult {
	if len(candidates) == 0 {
		return nil
	}

	required := embedder.Embed(ctx, embedding.JoinSkills(requiredSkills))
	results := make([]types.MatchResult, 0, len(candidates))
	for _, candidate := range candidates {
		skillSimilarity := embedding.Cosine(required, embedder.Embed(ctx, embedding.JoinSkills(candidate.Skills)))
		profileSimilarity := embedding.Cosine(descriptionEmbedding, candidate.ProfileEmbedding)

		results = append(results, types.MatchResult{
			Candidate:         candidate,
			SkillSimilarity:   skillSimilarity,
			ProfileSimilarity: profileSimilarity,
			CombinedScore:     skillSimilarityWeight*skillSimilarity + profileSimilarityWeight*profileSimilarity,
		})
	}
	return sortAndTruncate(results, topN)
}

// RankByOverlap scores each candidate as
// 0.6*|required ∩ candidate|/|required| + 0.4*cosine(skill embedding, profile),
// drops candidates scoring below minSimilarity, and returns the top topN.
func RankByOverlap(requiredSkills []string, skillEmbedding embedding.Vector, candidates []types.Candidate, minSimilarity float64, topN int) []types.MatchResult {
	required := types.SkillSet(requiredSkills).Merge()
	results := make([]types.MatchResult, 0, len(candidates))
	for _, candidate := range candidates {
		overlap := SkillOverlap(required, candidate.Skills)
		similarity := embedding.Cosine(skillEmbedding, candidate.ProfileEmbedding)
		combined := skillOverlapWeight*overlap + embeddingSimilarityWeight*similarity
		if combined < minSimilarity {
			continue
		}
		results = append(results, types.MatchResult{
			Candidate:         candidate,
			ProfileSimilarity: similarity,
			SkillOverlap:      overlap,
			CombinedScore:     combined,
		})
	}
	if len(results) == 0 {
		return nil
	}
	return sortAndTruncate(results, topN)
}

// SkillOverlap is the share of distinct required skills the candidate has,
// compared case-insensitively. No required skills means 0.
func SkillOverlap(requiredSkills, candidateSkills []string) float64 {
	required := types.SkillSet(requiredSkills).Merge()
	if len(required) == 0 {
		return 0
	}
	return float64(required.Intersect(candidateSkills)) / float64(len(required))
}
