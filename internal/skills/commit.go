package skills

import (
	"context"

	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/prompts"
	"github.com/jonathan/taskmatch/internal/schemas"
	"github.com/jonathan/taskmatch/internal/types"
	rootschemas "github.com/jonathan/taskmatch/schemas"
	"go.uber.org/zap"
)

// MaxDiffRunes bounds the diff excerpt sent to the oracle.
const MaxDiffRunes = 2000

// FallbackCommitSkill is reported for commits the oracle could not analyze.
const FallbackCommitSkill = "Software Development"

// CommitAnalysis summarizes what a commit accomplished.
type CommitAnalysis struct {
	Summary    string       `json:"summary"`
	SkillsUsed []string     `json:"skills_used"`
	Impact     types.Impact `json:"impact_assessment"`
	Source     Source       `json:"-"`
}

type commitPromptData struct {
	Repository string
	Message    string
	Diff       string
}

// AnalyzeCommit summarizes a commit and lists the skills it demonstrates.
func (e *Extractor) AnalyzeCommit(ctx context.Context, message, diff, repository string) CommitAnalysis {
	if e.client != nil {
		analysis, err := e.analyzeWithOracle(ctx, message, diff, repository)
		if err == nil {
			return analysis
		}
		e.logger.Warn("commit analysis fell back to defaults",
			zap.String("repository", repository),
			zap.Error(err))
	}
	return FallbackCommitAnalysis(message)
}

// FallbackCommitAnalysis is the analysis used when the oracle is unavailable.
func FallbackCommitAnalysis(message string) CommitAnalysis {
	summary := message
	if summary == "" {
		summary = "Code changes"
	}
	return CommitAnalysis{
		Summary:    summary,
		SkillsUsed: []string{FallbackCommitSkill},
		Impact:     types.ImpactMinor,
		Source:     SourceFallback,
	}
}

func (e *Extractor) analyzeWithOracle(ctx context.Context, message, diff, repository string) (CommitAnalysis, error) {
	prompt, err := prompts.Render(prompts.Triage, prompts.AnalyzeCommit, commitPromptData{
		Repository: repository,
		Message:    message,
		Diff:       TruncateDiff(diff),
	})
	if err != nil {
		return CommitAnalysis{}, err
	}

	raw, err := e.client.GenerateContent(ctx, prompt, llm.GenerateOptions{
		Tier:        llm.TierLite,
		Temperature: extractTemperature,
		JSON:        true,
	})
	if err != nil {
		return CommitAnalysis{}, err
	}
	return ParseCommitAnalysis(raw)
}

// ParseCommitAnalysis leniently reads a commit analysis out of an oracle answer.
func ParseCommitAnalysis(raw string) (CommitAnalysis, error) {
	var analysis CommitAnalysis
	if err := llm.DecodeFirstObject(raw, rootschemas.CommitAnalysis, schemas.Validator(rootschemas.CommitAnalysis), &analysis); err != nil {
		return CommitAnalysis{}, err
	}
	analysis.SkillsUsed = Clean(analysis.SkillsUsed, MaxSkills)
	if analysis.Impact == "" {
		analysis.Impact = types.ImpactMinor
	}
	analysis.Source = SourceOracle
	return analysis, nil
}

// TruncateDiff keeps the first MaxDiffRunes runes of diff, marking the cut with "...".
func TruncateDiff(diff string) string {
	runes := []rune(diff)
	if len(runes) <= MaxDiffRunes {
		return diff
	}
	return string(runes[:MaxDiffRunes]) + "..."
}
