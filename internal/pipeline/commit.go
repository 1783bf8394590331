package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/profile"
	"github.com/jonathan/taskmatch/internal/ranking"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/store"
	"github.com/jonathan/taskmatch/internal/types"
)

// CommitResult reports one commit invocation.
type CommitResult struct {
	CommitID       string                `json:"commit_id"`
	Analysis       skills.CommitAnalysis `json:"analysis"`
	TaskID         string                `json:"task_id,omitempty"`
	TaskSimilarity float64               `json:"task_similarity,omitempty"`
	IsTracked      bool                  `json:"is_tracked"`
	AuthorID       string                `json:"author_id,omitempty"`
	Profile        *profile.Decision     `json:"profile,omitempty"`
	ProfileUpdated bool                  `json:"profile_updated"`
}

// CommitDeps are the collaborators of a CommitPipeline.
type CommitDeps struct {
	Store     store.Store
	Embedder  embedding.Embedder
	Extractor *skills.Extractor
	Updater   *profile.Updater
	Logger    *zap.Logger
	// MinTaskSimilarity defaults to ranking.CommitMinSimilarity.
	MinTaskSimilarity float64
	OnProgress        ProgressCallback
	Now               func() time.Time
}

// CommitPipeline links commits to tasks and evolves author profiles.
type CommitPipeline struct {
	deps   CommitDeps
	logger *zap.Logger
}

// NewCommitPipeline returns a CommitPipeline.
func NewCommitPipeline(deps CommitDeps) *CommitPipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MinTaskSimilarity == 0 {
		deps.MinTaskSimilarity = ranking.CommitMinSimilarity
	}
	return &CommitPipeline{deps: deps, logger: deps.Logger.Named("commits")}
}

// Process analyzes a commit, links it to the closest task, stores it and
// updates the author's profile when the commit shows new skills.
func (p *CommitPipeline) Process(ctx context.Context, req types.CommitRequest) (*CommitResult, error) {
	req.Hash = strings.TrimSpace(req.Hash)
	if err := req.Validate(); err != nil {
		return nil, &InputError{Message: "commit request", Cause: err}
	}
	repository := req.Repository
	if repository == "" {
		repository = "unknown"
	}

	analysis := p.deps.Extractor.AnalyzeCommit(ctx, req.Message, req.Diff, repository)
	result := &CommitResult{Analysis: analysis}
	emit(ctx, p.deps.OnProgress, StepCommitAnalyzed, req.Hash, analysis.Summary, analysis)

	summaryEmbedding := p.deps.Embedder.Embed(ctx, analysis.Summary)

	var tasks []types.WorkItem
	if err := p.deps.Store.FindMany(ctx, types.CollectionIssues, store.Filter{}, &tasks); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	if best := ranking.SimilarWorkItems(summaryEmbedding, tasks, p.deps.MinTaskSimilarity, ranking.CommitTopK); len(best) > 0 {
		result.TaskID = best[0].Item.ID
		result.TaskSimilarity = best[0].Similarity
		result.IsTracked = best[0].Item.ExternalID != ""
		emit(ctx, p.deps.OnProgress, StepCommitLinked, result.TaskID, fmt.Sprintf("Linked to task (similarity %.2f)", result.TaskSimilarity), nil)
	}

	var author *types.Candidate
	var found types.Candidate
	err := p.deps.Store.FindOne(ctx, types.CollectionUsers, store.Filter{"email": req.AuthorEmail}, &found)
	switch {
	case err == nil:
		author = &found
		result.AuthorID = found.ID
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("resolving author %s: %w", req.AuthorEmail, err)
	}

	commit := types.Commit{
		ID:               uuid.NewString(),
		Hash:             req.Hash,
		Message:          req.Message,
		Repository:       repository,
		AuthorEmail:      req.AuthorEmail,
		AuthorID:         result.AuthorID,
		Summary:          analysis.Summary,
		SkillsUsed:       analysis.SkillsUsed,
		Impact:           analysis.Impact,
		SummaryEmbedding: summaryEmbedding,
		TaskID:           result.TaskID,
		TaskSimilarity:   result.TaskSimilarity,
		IsTracked:        result.IsTracked,
		CreatedAt:        p.deps.Now(),
	}
	if _, err := p.deps.Store.InsertOne(ctx, types.CollectionCommits, commit); err != nil {
		return nil, fmt.Errorf("storing commit %s: %w", req.Hash, err)
	}
	result.CommitID = commit.ID

	if author == nil {
		p.logger.Info("commit from unknown author",
			zap.String("commit_hash", req.Hash),
			zap.String("author_email", req.AuthorEmail))
		return result, nil
	}

	decision := p.deps.Updater.Check(ctx, author.Skills, author.ProfileText, analysis.SkillsUsed, analysis.Summary)
	result.Profile = &decision
	change, ok := profile.Apply(ctx, p.deps.Embedder, *author, decision)
	if !ok {
		return result, nil
	}

	if _, err := p.deps.Store.UpdateOne(ctx, types.CollectionUsers, store.ByID(author.ID), change.Update()); err != nil {
		return nil, fmt.Errorf("updating profile of %s: %w", author.ID, err)
	}
	if _, err := p.deps.Store.UpdateOne(ctx, types.CollectionCommits, store.ByID(commit.ID), store.Update{
		Set: map[string]any{"triggered_profile_update": true},
	}); err != nil {
		return nil, fmt.Errorf("flagging commit %s: %w", commit.ID, err)
	}
	result.ProfileUpdated = true
	p.logger.Info("profile updated from commit",
		zap.String("user_id", author.ID),
		zap.String("commit_hash", req.Hash),
		zap.Strings("new_skills", decision.NewSkills))
	emit(ctx, p.deps.OnProgress, StepProfileUpdated, author.ID, decision.Reasoning, decision.NewSkills)
	return result, nil
}
