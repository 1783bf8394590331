// Package pipeline orchestrates triage: issues flow through skill extraction
// and duplicate detection into a merge, an assignment or an escalation;
// commits flow through analysis and task linking into profile evolution.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/taskmatch/internal/assignment"
	"github.com/jonathan/taskmatch/internal/duplicates"
	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/escalation"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/store"
	"github.com/jonathan/taskmatch/internal/types"
)

// Outcome is how an issue left the pipeline.
type Outcome string

const (
	OutcomeMerged    Outcome = "merged"
	OutcomeAssigned  Outcome = "assigned"
	OutcomeEscalated Outcome = "posting_required"
)

// IssueResult reports one issue invocation.
type IssueResult struct {
	// IssueID is the new work item, or the parent it was merged into.
	IssueID        string              `json:"issue_id"`
	Outcome        Outcome             `json:"outcome"`
	RequiredSkills []string            `json:"required_skills"`
	SkillSource    skills.Source       `json:"skill_source"`
	Duplicate      duplicates.Verdict  `json:"duplicate"`
	Decision       *assignment.Outcome `json:"decision,omitempty"`
	AssignedUserID string              `json:"assigned_user_id,omitempty"`
	Report         *escalation.Report  `json:"report,omitempty"`
	RequisitionID  string              `json:"requisition_id,omitempty"`
}

// IssueDeps are the collaborators of an IssuePipeline.
type IssueDeps struct {
	Store      store.Store
	Embedder   embedding.Embedder
	Extractor  *skills.Extractor
	Detector   *duplicates.Detector
	Engine     *assignment.Engine
	Escalation *escalation.Generator
	Logger     *zap.Logger
	OnProgress ProgressCallback
	// Now defaults to time.Now.
	Now func() time.Time
}

// IssuePipeline triages incoming issues.
type IssuePipeline struct {
	deps   IssueDeps
	logger *zap.Logger
}

// NewIssuePipeline returns an IssuePipeline.
func NewIssuePipeline(deps IssueDeps) *IssuePipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &IssuePipeline{deps: deps, logger: deps.Logger.Named("issues")}
}

// Process triages one issue. Oracle failures never fail the invocation; store
// failures do.
func (p *IssuePipeline) Process(ctx context.Context, req types.IssueRequest) (*IssueResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &InputError{Message: "issue request", Cause: err}
	}

	text := types.IssueText(req.Title, req.Description)
	descEmbedding := p.deps.Embedder.Embed(ctx, text)

	var (
		verdict    duplicates.Verdict
		extraction skills.Extraction
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var priors []types.WorkItem
		if err := p.deps.Store.FindMany(gCtx, types.CollectionIssues, store.Filter{}, &priors); err != nil {
			return fmt.Errorf("loading prior issues: %w", err)
		}
		verdict = p.deps.Detector.Check(gCtx, req.Title, req.Description, p.deps.Detector.Shortlist(descEmbedding, priors))
		return nil
	})
	g.Go(func() error {
		extraction = p.deps.Extractor.Extract(gCtx, req.Title, req.Description, req.Project)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &IssueResult{
		RequiredSkills: extraction.Skills,
		SkillSource:    extraction.Source,
		Duplicate:      verdict,
	}
	emit(ctx, p.deps.OnProgress, StepSkillsExtracted, "", fmt.Sprintf("Extracted %d skills (%s)", len(extraction.Skills), extraction.Source), extraction.Skills)
	emit(ctx, p.deps.OnProgress, StepDuplicateChecked, verdict.ParentID, verdict.Reasoning, verdict)

	if verdict.IsDuplicate {
		if err := p.merge(ctx, req.Title, verdict); err != nil {
			return nil, err
		}
		result.IssueID = verdict.ParentID
		result.Outcome = OutcomeMerged
		p.logger.Info("issue merged into parent",
			zap.String("issue_id", verdict.ParentID),
			zap.String("state", string(OutcomeMerged)),
			zap.Float64("confidence", verdict.Confidence))
		emit(ctx, p.deps.OnProgress, StepMerged, verdict.ParentID, "Merged duplicate report into parent", nil)
		return result, nil
	}

	item, err := p.create(ctx, req, descEmbedding, extraction.Skills)
	if err != nil {
		return nil, err
	}
	result.IssueID = item.ID
	emit(ctx, p.deps.OnProgress, StepCreated, item.ID, "Created work item", nil)

	var candidates []types.Candidate
	if err := p.deps.Store.FindMany(ctx, types.CollectionUsers, store.Filter{}, &candidates); err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}

	decision := p.deps.Engine.Decide(ctx, item, candidates)
	result.Decision = &decision
	emit(ctx, p.deps.OnProgress, StepDecided, item.ID, string(decision.State), decision)

	if decision.Assigned() {
		if err := p.assign(ctx, item, decision); err != nil {
			return nil, err
		}
		result.Outcome = OutcomeAssigned
		result.AssignedUserID = decision.Selected.Candidate.ID
		emit(ctx, p.deps.OnProgress, StepAssigned, item.ID, "Assigned to "+decision.Selected.Candidate.Name, nil)
		return result, nil
	}

	report := p.deps.Escalation.Build(ctx, item.Title, item.Description, item.RequiredSkills, len(candidates))
	result.Report = &report
	requisitionID, err := p.escalate(ctx, item, decision, report)
	if err != nil {
		return nil, err
	}
	result.Outcome = OutcomeEscalated
	result.RequisitionID = requisitionID
	emit(ctx, p.deps.OnProgress, StepEscalated, item.ID, "Requisition drafted: "+report.SuggestedTitle, nil)
	return result, nil
}

// merge folds a confirmed duplicate into its parent. No new work item is stored.
func (p *IssuePipeline) merge(ctx context.Context, title string, verdict duplicates.Verdict) error {
	var parent types.WorkItem
	if err := p.deps.Store.FindOne(ctx, types.CollectionIssues, store.ByID(verdict.ParentID), &parent); err != nil {
		return fmt.Errorf("loading parent issue %s: %w", verdict.ParentID, err)
	}
	update := duplicates.MergeUpdate(ctx, p.deps.Embedder, parent, title, verdict, p.deps.Now())
	matched, err := p.deps.Store.UpdateOne(ctx, types.CollectionIssues, store.ByID(parent.ID), update)
	if err != nil {
		return fmt.Errorf("merging into parent issue %s: %w", parent.ID, err)
	}
	if !matched {
		return fmt.Errorf("merging into parent issue %s: %w", parent.ID, store.ErrNotFound)
	}
	return nil
}

func (p *IssuePipeline) create(ctx context.Context, req types.IssueRequest, descEmbedding embedding.Vector, requiredSkills []string) (*types.WorkItem, error) {
	now := p.deps.Now()
	priority := req.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	source := req.Source
	if source == "" {
		source = "api"
	}
	item := &types.WorkItem{
		ID:                   uuid.NewString(),
		Title:                req.Title,
		Description:          req.Description,
		DescriptionEmbedding: descEmbedding,
		RequiredSkills:       requiredSkills,
		SkillEmbedding:       p.deps.Embedder.Embed(ctx, embedding.JoinSkills(requiredSkills)),
		Priority:             priority,
		AssignmentStatus:     types.StatusPending,
		ActivityLog:          []string{fmt.Sprintf("%s created from %s", now.UTC().Format(time.RFC3339), source)},
		Source:               req.Source,
		ExternalID:           req.ExternalID,
		ProjectID:            req.ProjectID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := p.deps.Store.InsertOne(ctx, types.CollectionIssues, item); err != nil {
		return nil, fmt.Errorf("storing issue: %w", err)
	}
	return item, nil
}

// transition moves a pending work item to status. It fails with
// ErrConcurrentTransition when the item is no longer pending.
func (p *IssuePipeline) transition(ctx context.Context, id string, status types.AssignmentStatus, set map[string]any, entry string) error {
	now := p.deps.Now()
	if set == nil {
		set = map[string]any{}
	}
	set["assignment_status"] = status
	set["updated_at"] = now
	filter := store.Filter{"_id": id, "assignment_status": types.StatusPending}
	matched, err := p.deps.Store.UpdateOne(ctx, types.CollectionIssues, filter, store.Update{
		Set:  set,
		Push: map[string][]any{"activity_log": {now.UTC().Format(time.RFC3339) + " " + entry}},
	})
	if err != nil {
		return fmt.Errorf("updating issue %s: %w", id, err)
	}
	if !matched {
		return fmt.Errorf("issue %s to %s: %w", id, status, ErrConcurrentTransition)
	}
	return nil
}

func (p *IssuePipeline) assign(ctx context.Context, item *types.WorkItem, decision assignment.Outcome) error {
	selected := decision.Selected.Candidate
	entry := fmt.Sprintf("assigned to %s (confidence %.2f): %s", selected.Name, decision.Evaluation.Confidence, decision.Evaluation.Reasoning)
	if err := p.transition(ctx, item.ID, types.StatusAssigned, map[string]any{"assigned_user_id": selected.ID}, entry); err != nil {
		return err
	}
	p.logger.Info("issue assigned",
		zap.String("issue_id", item.ID),
		zap.String("state", string(decision.State)),
		zap.Int("candidates", len(decision.Ranked)),
		zap.String("user_id", selected.ID))
	return nil
}

// escalate marks the item as needing a hire, then records the requisition.
// A lost race leaves no requisition behind.
func (p *IssuePipeline) escalate(ctx context.Context, item *types.WorkItem, decision assignment.Outcome, report escalation.Report) (string, error) {
	if err := p.transition(ctx, item.ID, types.StatusPostingRequired, nil, "escalated: "+decision.Reason); err != nil {
		return "", err
	}
	requisition := report.Requisition(item.ID, item.RequiredSkills, p.deps.Now())
	id, err := p.deps.Store.InsertOne(ctx, types.CollectionRequisitions, requisition)
	if err != nil {
		return "", fmt.Errorf("storing requisition for issue %s: %w", item.ID, err)
	}
	p.logger.Info("issue escalated",
		zap.String("issue_id", item.ID),
		zap.String("state", string(decision.State)),
		zap.Int("candidates", len(decision.Ranked)),
		zap.String("requisition_id", id),
		zap.String("report_source", string(report.Source)))
	return id, nil
}

// BatchResult pairs an issue's result with its error; exactly one is set.
type BatchResult struct {
	Result *IssueResult
	Err    error
}

// TriageBatch processes requests concurrently, at most parallelism at a time
// (parallelism <= 0 means unbounded). Results are positional; one failure
// does not stop the others.
func (p *IssuePipeline) TriageBatch(ctx context.Context, requests []types.IssueRequest, parallelism int) []BatchResult {
	results := make([]BatchResult, len(requests))
	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, req := range requests {
		g.Go(func() error {
			res, err := p.Process(ctx, req)
			results[i] = BatchResult{Result: res, Err: err}
			if err != nil && !isInputError(err) {
				p.logger.Error("batch item failed", zap.Int("index", i), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func isInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Get loads a work item by id.
func (p *IssuePipeline) Get(ctx context.Context, id string) (*types.WorkItem, error) {
	var item types.WorkItem
	if err := p.deps.Store.FindOne(ctx, types.CollectionIssues, store.ByID(id), &item); err != nil {
		return nil, fmt.Errorf("loading issue %s: %w", id, err)
	}
	return &item, nil
}
