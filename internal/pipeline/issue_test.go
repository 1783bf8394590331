package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/taskmatch/internal/assignment"
	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/escalation"
	"github.com/jonathan/taskmatch/internal/llm/llmtest"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/store"
	"github.com/jonathan/taskmatch/internal/types"
)

const skillsAnswer = `["Go", "Redis", "Docker"]`

func fiveUsers() []any {
	var users []any
	for i, name := range []string{"Ada", "Grace", "Linus", "Barbara", "Ken"} {
		users = append(users, types.Candidate{
			ID:     fmt.Sprintf("u%d", i+1),
			Name:   name,
			Email:  fmt.Sprintf("user%d@example.com", i+1),
			Skills: []string{"Go"},
		})
	}
	return users
}

func TestProcess_NoUsersEscalatesWithoutValidation(t *testing.T) {
	s := store.NewMemory()
	client := routedOracle(map[string]string{askSkills: skillsAnswer})
	p := newIssuePipeline(s, client, nil)

	res, err := p.Process(context.Background(), types.IssueRequest{Title: "Add cache layer", Description: "Cache hot keys"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeEscalated, res.Outcome)
	require.NotNil(t, res.Decision)
	assert.Equal(t, assignment.StateEscalated, res.Decision.State)
	assert.Contains(t, res.Decision.History, assignment.StateNoCandidates)
	assert.Equal(t, 0, askedFor(client, askEvaluate))
	assert.Equal(t, 0, askedFor(client, askDuplicate), "no priors means no duplicate call")

	item := loadIssue(t, s, res.IssueID)
	assert.Equal(t, types.StatusPostingRequired, item.AssignmentStatus)
	assert.Equal(t, []string{"Go", "Redis", "Docker"}, item.RequiredSkills)

	reqs, err := NewRequisitions(s).List(context.Background(), types.RequisitionPending)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, res.RequisitionID, reqs[0].ID)
	assert.Equal(t, res.IssueID, reqs[0].TaskID)
	assert.Equal(t, "Go/Redis Developer", reqs[0].SuggestedTitle)
	assert.Equal(t, escalation.SourceFallback, res.Report.Source)
}

func TestProcess_OracleRejectsRankedCandidates(t *testing.T) {
	s := store.NewMemory()
	seed(t, s, types.CollectionUsers, fiveUsers()...)
	client := routedOracle(map[string]string{
		askSkills:   skillsAnswer,
		askEvaluate: `{"selected_user_id": null, "confidence": 0.8, "reasoning": "Nobody has run Redis in production"}`,
		askReport:   `{"suggested_job_title": "Senior Go Engineer", "suggested_job_description": "<h2>About</h2><p>Own our caching.</p>", "required_experience_years": 4}`,
	})
	p := newIssuePipeline(s, client, fixedRanker{scores: []float64{0.9, 0.8, 0.6, 0.4, 0.1}})

	res, err := p.Process(context.Background(), types.IssueRequest{Title: "Add cache layer", Description: "Cache hot keys"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeEscalated, res.Outcome)
	assert.Equal(t, assignment.StateEscalated, res.Decision.State)
	assert.Len(t, res.Decision.Ranked, 5)
	assert.Equal(t, 1, askedFor(client, askEvaluate))
	assert.Empty(t, res.AssignedUserID)

	var reqs []types.Requisition
	require.NoError(t, s.FindMany(context.Background(), types.CollectionRequisitions, store.Filter{}, &reqs))
	require.Len(t, reqs, 1)
	assert.Equal(t, types.RequisitionPending, reqs[0].Status)
	assert.Equal(t, "Senior Go Engineer", reqs[0].SuggestedTitle)
	assert.Equal(t, 4, reqs[0].RequiredExperienceYears)
	assert.Equal(t, "system", reqs[0].CreatedBy)

	item := loadIssue(t, s, res.IssueID)
	assert.Equal(t, types.StatusPostingRequired, item.AssignmentStatus)
	assert.Empty(t, item.AssignedUserID)
}

func TestProcess_AssignsApprovedCandidate(t *testing.T) {
	s := store.NewMemory()
	seed(t, s, types.CollectionUsers, fiveUsers()[:2]...)
	client := routedOracle(map[string]string{
		askSkills:   skillsAnswer,
		askEvaluate: `{"selected_user_id": "u2", "confidence": 0.92, "reasoning": "Built the last cache"}`,
	})
	p := newIssuePipeline(s, client, nil)

	res, err := p.Process(context.Background(), types.IssueRequest{Title: "Add cache layer", Priority: types.PriorityHigh})
	require.NoError(t, err)

	assert.Equal(t, OutcomeAssigned, res.Outcome)
	assert.Equal(t, "u2", res.AssignedUserID)
	assert.Equal(t, 0, askedFor(client, askReport))
	assert.Equal(t, 0, s.Count(types.CollectionRequisitions))

	item := loadIssue(t, s, res.IssueID)
	assert.Equal(t, types.StatusAssigned, item.AssignmentStatus)
	assert.Equal(t, "u2", item.AssignedUserID)
	assert.Equal(t, types.PriorityHigh, item.Priority)
	require.Len(t, item.ActivityLog, 2)
	assert.Equal(t, "2024-06-01T09:30:00Z assigned to Grace (confidence 0.92): Built the last cache", item.ActivityLog[1])
}

func TestProcess_DuplicateMergesIntoParent(t *testing.T) {
	s := store.NewMemory()
	e := embedding.NewHashEmbedder()
	ctx := context.Background()
	title, desc := "Login fails after deploy", "Users get 401 on every request"
	parent := types.WorkItem{
		ID:                   "parent-1",
		Title:                "Login broken",
		Description:          "401 errors",
		DescriptionEmbedding: e.Embed(ctx, types.IssueText(title, desc)),
		RequiredSkills:       []string{"Go"},
		Priority:             types.PriorityMedium,
		AssignmentStatus:     types.StatusAssigned,
		ActivityLog:          []string{"created"},
	}
	seed(t, s, types.CollectionIssues, parent)
	client := routedOracle(map[string]string{
		askSkills:    skillsAnswer,
		askDuplicate: `{"is_duplicate": true, "parent_task_id": "parent-1", "confidence": 0.9, "reasoning": "Same 401", "priority_change": "increased", "new_skills_required": ["OAuth"]}`,
	})
	p := newIssuePipeline(s, client, nil)

	res, err := p.Process(ctx, types.IssueRequest{Title: title, Description: desc})
	require.NoError(t, err)

	assert.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, "parent-1", res.IssueID)
	assert.Nil(t, res.Decision)
	assert.Equal(t, 1, s.Count(types.CollectionIssues), "a duplicate never creates a second work item")
	assert.Equal(t, 0, askedFor(client, askEvaluate))

	merged := loadIssue(t, s, "parent-1")
	assert.Equal(t, types.PriorityHigh, merged.Priority)
	assert.Equal(t, []string{"Go", "OAuth"}, merged.RequiredSkills)
	assert.Equal(t, e.Embed(ctx, "Go, OAuth"), merged.SkillEmbedding)
	require.Len(t, merged.ActivityLog, 2)
	assert.Equal(t, "2024-06-01T09:30:00Z duplicate report: Login fails after deploy (confidence 0.90): Same 401", merged.ActivityLog[1])
	assert.Equal(t, types.StatusAssigned, merged.AssignmentStatus)
}

func TestProcess_DuplicateOracleDownCreatesNewItem(t *testing.T) {
	s := store.NewMemory()
	e := embedding.NewHashEmbedder()
	ctx := context.Background()
	seed(t, s, types.CollectionIssues, types.WorkItem{
		ID:                   "parent-1",
		Title:                "Login broken",
		DescriptionEmbedding: e.Embed(ctx, "Login broken"),
		AssignmentStatus:     types.StatusAssigned,
	})
	client := llmtest.Fail(errOracleDown)
	p := newIssuePipeline(s, client, nil)

	res, err := p.Process(ctx, types.IssueRequest{Title: "Login broken"})
	require.NoError(t, err)

	assert.False(t, res.Duplicate.IsDuplicate)
	assert.Equal(t, 0.5, res.Duplicate.Confidence)
	assert.NotEqual(t, "parent-1", res.IssueID)
	assert.Equal(t, 2, s.Count(types.CollectionIssues))
	assert.Equal(t, skills.SourceFallback, res.SkillSource)
	assert.Equal(t, []string{skills.DefaultSkill}, res.RequiredSkills)
	assert.Equal(t, OutcomeEscalated, res.Outcome)
}

func TestProcess_LostRaceLeavesNoRequisition(t *testing.T) {
	s := &racingStore{Memory: store.NewMemory()}
	client := routedOracle(map[string]string{askSkills: skillsAnswer})
	p := newIssuePipeline(s, client, nil)

	res, err := p.Process(context.Background(), types.IssueRequest{Title: "Add cache layer"})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrConcurrentTransition)
	assert.Equal(t, 0, s.Count(types.CollectionRequisitions))
}

func TestProcess_InvalidInput(t *testing.T) {
	s := store.NewMemory()
	client := routedOracle(nil)
	p := newIssuePipeline(s, client, nil)

	_, err := p.Process(context.Background(), types.IssueRequest{Title: "   "})

	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 0, s.Count(types.CollectionIssues))
	assert.Equal(t, 0, client.CallCount())
}

func TestProcess_StoreFailureIsFatal(t *testing.T) {
	p := newIssuePipeline(downStore{Memory: store.NewMemory()}, routedOracle(nil), nil)

	_, err := p.Process(context.Background(), types.IssueRequest{Title: "Add cache layer"})

	var ue *store.UnavailableError
	assert.ErrorAs(t, err, &ue)
}

func TestProcess_EmitsProgress(t *testing.T) {
	var mu sync.Mutex
	var steps []string
	s := store.NewMemory()
	p := newIssuePipeline(s, routedOracle(map[string]string{askSkills: skillsAnswer}), nil)
	p.deps.OnProgress = func(e ProgressEvent) {
		mu.Lock()
		steps = append(steps, e.Step)
		mu.Unlock()
	}

	_, err := p.Process(context.Background(), types.IssueRequest{Title: "Add cache layer"})
	require.NoError(t, err)

	assert.Equal(t, []string{StepSkillsExtracted, StepDuplicateChecked, StepCreated, StepDecided, StepEscalated}, steps)
}

func TestTriageBatch_PositionalResults(t *testing.T) {
	s := store.NewMemory()
	p := newIssuePipeline(s, routedOracle(map[string]string{askSkills: skillsAnswer}), nil)
	requests := []types.IssueRequest{
		{Title: "Payments timeout"},
		{Title: ""},
		{Title: "Search is slow"},
	}

	results := p.TriageBatch(context.Background(), requests, 2)

	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	assert.Equal(t, OutcomeEscalated, results[0].Result.Outcome)
	var ie *InputError
	assert.True(t, errors.As(results[1].Err, &ie))
	assert.Nil(t, results[1].Result)
	require.NoError(t, results[2].Err)
	assert.NotEqual(t, results[0].Result.IssueID, results[2].Result.IssueID)
	assert.Equal(t, 2, s.Count(types.CollectionRequisitions))
}

func TestGet(t *testing.T) {
	s := store.NewMemory()
	seed(t, s, types.CollectionIssues, types.WorkItem{ID: "t-1", Title: "x"})
	p := newIssuePipeline(s, nil, nil)

	item, err := p.Get(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "x", item.Title)

	_, err = p.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProcess_ReportsToContextProgress(t *testing.T) {
	var mu sync.Mutex
	var scoped []string
	s := store.NewMemory()
	p := newIssuePipeline(s, routedOracle(map[string]string{askSkills: skillsAnswer}), nil)

	ctx := WithProgress(context.Background(), func(e ProgressEvent) {
		mu.Lock()
		scoped = append(scoped, e.Step)
		mu.Unlock()
	})
	_, err := p.Process(ctx, types.IssueRequest{Title: "Add cache layer"})
	require.NoError(t, err)

	assert.Equal(t, []string{StepSkillsExtracted, StepDuplicateChecked, StepCreated, StepDecided, StepEscalated}, scoped)

	_, ok := ProgressFromContext(context.Background())
	assert.False(t, ok)
}
