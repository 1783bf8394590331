package duplicates

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/llm/llmtest"
	"github.com/jonathan/taskmatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var priors = []types.WorkItem{
	{ID: "t-1", Title: "Login fails with JWT", Description: "Tokens rejected", Priority: types.PriorityMedium, RequiredSkills: []string{"Go", "JWT Authentication"}},
	{ID: "t-2", Title: "Slow dashboard", Description: "Queries time out"},
}

func TestCheck_NoPriorsSkipsOracle(t *testing.T) {
	client := llmtest.Respond(`{"is_duplicate": true}`)
	d := NewDetector(client, nil, Options{})

	v := d.Check(context.Background(), "New issue", "", nil)

	assert.False(t, v.IsDuplicate)
	assert.Equal(t, 1.0, v.Confidence)
	assert.Equal(t, "No similar issues found", v.Reasoning)
	assert.Equal(t, SourceNoPriors, v.Source)
	assert.Equal(t, 0, client.CallCount())
}

func TestCheck_OracleConfirmsDuplicate(t *testing.T) {
	client := llmtest.Respond("```json\n" + `{"is_duplicate": true, "parent_task_id": "t-1", "confidence": 0.85,
		"reasoning": "Same login failure", "priority_change": "increased", "new_skills_required": ["OAuth", " "]}` + "\n```")
	d := NewDetector(client, nil, Options{})

	v := d.Check(context.Background(), "Login still broken", "Users locked out", priors)

	assert.True(t, v.IsDuplicate)
	assert.Equal(t, "t-1", v.ParentID)
	assert.Equal(t, 0.85, v.Confidence)
	assert.Equal(t, PriorityIncreased, v.PriorityChange)
	assert.Equal(t, []string{"OAuth"}, v.NewSkillsRequired)
	assert.Equal(t, SourceOracle, v.Source)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Issue 1 (ID: t-1)")
	assert.Contains(t, calls[0].Prompt, "Issue 2 (ID: t-2)")
	assert.Contains(t, calls[0].Prompt, "Skills: Go, JWT Authentication")
	assert.Contains(t, calls[0].Prompt, "Skills: none")
	assert.Equal(t, llm.TierStandard, calls[0].Opts.Tier)
	assert.True(t, calls[0].Opts.JSON)
}

func TestCheck_UnknownParentDowngraded(t *testing.T) {
	client := llmtest.Respond(`{"is_duplicate": true, "parent_task_id": "t-99", "confidence": 0.9, "reasoning": "looks alike"}`)
	d := NewDetector(client, nil, Options{})

	v := d.Check(context.Background(), "x", "y", priors)

	assert.False(t, v.IsDuplicate)
	assert.Empty(t, v.ParentID)
	assert.Contains(t, v.Reasoning, `"t-99"`)
}

func TestCheck_DuplicateWithoutParentDowngraded(t *testing.T) {
	client := llmtest.Respond(`{"is_duplicate": true, "parent_task_id": null, "confidence": 0.9, "reasoning": "r"}`)
	v := NewDetector(client, nil, Options{}).Check(context.Background(), "x", "y", priors)

	assert.False(t, v.IsDuplicate)
	assert.Empty(t, v.ParentID)
}

func TestCheck_NotDuplicateClearsParent(t *testing.T) {
	client := llmtest.Respond(`{"is_duplicate": false, "parent_task_id": "t-1", "confidence": 0.4, "reasoning": "different"}`)
	v := NewDetector(client, nil, Options{}).Check(context.Background(), "x", "y", priors)

	assert.False(t, v.IsDuplicate)
	assert.Empty(t, v.ParentID)
	assert.Equal(t, 0.4, v.Confidence)
}

func TestCheck_FallbackBiasesToNewIssue(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
	}{
		{name: "oracle unavailable", client: llmtest.Fail(&llm.UnavailableError{Message: "timeout"})},
		{name: "not json", client: llmtest.Respond("I think it is a duplicate of t-1")},
		{name: "schema violation", client: llmtest.Respond(`{"is_duplicate": "yes", "confidence": 3}`)},
		{name: "bad priority change", client: llmtest.Respond(`{"is_duplicate": true, "parent_task_id": "t-1", "confidence": 0.8, "priority_change": "sideways"}`)},
		{name: "nil client", client: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewDetector(tt.client, nil, Options{}).Check(context.Background(), "x", "y", priors)
			assert.False(t, v.IsDuplicate)
			assert.Empty(t, v.ParentID)
			assert.Equal(t, 0.5, v.Confidence)
			assert.Equal(t, SourceFallback, v.Source)
		})
	}
}

func TestCheck_TruncatesPriorsToTopK(t *testing.T) {
	client := llmtest.Respond(`{"is_duplicate": false, "confidence": 0.2, "reasoning": "no"}`)
	d := NewDetector(client, nil, Options{TopK: 1})

	d.Check(context.Background(), "x", "y", priors)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].Prompt, "t-2")
}

func TestShortlist(t *testing.T) {
	items := []types.WorkItem{
		{ID: "far", DescriptionEmbedding: embedding.Vector{0, 1}},
		{ID: "near", DescriptionEmbedding: embedding.Vector{0.95, 0.05}},
		{ID: "same", DescriptionEmbedding: embedding.Vector{1, 0}},
		{ID: "unembedded"},
	}
	d := NewDetector(nil, nil, Options{})

	got := d.Shortlist(embedding.Vector{1, 0}, items)

	require.Len(t, got, 2)
	assert.Equal(t, "same", got[0].ID)
	assert.Equal(t, "near", got[1].ID)
}

func TestParseVerdict_Error(t *testing.T) {
	_, err := ParseVerdict("")
	var malformed *llm.MalformedError
	assert.True(t, errors.As(err, &malformed))
}
