package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/taskmatch/internal/assignment"
	"github.com/jonathan/taskmatch/internal/duplicates"
	"github.com/jonathan/taskmatch/internal/escalation"
	"github.com/jonathan/taskmatch/internal/pipeline"
	"github.com/jonathan/taskmatch/internal/profile"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/types"
)

func TestPrintIssueResult_Assigned(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintIssueResult(&pipeline.IssueResult{
		IssueID:        "t-1",
		Outcome:        pipeline.OutcomeAssigned,
		RequiredSkills: []string{"Go", "PostgreSQL"},
		SkillSource:    skills.SourceOracle,
		AssignedUserID: "u-7",
		Decision: &assignment.Outcome{
			State: assignment.StateAssigned,
			Ranked: []types.MatchResult{
				{Candidate: types.Candidate{ID: "u-7", Name: "Ada"}, CombinedScore: 0.91},
				{Candidate: types.Candidate{ID: "u-8", Name: "Linus"}, CombinedScore: 0.62},
			},
			Evaluation: &assignment.Evaluation{SelectedID: "u-7", Confidence: 0.9, Reasoning: "Strong Go background"},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "TRIAGE RESULT")
	assert.Contains(t, output, "assigned")
	assert.Contains(t, output, "Go, PostgreSQL")
	assert.Contains(t, output, "#1  Ada  0.91")
	assert.Contains(t, output, "Strong Go background")
}

func TestPrintIssueResult_MergedAndEscalated(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintIssueResult(&pipeline.IssueResult{
		IssueID: "t-parent",
		Outcome: pipeline.OutcomeMerged,
		Duplicate: duplicates.Verdict{
			IsDuplicate: true, ParentID: "t-parent", Confidence: 0.88, Reasoning: "Same crash",
		},
	})
	assert.Contains(t, buf.String(), "Duplicate of t-parent (confidence 0.88)")

	buf.Reset()
	p.PrintIssueResult(&pipeline.IssueResult{
		IssueID:       "t-2",
		Outcome:       pipeline.OutcomeEscalated,
		RequisitionID: "r-1",
		Report: &escalation.Report{
			SuggestedTitle:       "Rust Developer",
			SuggestedDescription: "<h2>About the Role</h2><p>Build the   ingest service.</p><script>x()</script>",
			MissingSkills:        []string{"Rust"},
			Message:              "No developer knows Rust",
		},
	})
	assert.Contains(t, buf.String(), "Requisition r-1: Rust Developer")
	assert.Contains(t, buf.String(), "Missing:  Rust")
	assert.Contains(t, buf.String(), "Posting:  About the Role Build the ingest service.")
	assert.NotContains(t, buf.String(), "<h2>")
	assert.NotContains(t, buf.String(), "x()")
}

func TestPrintIssueResult_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintIssueResult(nil)
	assert.Empty(t, buf.String())
}

func TestPrintCommitResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCommitResult(&pipeline.CommitResult{
		CommitID: "c-1",
		Analysis: skills.CommitAnalysis{
			Summary:    "Added Redis caching",
			SkillsUsed: []string{"Redis", "Go"},
			Impact:     types.ImpactModerate,
		},
		TaskID:         "t-1",
		TaskSimilarity: 0.74,
		IsTracked:      true,
		AuthorID:       "u-1",
		ProfileUpdated: true,
		Profile:        &profile.Decision{NeedsUpdate: true, NewSkills: []string{"Redis"}},
	})
	output := buf.String()

	assert.Contains(t, output, "moderate")
	assert.Contains(t, output, "t-1 (similarity 0.74, tracked true)")
	assert.Contains(t, output, "Profile updated: +Redis")
}

func TestPrintRequisitions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRequisitions(nil)
	assert.Contains(t, buf.String(), "(none)")

	buf.Reset()
	p.PrintRequisitions([]types.Requisition{
		{ID: "r-1", Status: types.RequisitionPending, SuggestedTitle: "Rust Developer", RequiredSkills: []string{"Rust"}, Description: "<p>Own the <b>Rust</b> parser.</p>"},
		{ID: "r-2", Status: types.RequisitionClosed, SuggestedTitle: "Go Developer", RequiredSkills: []string{"Go"}},
	})
	assert.Contains(t, buf.String(), "REQUISITIONS (2)")
	assert.Contains(t, buf.String(), "Rust Developer")
	assert.Contains(t, buf.String(), "Own the Rust parser.")
	assert.NotContains(t, buf.String(), "<p>")
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProgress(pipeline.ProgressEvent{Step: pipeline.StepCreated, ItemID: "t-1", Message: "Created work item"})
	assert.Contains(t, buf.String(), "created")
	assert.Contains(t, buf.String(), "[t-1]")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("T", strings.Repeat("x", 200))
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}
