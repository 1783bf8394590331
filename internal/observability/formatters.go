// Package observability provides formatted output utilities for the CLI's
// text mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jonathan/taskmatch/internal/escalation"
	"github.com/jonathan/taskmatch/internal/pipeline"
	"github.com/jonathan/taskmatch/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// previewRunes bounds the job description text shown for a requisition
	previewRunes = 120
)

// Printer handles formatted output for text mode. It is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to a terminal; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func joinSkills(skills []string) string {
	if len(skills) == 0 {
		return "(none)"
	}
	return strings.Join(skills, ", ")
}

// PrintProgress outputs one pipeline step as a single line.
//
//nolint:errcheck
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.ItemID != "" {
		fmt.Fprintf(p.out, "• %-18s %s [%s]\n", event.Step, event.Message, event.ItemID)
		return
	}
	fmt.Fprintf(p.out, "• %-18s %s\n", event.Step, event.Message)
}

// PrintIssueResult outputs a human-readable summary of one triaged issue.
func (p *Printer) PrintIssueResult(result *pipeline.IssueResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Issue:    %s\n", result.IssueID))
	sb.WriteString(fmt.Sprintf("Outcome:  %s\n", result.Outcome))
	sb.WriteString(fmt.Sprintf("Skills:   %s (%s)\n", joinSkills(result.RequiredSkills), result.SkillSource))

	switch result.Outcome {
	case pipeline.OutcomeMerged:
		sb.WriteString(fmt.Sprintf("\nDuplicate of %s (confidence %.2f)\n", result.Duplicate.ParentID, result.Duplicate.Confidence))
		sb.WriteString(result.Duplicate.Reasoning)
	case pipeline.OutcomeAssigned:
		sb.WriteString(fmt.Sprintf("Assignee: %s\n", result.AssignedUserID))
	}

	if d := result.Decision; d != nil && len(d.Ranked) > 0 {
		sb.WriteString("\nCandidates:\n")
		count := min(len(d.Ranked), maxItemsToShow)
		for i := 0; i < count; i++ {
			m := d.Ranked[i]
			sb.WriteString(fmt.Sprintf("  #%d  %s  %.2f\n", i+1, m.Candidate.Name, m.CombinedScore))
		}
		if len(d.Ranked) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(d.Ranked)-maxItemsToShow))
		}
		if d.Evaluation != nil && d.Evaluation.Reasoning != "" {
			sb.WriteString("\n" + d.Evaluation.Reasoning + "\n")
		}
	}

	if r := result.Report; r != nil {
		sb.WriteString(fmt.Sprintf("\nRequisition %s: %s\n", result.RequisitionID, r.SuggestedTitle))
		sb.WriteString(fmt.Sprintf("Missing:  %s\n", joinSkills(r.MissingSkills)))
		if preview := escalation.Preview(r.SuggestedDescription, previewRunes); preview != "" {
			sb.WriteString(fmt.Sprintf("Posting:  %s\n", preview))
		}
		sb.WriteString(r.Message)
	}

	p.printBox("TRIAGE RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCommitResult outputs a human-readable summary of one ingested commit.
func (p *Printer) PrintCommitResult(result *pipeline.CommitResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Commit:   %s\n", result.CommitID))
	sb.WriteString(fmt.Sprintf("Impact:   %s\n", result.Analysis.Impact))
	sb.WriteString(fmt.Sprintf("Skills:   %s\n", joinSkills(result.Analysis.SkillsUsed)))
	if result.TaskID != "" {
		sb.WriteString(fmt.Sprintf("Task:     %s (similarity %.2f, tracked %t)\n", result.TaskID, result.TaskSimilarity, result.IsTracked))
	} else {
		sb.WriteString("Task:     (unlinked)\n")
	}
	if result.AuthorID == "" {
		sb.WriteString("Author:   (unknown)\n")
	} else {
		sb.WriteString(fmt.Sprintf("Author:   %s\n", result.AuthorID))
	}
	if result.ProfileUpdated && result.Profile != nil {
		sb.WriteString(fmt.Sprintf("\nProfile updated: +%s\n", joinSkills(result.Profile.NewSkills)))
	}
	sb.WriteString("\n" + result.Analysis.Summary)

	p.printBox("COMMIT", sb.String())
}

// PrintRequisitions outputs one line per requisition.
func (p *Printer) PrintRequisitions(reqs []types.Requisition) {
	if len(reqs) == 0 {
		p.printBox("REQUISITIONS", "(none)")
		return
	}

	var sb strings.Builder
	for i, r := range reqs {
		sb.WriteString(fmt.Sprintf("%-8s %s  %s\n", r.Status, r.ID, r.SuggestedTitle))
		sb.WriteString(fmt.Sprintf("         %s", joinSkills(r.RequiredSkills)))
		if preview := escalation.Preview(r.Description, previewRunes); preview != "" {
			sb.WriteString(fmt.Sprintf("\n         %s", preview))
		}
		if i < len(reqs)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(fmt.Sprintf("REQUISITIONS (%d)", len(reqs)), sb.String())
}
