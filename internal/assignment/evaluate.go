package assignment

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/prompts"
	"github.com/jonathan/taskmatch/internal/ranking"
	"github.com/jonathan/taskmatch/internal/schemas"
	"github.com/jonathan/taskmatch/internal/types"
	rootschemas "github.com/jonathan/taskmatch/schemas"
)

const evaluateTemperature = 0.2

// Evaluation is the oracle's batch verdict over the ranked candidates.
// SelectedID is empty when nobody is definitively qualified.
type Evaluation struct {
	SelectedID string  `json:"selected_user_id,omitempty"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type wireEvaluation struct {
	SelectedID *string  `json:"selected_user_id"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

type candidateData struct {
	ID     string
	Name   string
	Skills []string
	Score  float64
	Notes  string
}

// ParseEvaluation leniently reads a candidate-evaluation payload.
func ParseEvaluation(raw string) (Evaluation, error) {
	var w wireEvaluation
	if err := llm.DecodeFirstObject(raw, rootschemas.CandidateEvaluation, schemas.Validator(rootschemas.CandidateEvaluation), &w); err != nil {
		return Evaluation{}, err
	}
	e := Evaluation{Reasoning: w.Reasoning}
	if w.SelectedID != nil {
		e.SelectedID = strings.TrimSpace(*w.SelectedID)
	}
	if w.Confidence != nil {
		e.Confidence = *w.Confidence
	}
	return e, nil
}

// evaluate sends the whole ranked list to the oracle in one call.
func (e *Engine) evaluate(ctx context.Context, item *types.WorkItem, ranked []types.MatchResult) (Evaluation, error) {
	if e.client == nil {
		return Evaluation{}, &llm.UnavailableError{Message: "no oracle configured"}
	}

	data := struct {
		Title          string
		Description    string
		RequiredSkills []string
		Candidates     []candidateData
	}{Title: item.Title, Description: item.Description, RequiredSkills: item.RequiredSkills}
	if strings.TrimSpace(data.Description) == "" {
		data.Description = "No description provided"
	}
	for _, m := range ranked {
		data.Candidates = append(data.Candidates, candidateData{
			ID:     m.Candidate.ID,
			Name:   m.Candidate.Name,
			Skills: m.Candidate.Skills,
			Score:  m.CombinedScore,
			Notes:  ranking.Notes(m, item.RequiredSkills),
		})
	}

	prompt, err := prompts.Render(prompts.Triage, prompts.EvaluateCandidates, data)
	if err != nil {
		return Evaluation{}, err
	}
	raw, err := e.client.GenerateContent(ctx, prompt, llm.GenerateOptions{
		Tier:        llm.TierAdvanced,
		Temperature: evaluateTemperature,
		JSON:        true,
	})
	if err != nil {
		return Evaluation{}, err
	}
	return ParseEvaluation(raw)
}

// selected finds the ranked candidate the evaluation picked. An id outside
// the ranked list counts as no selection.
func selected(eval *Evaluation, ranked []types.MatchResult) *types.MatchResult {
	if eval.SelectedID == "" {
		return nil
	}
	for i := range ranked {
		if ranked[i].Candidate.ID == eval.SelectedID {
			return &ranked[i]
		}
	}
	eval.Reasoning = strings.TrimSpace(fmt.Sprintf("%s (selected %q is not a ranked candidate)", eval.Reasoning, eval.SelectedID))
	eval.SelectedID = ""
	return nil
}
