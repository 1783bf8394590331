// Package duplicates decides whether a new issue continues an existing one.
// The detector prefers a false negative: any oracle failure means "new issue".
package duplicates

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/prompts"
	"github.com/jonathan/taskmatch/internal/ranking"
	"github.com/jonathan/taskmatch/internal/schemas"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/types"
	rootschemas "github.com/jonathan/taskmatch/schemas"
	"go.uber.org/zap"
)

const checkTemperature = 0.3

// Confidence reported without an oracle verdict.
const (
	NoPriorsConfidence = 1.0
	FallbackConfidence = 0.5
)

// PriorityChange is the oracle's view of how urgency moved.
type PriorityChange string

const (
	PriorityUnchanged PriorityChange = ""
	PriorityIncreased PriorityChange = "increased"
	PriorityDecreased PriorityChange = "decreased"
)

// Source records how a verdict was reached.
type Source string

const (
	SourceNoPriors Source = "no_priors"
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
)

// Verdict is the result of a duplicate check. ParentID is set only when
// IsDuplicate is true.
type Verdict struct {
	IsDuplicate       bool           `json:"is_duplicate"`
	ParentID          string         `json:"parent_task_id,omitempty"`
	Confidence        float64        `json:"confidence"`
	Reasoning         string         `json:"reasoning"`
	PriorityChange    PriorityChange `json:"priority_change,omitempty"`
	NewSkillsRequired []string       `json:"new_skills_required"`
	Source            Source         `json:"source"`
}

// wireVerdict is the oracle payload shape.
type wireVerdict struct {
	IsDuplicate       bool     `json:"is_duplicate"`
	ParentID          *string  `json:"parent_task_id"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	PriorityChange    *string  `json:"priority_change"`
	NewSkillsRequired []string `json:"new_skills_required"`
}

// Detector runs duplicate checks.
type Detector struct {
	client        llm.Client
	logger        *zap.Logger
	minSimilarity float64
	topK          int
}

// Options tunes the prior-item shortlist.
type Options struct {
	MinSimilarity float64
	TopK          int
}

// NewDetector returns a Detector. Zero options use ranking.DuplicateMinSimilarity
// and ranking.DuplicateTopK.
func NewDetector(client llm.Client, logger *zap.Logger, opts Options) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = ranking.DuplicateMinSimilarity
	}
	if opts.TopK <= 0 {
		opts.TopK = ranking.DuplicateTopK
	}
	return &Detector{
		client:        client,
		logger:        logger.Named("duplicates"),
		minSimilarity: opts.MinSimilarity,
		topK:          opts.TopK,
	}
}

// Shortlist selects the prior items worth showing the oracle.
func (d *Detector) Shortlist(query embedding.Vector, items []types.WorkItem) []types.WorkItem {
	scored := ranking.SimilarWorkItems(query, items, d.minSimilarity, d.topK)
	out := make([]types.WorkItem, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Item)
	}
	return out
}

type priorData struct {
	ID          string
	Title       string
	Description string
	Priority    types.Priority
	Skills      []string
}

// Check judges title/description against the shortlisted priors. An empty
// shortlist never reaches the oracle.
func (d *Detector) Check(ctx context.Context, title, description string, priors []types.WorkItem) Verdict {
	if len(priors) == 0 {
		return Verdict{
			Confidence: NoPriorsConfidence,
			Reasoning:  "No similar issues found",
			Source:     SourceNoPriors,
		}
	}
	if len(priors) > d.topK {
		priors = priors[:d.topK]
	}

	verdict, err := d.ask(ctx, title, description, priors)
	if err != nil {
		d.logger.Warn("duplicate check fell back to new issue",
			zap.String("title", title),
			zap.Int("priors", len(priors)),
			zap.Error(err))
		return Verdict{
			Confidence: FallbackConfidence,
			Reasoning:  "Duplicate analysis unavailable, treating as a new issue",
			Source:     SourceFallback,
		}
	}
	return verdict
}

func (d *Detector) ask(ctx context.Context, title, description string, priors []types.WorkItem) (Verdict, error) {
	if d.client == nil {
		return Verdict{}, &llm.UnavailableError{Message: "no oracle configured"}
	}

	data := struct {
		Title       string
		Description string
		Priors      []priorData
	}{Title: title, Description: description}
	for _, p := range priors {
		priority := p.Priority
		if priority == "" {
			priority = types.PriorityMedium
		}
		data.Priors = append(data.Priors, priorData{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Priority:    priority,
			Skills:      p.RequiredSkills,
		})
	}

	prompt, err := prompts.Render(prompts.Triage, prompts.CheckDuplicate, data)
	if err != nil {
		return Verdict{}, err
	}
	raw, err := d.client.GenerateContent(ctx, prompt, llm.GenerateOptions{
		Tier:        llm.TierStandard,
		Temperature: checkTemperature,
		JSON:        true,
	})
	if err != nil {
		return Verdict{}, err
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		return Verdict{}, err
	}
	return constrainParent(verdict, priors), nil
}

// ParseVerdict leniently reads a duplicate-check payload from an oracle answer.
func ParseVerdict(raw string) (Verdict, error) {
	var w wireVerdict
	if err := llm.DecodeFirstObject(raw, rootschemas.DuplicateCheck, schemas.Validator(rootschemas.DuplicateCheck), &w); err != nil {
		return Verdict{}, err
	}

	v := Verdict{
		IsDuplicate:       w.IsDuplicate,
		Confidence:        w.Confidence,
		Reasoning:         w.Reasoning,
		NewSkillsRequired: skills.Clean(w.NewSkillsRequired, skills.MaxSkills),
		Source:            SourceOracle,
	}
	if w.ParentID != nil {
		v.ParentID = strings.TrimSpace(*w.ParentID)
	}
	if w.PriorityChange != nil {
		v.PriorityChange = PriorityChange(*w.PriorityChange)
	}
	return v, nil
}

// constrainParent only lets a verdict name a parent that was shortlisted.
func constrainParent(v Verdict, priors []types.WorkItem) Verdict {
	if !v.IsDuplicate {
		v.ParentID = ""
		return v
	}
	for _, p := range priors {
		if p.ID == v.ParentID {
			return v
		}
	}
	reason := "no parent given"
	if v.ParentID != "" {
		reason = fmt.Sprintf("parent %q was not among the similar issues", v.ParentID)
	}
	v.IsDuplicate = false
	v.ParentID = ""
	v.Reasoning = strings.TrimSpace(v.Reasoning + " (" + reason + ", treated as a new issue)")
	return v
}
