// Package escalation drafts the hiring requisition raised when no candidate
// is approved for a work item. Drafts always start pending; nothing here
// publishes them.
package escalation

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/prompts"
	"github.com/jonathan/taskmatch/internal/schemas"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/types"
	rootschemas "github.com/jonathan/taskmatch/schemas"
	"go.uber.org/zap"
)

const reportTemperature = 0.3

// DefaultExperienceYears is used when the oracle gives no experience level.
const DefaultExperienceYears = 2

// CreatedBySystem marks requisitions drafted by the pipeline.
const CreatedBySystem = "system"

// DefaultRecommendations are reported when the oracle gives none.
var DefaultRecommendations = []string{
	"Review existing team skills",
	"Consider training current developers",
	"Evaluate external hiring needs",
}

// Source records how a report was produced.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
)

// Report is a skills-gap assessment with a requisition draft.
type Report struct {
	Severity                string   `json:"severity"`
	Message                 string   `json:"message"`
	MissingSkills           []string `json:"missing_skills"`
	Recommendations         []string `json:"recommendations"`
	ShouldPostJob           bool     `json:"should_post_job"`
	SuggestedTitle          string   `json:"suggested_job_title"`
	SuggestedDescription    string   `json:"suggested_job_description"`
	RequiredExperienceYears int      `json:"required_experience_years"`
	Source                  Source   `json:"source"`
}

type wireReport struct {
	Severity                string   `json:"severity"`
	Message                 string   `json:"message"`
	MissingSkills           []string `json:"missing_skills"`
	Recommendations         []string `json:"recommendations"`
	ShouldPostJob           *bool    `json:"should_post_job"`
	SuggestedTitle          string   `json:"suggested_job_title"`
	SuggestedDescription    string   `json:"suggested_job_description"`
	RequiredExperienceYears *int     `json:"required_experience_years"`
}

// Generator builds reports.
type Generator struct {
	client llm.Client
	logger *zap.Logger
}

// NewGenerator returns a Generator. A nil client always uses the template.
func NewGenerator(client llm.Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger.Named("escalation")}
}

// Build drafts a report for a work item nobody qualified for.
func (g *Generator) Build(ctx context.Context, title, description string, requiredSkills []string, poolSize int) Report {
	report, err := g.fromOracle(ctx, title, description, requiredSkills, poolSize)
	if err != nil {
		g.logger.Warn("requisition draft fell back to template",
			zap.String("title", title),
			zap.Error(err))
		return Fallback(description, requiredSkills)
	}
	return report
}

func (g *Generator) fromOracle(ctx context.Context, title, description string, requiredSkills []string, poolSize int) (Report, error) {
	if g.client == nil {
		return Report{}, &llm.UnavailableError{Message: "no oracle configured"}
	}
	if strings.TrimSpace(description) == "" {
		description = "No description provided"
	}
	prompt, err := prompts.Render(prompts.Triage, prompts.NoMatchReport, struct {
		Title          string
		Description    string
		RequiredSkills []string
		PoolSize       int
	}{Title: title, Description: description, RequiredSkills: requiredSkills, PoolSize: poolSize})
	if err != nil {
		return Report{}, err
	}

	raw, err := g.client.GenerateContent(ctx, prompt, llm.GenerateOptions{
		Tier:        llm.TierAdvanced,
		Temperature: reportTemperature,
		JSON:        true,
	})
	if err != nil {
		return Report{}, err
	}

	var w wireReport
	if err := llm.DecodeFirstObject(raw, rootschemas.NoMatchReport, schemas.Validator(rootschemas.NoMatchReport), &w); err != nil {
		return Report{}, err
	}
	return completeReport(w, description, requiredSkills, g.logger), nil
}

// completeReport fills whatever the oracle left out.
func completeReport(w wireReport, description string, requiredSkills []string, logger *zap.Logger) Report {
	r := Report{
		Severity:             w.Severity,
		Message:              w.Message,
		MissingSkills:        skills.Clean(w.MissingSkills, 0),
		Recommendations:      w.Recommendations,
		ShouldPostJob:        true,
		SuggestedTitle:       strings.TrimSpace(w.SuggestedTitle),
		SuggestedDescription: w.SuggestedDescription,
		Source:               SourceOracle,
	}
	if r.Severity == "" {
		r.Severity = "critical"
	}
	if r.Message == "" {
		r.Message = gapMessage(requiredSkills)
	}
	if len(r.MissingSkills) == 0 {
		r.MissingSkills = requiredSkills
	}
	if len(r.Recommendations) == 0 {
		r.Recommendations = DefaultRecommendations
	}
	if w.ShouldPostJob != nil {
		r.ShouldPostJob = *w.ShouldPostJob
	}
	if r.SuggestedTitle == "" {
		r.SuggestedTitle = FallbackTitle(requiredSkills)
	}
	r.RequiredExperienceYears = DefaultExperienceYears
	if w.RequiredExperienceYears != nil {
		r.RequiredExperienceYears = *w.RequiredExperienceYears
	}
	if !Readable(r.SuggestedDescription) {
		logger.Debug("oracle job description unusable, using template",
			zap.String("suggested_title", r.SuggestedTitle))
		r.SuggestedDescription = FallbackJobDescription(r.SuggestedTitle, requiredSkills, description)
	}
	return r
}

// Fallback is the deterministic report used when the oracle fails.
func Fallback(description string, requiredSkills []string) Report {
	title := FallbackTitle(requiredSkills)
	return Report{
		Severity:                "critical",
		Message:                 gapMessage(requiredSkills),
		MissingSkills:           requiredSkills,
		Recommendations:         DefaultRecommendations,
		ShouldPostJob:           true,
		SuggestedTitle:          title,
		SuggestedDescription:    FallbackJobDescription(title, requiredSkills, description),
		RequiredExperienceYears: DefaultExperienceYears,
		Source:                  SourceFallback,
	}
}

func gapMessage(requiredSkills []string) string {
	if len(requiredSkills) == 0 {
		return "No developers available for this task"
	}
	return "No developers found with required skills: " + strings.Join(requiredSkills, ", ")
}

// Requisition turns a report into a pending requisition for taskID.
func (r Report) Requisition(taskID string, requiredSkills []string, now time.Time) types.Requisition {
	return types.Requisition{
		TaskID:                  taskID,
		SuggestedTitle:          r.SuggestedTitle,
		Description:             r.SuggestedDescription,
		RequiredSkills:          requiredSkills,
		MissingSkills:           r.MissingSkills,
		RequiredExperienceYears: r.RequiredExperienceYears,
		Status:                  types.RequisitionPending,
		CreatedBy:               CreatedBySystem,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}
