// Package skills derives skill tags from work items and commits. The oracle is
// tried first; every failure falls back to a deterministic keyword table.
package skills

import (
	"context"
	"strings"

	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/prompts"
	"github.com/jonathan/taskmatch/internal/schemas"
	rootschemas "github.com/jonathan/taskmatch/schemas"
	"go.uber.org/zap"
)

const extractTemperature = 0.3

// Source records where an extraction came from.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
)

// Extraction is an ordered skill list with its provenance.
type Extraction struct {
	Skills []string
	Source Source
}

// Extractor extracts required skills from work items.
type Extractor struct {
	client llm.Client
	logger *zap.Logger
}

// NewExtractor returns an Extractor. A nil client always uses the fallback.
func NewExtractor(client llm.Client, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, logger: logger.Named("skills")}
}

type extractPromptData struct {
	Project     string
	Title       string
	Description string
}

// Extract returns up to MaxSkills skills for the work item, most important first.
func (e *Extractor) Extract(ctx context.Context, title, description, project string) Extraction {
	if e.client == nil {
		return Extraction{Skills: Fallback(title, description), Source: SourceFallback}
	}

	skills, err := e.fromOracle(ctx, title, description, project)
	if err != nil {
		e.logger.Warn("skill extraction fell back to keyword table",
			zap.String("title", title),
			zap.Error(err))
		return Extraction{Skills: Fallback(title, description), Source: SourceFallback}
	}
	return Extraction{Skills: skills, Source: SourceOracle}
}

func (e *Extractor) fromOracle(ctx context.Context, title, description, project string) ([]string, error) {
	if strings.TrimSpace(description) == "" {
		description = "No description provided"
	}
	if project == "" {
		project = "Unspecified"
	}
	prompt, err := prompts.Render(prompts.Triage, prompts.ExtractSkills, extractPromptData{
		Project:     project,
		Title:       title,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	raw, err := e.client.GenerateContent(ctx, prompt, llm.GenerateOptions{
		Tier:        llm.TierLite,
		Temperature: extractTemperature,
	})
	if err != nil {
		return nil, err
	}
	return ParseSkills(raw)
}

// ParseSkills leniently reads a skill array out of an oracle answer. The result
// is normalized, deduplicated and capped; an empty list is malformed.
func ParseSkills(raw string) ([]string, error) {
	var labels []string
	if err := llm.DecodeArray(raw, rootschemas.SkillList, schemas.Validator(rootschemas.SkillList), &labels); err != nil {
		return nil, err
	}
	cleaned := Clean(labels, MaxSkills)
	if len(cleaned) == 0 {
		return nil, &llm.MalformedError{Payload: rootschemas.SkillList, Message: "no usable skill labels"}
	}
	return cleaned, nil
}
