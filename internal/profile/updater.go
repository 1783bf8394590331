// Package profile evolves a contributor's recorded skills from their commits.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/prompts"
	"github.com/jonathan/taskmatch/internal/schemas"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/store"
	"github.com/jonathan/taskmatch/internal/types"
	rootschemas "github.com/jonathan/taskmatch/schemas"
	"go.uber.org/zap"
)

const updateTemperature = 0.3

// Source records how a decision was reached.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
)

// Decision says whether a profile should change and how.
type Decision struct {
	NeedsUpdate bool     `json:"needs_update"`
	Reasoning   string   `json:"reasoning"`
	NewSkills   []string `json:"new_skills_to_add"`
	// UpdatedProfileText is empty when the text should stay as is.
	UpdatedProfileText string `json:"updated_profile_text,omitempty"`
	Source             Source `json:"source"`
}

type wireDecision struct {
	NeedsUpdate        bool     `json:"needs_update"`
	Reasoning          string   `json:"reasoning"`
	NewSkills          []string `json:"new_skills_to_add"`
	UpdatedProfileText *string  `json:"updated_profile_text"`
}

// Updater decides profile updates.
type Updater struct {
	client llm.Client
	logger *zap.Logger
}

// NewUpdater returns an Updater. A nil client always uses the set difference.
func NewUpdater(client llm.Client, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{client: client, logger: logger.Named("profile")}
}

// Check decides whether the commit's skills warrant a profile update.
func (u *Updater) Check(ctx context.Context, currentSkills []string, profileText string, commitSkills []string, commitSummary string) Decision {
	d, err := u.fromOracle(ctx, currentSkills, profileText, commitSkills, commitSummary)
	if err != nil {
		u.logger.Warn("profile check fell back to skill difference", zap.Error(err))
		return Fallback(currentSkills, commitSkills)
	}
	return d
}

func (u *Updater) fromOracle(ctx context.Context, currentSkills []string, profileText string, commitSkills []string, commitSummary string) (Decision, error) {
	if u.client == nil {
		return Decision{}, &llm.UnavailableError{Message: "no oracle configured"}
	}
	prompt, err := prompts.Render(prompts.Triage, prompts.ProfileUpdate, struct {
		CurrentSkills []string
		ProfileText   string
		CommitSummary string
		CommitSkills  []string
	}{currentSkills, profileText, commitSummary, commitSkills})
	if err != nil {
		return Decision{}, err
	}

	raw, err := u.client.GenerateContent(ctx, prompt, llm.GenerateOptions{
		Tier:        llm.TierStandard,
		Temperature: updateTemperature,
		JSON:        true,
	})
	if err != nil {
		return Decision{}, err
	}

	var w wireDecision
	if err := llm.DecodeFirstObject(raw, rootschemas.ProfileUpdate, schemas.Validator(rootschemas.ProfileUpdate), &w); err != nil {
		return Decision{}, err
	}

	d := Decision{
		Reasoning: w.Reasoning,
		NewSkills: []string(types.SkillSet(skills.Clean(w.NewSkills, 0)).Difference(currentSkills)),
		Source:    SourceOracle,
	}
	if w.UpdatedProfileText != nil {
		d.UpdatedProfileText = strings.TrimSpace(*w.UpdatedProfileText)
	}
	d.NeedsUpdate = w.NeedsUpdate && (len(d.NewSkills) > 0 || d.UpdatedProfileText != "")
	return d, nil
}

// Fallback adds every commit skill the profile lacks and never rewrites text.
func Fallback(currentSkills, commitSkills []string) Decision {
	added := types.SkillSet(commitSkills).Difference(currentSkills)
	d := Decision{
		NeedsUpdate: len(added) > 0,
		NewSkills:   []string(added),
		Reasoning:   "No new skills detected",
		Source:      SourceFallback,
	}
	if d.NeedsUpdate {
		d.Reasoning = fmt.Sprintf("Detected %d new skills", len(added))
	}
	return d
}

// Change is the new profile state of a candidate.
type Change struct {
	Skills           []string
	ProfileEmbedding embedding.Vector
	ProfileText      string
}

// Apply merges the decision into candidate and re-embeds the merged skills.
// It reports false when the decision changes nothing.
func Apply(ctx context.Context, embedder embedding.Embedder, candidate types.Candidate, d Decision) (Change, bool) {
	if !d.NeedsUpdate {
		return Change{}, false
	}
	merged := types.SkillSet(candidate.Skills).Merge(d.NewSkills...)
	return Change{
		Skills:           []string(merged),
		ProfileEmbedding: embedder.Embed(ctx, embedding.JoinSkills(merged)),
		ProfileText:      d.UpdatedProfileText,
	}, true
}

// Update is the store patch for the change. Profile text is only written when
// a new one was produced.
func (c Change) Update() store.Update {
	set := map[string]any{
		"skills":                 c.Skills,
		"work_profile_embedding": c.ProfileEmbedding,
	}
	if c.ProfileText != "" {
		set["work_profile"] = c.ProfileText
	}
	return store.Update{Set: set}
}
