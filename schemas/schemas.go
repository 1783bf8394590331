// Package schemas embeds the JSON Schemas describing every structured payload
// exchanged with the reasoning oracle.
package schemas

import (
	"embed"
	"fmt"
)

//go:embed *.schema.json
var files embed.FS

// Payload names, each backed by <name>.schema.json.
const (
	SkillList           = "skill_list"
	DuplicateCheck      = "duplicate_check"
	CandidateEvaluation = "candidate_evaluation"
	NoMatchReport       = "no_match_report"
	ProfileUpdate       = "profile_update"
	CommitAnalysis      = "commit_analysis"
)

// All lists every embedded payload name.
var All = []string{SkillList, DuplicateCheck, CandidateEvaluation, NoMatchReport, ProfileUpdate, CommitAnalysis}

// Load returns the schema document for payload.
func Load(payload string) (string, error) {
	data, err := files.ReadFile(payload + ".schema.json")
	if err != nil {
		return "", fmt.Errorf("unknown schema %q: %w", payload, err)
	}
	return string(data), nil
}
