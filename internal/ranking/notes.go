package ranking

import (
	"fmt"
	"strings"

	"github.com/jonathan/taskmatch/internal/types"
)

// Notes creates a brief explanation of a match for logs and oracle prompts.
func Notes(m types.MatchResult, requiredSkills []string) string {
	var parts []string

	matched := make([]string, 0)
	for _, s := range types.SkillSet(requiredSkills).Merge() {
		if types.SkillSet(m.Candidate.Skills).Contains(s) {
			matched = append(matched, s)
		}
	}

	switch {
	case len(matched) == 0:
		parts = append(parts, "No listed skill matches")
	case len(matched) == len(types.SkillSet(requiredSkills).Merge()):
		parts = append(parts, fmt.Sprintf("All required skills listed (%s)", strings.Join(matched, ", ")))
	default:
		parts = append(parts, fmt.Sprintf("Partial skill match (%s)", strings.Join(matched, ", ")))
	}

	// Overlap mode leaves SkillSimilarity unset; the listed-skill line covers it.
	switch {
	case m.SkillSimilarity == 0:
	case m.SkillSimilarity >= 0.7:
		parts = append(parts, "Strong skill similarity")
	case m.SkillSimilarity >= 0.4:
		parts = append(parts, "Moderate skill similarity")
	default:
		parts = append(parts, "Weak skill similarity")
	}

	if m.ProfileSimilarity >= 0.5 {
		parts = append(parts, "Relevant work history")
	}

	return strings.Join(parts, ". ")
}
