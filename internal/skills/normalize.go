package skills

import (
	"strings"

	"github.com/jonathan/taskmatch/internal/types"
)

// MaxSkills caps every extracted skill list.
const MaxSkills = 7

// spellings lists, per canonical label, the variants oracles and commit
// messages commonly produce.
var spellings = map[string][]string{
	"Go":                 {"golang", "go lang"},
	"JavaScript":         {"javascript", "js"},
	"TypeScript":         {"typescript", "ts"},
	"Kubernetes":         {"kubernetes", "k8s"},
	"React":              {"react.js", "reactjs"},
	"Node.js":            {"node", "nodejs", "node.js"},
	"PostgreSQL":         {"postgres", "postgresql", "psql"},
	"MongoDB":            {"mongo", "mongodb"},
	"JWT Authentication": {"jwt"},
	"CI/CD":              {"ci", "cicd", "ci/cd"},
}

var canonicalByVariant = func() map[string]string {
	m := make(map[string]string)
	for label, variants := range spellings {
		for _, v := range variants {
			m[v] = label
		}
	}
	return m
}()

// Canonical collapses inner whitespace in label and maps a known variant to its
// canonical spelling. Unknown labels keep their casing.
func Canonical(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	if known, ok := canonicalByVariant[strings.ToLower(label)]; ok {
		return known
	}
	return label
}

// Clean canonicalizes labels, drops blanks and case-insensitive duplicates, and
// keeps at most limit (limit <= 0 keeps everything).
func Clean(labels []string, limit int) []string {
	canonical := make([]string, len(labels))
	for i, label := range labels {
		canonical[i] = Canonical(label)
	}
	out := types.SkillSet{}.Merge(canonical...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return []string(out)
}
