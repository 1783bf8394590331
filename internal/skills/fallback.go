package skills

import (
	"slices"
	"strings"
	"unicode"
)

// DefaultSkill is reported when nothing in the text matches the keyword table.
const DefaultSkill = "General Software Development"

type keyword struct {
	term  string
	label string
	// word requires a whole-word match instead of a substring match.
	word bool
	// near further requires one of these words right before or after the term.
	near []string
}

// keywordTable is scanned in order; earlier entries win the cap.
var keywordTable = []keyword{
	{term: "python", label: "Python"},
	{term: "javascript", label: "JavaScript"},
	{term: "java", label: "Java"},
	{term: "react", label: "React"},
	{term: "fastapi", label: "FastAPI"},
	{term: "django", label: "Django"},
	{term: "flask", label: "Flask"},
	{term: "node", label: "Node.js"},
	{term: "mongodb", label: "MongoDB"},
	{term: "postgresql", label: "PostgreSQL"},
	{term: "sql", label: "SQL"},
	{term: "docker", label: "Docker"},
	{term: "kubernetes", label: "Kubernetes"},
	{term: "git", label: "Git"},
	{term: "api", label: "API Development"},
	{term: "rest", label: "REST API"},
	{term: "graphql", label: "GraphQL"},
	{term: "frontend", label: "Frontend Development"},
	{term: "backend", label: "Backend Development"},
	{term: "database", label: "Database Design"},
	{term: "jwt", label: "JWT Authentication", word: true},
	{term: "golang", label: "Go", word: true},
	{term: "goroutine", label: "Go", word: true},
	{term: "goroutines", label: "Go", word: true},
	{term: "go", label: "Go", word: true, near: goContext},
}

// goContext separates the language from the verb.
var goContext = []string{
	"lang", "language", "module", "modules", "mod", "service", "services", "binary",
	"code", "codebase", "toolchain", "generics", "developer", "backend", "sdk", "version",
}

// Fallback derives skills from title and description with the static keyword
// table. It makes no external calls and always returns 1 to MaxSkills labels.
func Fallback(title, description string) []string {
	text := strings.ToLower(title + " " + description)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	detected := make([]string, 0, MaxSkills)
	seen := make(map[string]bool)
	for _, kw := range keywordTable {
		hit := strings.Contains(text, kw.term)
		if kw.word {
			hit = hasWord(words, kw.term, kw.near)
		}
		if !hit || seen[kw.label] {
			continue
		}
		seen[kw.label] = true
		detected = append(detected, kw.label)
		if len(detected) == MaxSkills {
			break
		}
	}

	if len(detected) == 0 {
		return []string{DefaultSkill}
	}
	return detected
}

// hasWord reports whether term is one of words and, when near is set, whether
// some occurrence has a neighbour in near.
func hasWord(words []string, term string, near []string) bool {
	for i, w := range words {
		if w != term {
			continue
		}
		if len(near) == 0 {
			return true
		}
		if i > 0 && slices.Contains(near, words[i-1]) {
			return true
		}
		if i+1 < len(words) && slices.Contains(near, words[i+1]) {
			return true
		}
	}
	return false
}
