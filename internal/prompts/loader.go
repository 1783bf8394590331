// Package prompts holds the oracle prompt templates. Each embedded JSON file
// maps a key to a text/template body; a file is compiled once on first use.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.json
var files embed.FS

// Triage is the prompt file used by the assignment pipeline.
const Triage = "triage.json"

// Prompt keys in Triage.
const (
	ExtractSkills      = "extract-skills"
	CheckDuplicate     = "check-duplicate"
	EvaluateCandidates = "evaluate-candidates"
	NoMatchReport      = "no-match-report"
	ProfileUpdate      = "profile-update"
	AnalyzeCommit      = "analyze-commit"
)

var helpers = template.FuncMap{
	"join": func(items []string) string {
		if len(items) == 0 {
			return "none"
		}
		return strings.Join(items, ", ")
	},
	"inc": func(i int) int { return i + 1 },
}

// book is one compiled prompt file.
type book struct {
	raw       map[string]string
	templates map[string]*template.Template
}

var (
	booksMu sync.Mutex
	books   = map[string]*book{}
)

func open(filename string) (*book, error) {
	booksMu.Lock()
	defer booksMu.Unlock()
	if b, ok := books[filename]; ok {
		return b, nil
	}

	data, err := files.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("unknown prompt file %s: %w", filename, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed prompt file %s: %w", filename, err)
	}

	b := &book{raw: raw, templates: make(map[string]*template.Template, len(raw))}
	for key, body := range raw {
		tmpl, err := template.New(key).Funcs(helpers).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("prompt %s/%s does not compile: %w", filename, key, err)
		}
		b.templates[key] = tmpl
	}
	books[filename] = b
	return b, nil
}

// Source returns the uncompiled body of filename/key.
func Source(filename, key string) (string, error) {
	b, err := open(filename)
	if err != nil {
		return "", err
	}
	body, ok := b.raw[key]
	if !ok {
		return "", fmt.Errorf("no prompt %q in %s", key, filename)
	}
	return body, nil
}

// Render executes filename/key over data. A field the template names but data
// lacks is an error rather than an empty string.
func Render(filename, key string, data any) (string, error) {
	b, err := open(filename)
	if err != nil {
		return "", err
	}
	tmpl, ok := b.templates[key]
	if !ok {
		return "", fmt.Errorf("no prompt %q in %s", key, filename)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s/%s: %w", filename, key, err)
	}
	return sb.String(), nil
}

// Keys lists the prompt keys of filename in sorted order.
func Keys(filename string) ([]string, error) {
	b, err := open(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(b.raw))
	for key := range b.raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
