package escalation

import (
	"bytes"
	"html/template"
	"strings"
)

// ExcerptRunes caps the task context quoted in a fallback job description.
const ExcerptRunes = 200

const defaultContext = "Various development tasks"

var jobDescriptionTemplate = template.Must(template.New("job").Parse(`<h2>About the Role</h2>
<p>We are looking for a talented {{.Title}} to join our team and help deliver high-quality software solutions.</p>

<h2>Responsibilities</h2>
<ul>
<li>Develop and maintain software according to project requirements</li>
<li>Collaborate with cross-functional teams</li>
<li>Participate in code reviews and technical discussions</li>
<li>Context: {{.Context}}...</li>
</ul>

<h2>Requirements</h2>
<ul>
{{range .Skills}}<li>{{.}}</li>
{{end}}<li>Strong problem-solving skills</li>
<li>Excellent communication abilities</li>
</ul>

<h2>Nice to Have</h2>
<ul>
<li>Experience with agile methodologies</li>
<li>Open source contributions</li>
</ul>
`))

// FallbackTitle names the role after the first two required skills.
func FallbackTitle(skills []string) string {
	switch len(skills) {
	case 0:
		return "Software Developer"
	case 1:
		return skills[0] + " Developer"
	default:
		return skills[0] + "/" + skills[1] + " Developer"
	}
}

// Excerpt returns at most ExcerptRunes runes of description, or a generic
// placeholder when it is blank.
func Excerpt(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return defaultContext
	}
	runes := []rune(description)
	if len(runes) > ExcerptRunes {
		return string(runes[:ExcerptRunes])
	}
	return description
}

// FallbackJobDescription renders the fixed HTML job description. Skill labels
// and the task excerpt are escaped.
func FallbackJobDescription(title string, skills []string, description string) string {
	var buf bytes.Buffer
	err := jobDescriptionTemplate.Execute(&buf, struct {
		Title   string
		Skills  []string
		Context string
	}{Title: title, Skills: skills, Context: Excerpt(description)})
	if err != nil {
		// the template only ranges over strings
		panic(err)
	}
	return buf.String()
}
