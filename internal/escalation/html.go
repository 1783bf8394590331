package escalation

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText returns the whitespace-collapsed visible text of an HTML fragment.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	collectText(doc.Selection, &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// collectText gathers text nodes in document order so adjacent block
// elements do not run together.
func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			*parts = append(*parts, c.Text())
			return
		}
		collectText(c, parts)
	})
}

// Readable reports whether an HTML job description has any visible text.
func Readable(html string) bool {
	return strings.TrimSpace(html) != "" && PlainText(html) != ""
}

// Preview returns up to n runes of the description's visible text.
func Preview(html string, n int) string {
	text := []rune(PlainText(html))
	if n <= 0 || len(text) <= n {
		return string(text)
	}
	return strings.TrimSpace(string(text[:n])) + "..."
}
