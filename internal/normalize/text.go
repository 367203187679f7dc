// Package normalize turns loosely structured feed text into job fields.
// Everything here is a pure function of its inputs.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pders01/jobfeed/internal/model"
)

// Ellipsis is appended to text cut by CleanText.
const Ellipsis = "..."

// Default truncation limits for job descriptions and details.
const (
	DescriptionLength = 250
	DetailsLength     = 350
)

var tagRegex = regexp.MustCompile(`<[^<>]+>`)

// CleanText strips markup, collapses whitespace and truncates the result to
// maxLength runes. A maxLength of zero or less disables truncation. Input
// with no text left after cleaning yields model.NoDescription.
func CleanText(raw string, maxLength int) string {
	if strings.TrimSpace(raw) == "" {
		return model.NoDescription
	}

	cleaned := collapse(StripMarkup(raw))
	if cleaned == "" {
		return model.NoDescription
	}

	return truncate(cleaned, maxLength)
}

// StripMarkup returns the text content of an HTML fragment with entities
// decoded. Script and style bodies are dropped. Text holding a bare "<"
// such as "age 18<30" only loses complete tags, since an HTML parser would
// swallow everything after the "<".
func StripMarkup(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}
	if hasUnclosedTag(raw) {
		return html.UnescapeString(tagRegex.ReplaceAllString(raw, ""))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return html.UnescapeString(tagRegex.ReplaceAllString(raw, ""))
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

// hasUnclosedTag reports a "<" that is not closed by a ">" before the next
// "<" or the end of s.
func hasUnclosedTag(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '<' {
			continue
		}
		j := strings.IndexAny(s[i+1:], "<>")
		if j < 0 || s[i+1+j] == '<' {
			return true
		}
		i += j + 1
	}
	return false
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + Ellipsis
}

// PlainText is CleanText without truncation and without the empty sentinel,
// used as input to the extractors.
func PlainText(raw string) string {
	return collapse(StripMarkup(raw))
}
