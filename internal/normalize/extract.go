package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/pders01/jobfeed/internal/model"
)

// DefaultExpiry is how long a posting stays open when no closing date can
// be found in its text.
const DefaultExpiry = 30 * 24 * time.Hour

// Order matters: the first pattern that matches wins.
var expiryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)last date.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	regexp.MustCompile(`(?i)closing on.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	regexp.MustCompile(`(?i)apply before.*?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
}

// ExtractExpiryDate looks for a closing date announced in the description.
// Matched dates are returned as written, without calendar validation. When
// nothing matches the result is postDate plus DefaultExpiry in RFC 3339.
func ExtractExpiryDate(description string, postDate time.Time) string {
	for _, pattern := range expiryPatterns {
		if m := pattern.FindStringSubmatch(description); m != nil {
			return m[1]
		}
	}
	return FormatDate(postDate.Add(DefaultExpiry))
}

// FormatDate renders t the way job dates are stored.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type keyword struct {
	pattern *regexp.Regexp
	label   string
}

// Checked in order; "graduate" precedes "post graduate" as in the feeds'
// historical labelling, so post-graduate postings resolve to "Graduate".
var eligibilityKeywords = []keyword{
	{regexp.MustCompile(`(?i)10th\s*pass`), "10th Pass"},
	{regexp.MustCompile(`(?i)12th\s*pass`), "12th Pass"},
	{regexp.MustCompile(`(?i)graduate`), "Graduate"},
	{regexp.MustCompile(`(?i)post[\s-]?graduate`), "Post Graduate"},
	{regexp.MustCompile(`(?i)diploma`), "Diploma"},
}

// ExtractEligibility returns the first education level mentioned in the
// description, or fallback when none is.
func ExtractEligibility(description, fallback string) string {
	for _, kw := range eligibilityKeywords {
		if kw.pattern.MatchString(description) {
			return kw.label
		}
	}
	return fallback
}

var locationLabel = regexp.MustCompile(`(?i)\b(?:job location|place of posting|location)\s*[:\-]\s*([A-Za-z][A-Za-z ,&/-]{1,60})`)

// Multi-word names come before their substrings.
var cities = []string{
	"New Delhi", "Delhi", "Navi Mumbai", "Mumbai", "Kolkata", "Chennai",
	"Bengaluru", "Bangalore", "Hyderabad", "Pune", "Ahmedabad", "Jaipur",
	"Lucknow", "Patna", "Bhopal", "Chandigarh", "Guwahati", "Bhubaneswar",
	"Thiruvananthapuram", "Prayagraj", "Nagpur", "Ranchi", "Raipur",
	"Dehradun", "Shimla", "Srinagar", "Jammu",
}

var cityPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(cities))
	for i, c := range cities {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(c) + `\b`)
	}
	return out
}()

// ExtractLocation finds an explicit location label or a known city name.
func ExtractLocation(description string) string {
	if m := locationLabel.FindStringSubmatch(description); m != nil {
		if loc := strings.Trim(collapse(m[1]), " ,&/-"); loc != "" {
			return loc
		}
	}
	for i, p := range cityPatterns {
		if p.MatchString(description) {
			return cities[i]
		}
	}
	return model.UnknownLocation
}

var salaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:\brs\.?|₹|\binr)\s*[\d,]+(?:\s*/-)?(?:\s*(?:-|–|to)\s*(?:rs\.?|₹|inr)?\s*[\d,]+(?:\s*/-)?)?(?:\s*(?:per month|per annum|p\.m\.|p\.a\.))?`),
	regexp.MustCompile(`(?i)pay\s*level[\s-]*\d+`),
	regexp.MustCompile(`(?i)pay\s*scale\s*[:\-]?\s*[\d,]+(?:\s*(?:-|–|to)\s*[\d,]+)?`),
}

// ExtractSalary returns the first salary figure or pay level in the text.
func ExtractSalary(description string) string {
	for _, p := range salaryPatterns {
		if m := p.FindString(description); m != "" {
			return collapse(m)
		}
	}
	return model.UnknownSalary
}
