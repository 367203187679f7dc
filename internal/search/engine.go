package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pders01/jobfeed/internal/model"
)

// Field weights shared by Engine and the bleve boosts.
const (
	titleWeight        = 4.0
	organizationWeight = 3.0
	descriptionWeight  = 2.0
	detailsWeight      = 1.0
)

// Engine scores an in-memory job list without an index. It suits small
// lists and runs when no index path is configured.
type Engine struct {
	mu   sync.RWMutex
	jobs []model.Job
}

// NewEngine creates a new search engine over jobs
func NewEngine(jobs []model.Job) *Engine {
	e := &Engine{}
	_ = e.Reindex(jobs)
	return e
}

func (e *Engine) Reindex(jobs []model.Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append([]model.Job(nil), jobs...)
	return nil
}

func (e *Engine) DocCount() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.jobs), nil
}

// Search ranks jobs by weighted term matches, highest score first.
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Match(e.jobs, query, limit), nil
}

// Match scores jobs against query and returns at most limit results
// (limit <= 0 means all). Queries shorter than two characters match nothing.
func Match(jobs []model.Job, query string, limit int) []*Result {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}
	}

	results := []*Result{}
	for i := range jobs {
		if r := scoreJob(&jobs[i], terms); r != nil {
			results = append(results, r)
		}
	}

	// Sort by relevance score (highest first); ties keep list order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func scoreJob(job *model.Job, terms []string) *Result {
	fields := []struct {
		name   string
		text   string
		weight float64
	}{
		{"title", job.Title, titleWeight},
		{"organization", job.Organization, organizationWeight},
		{"description", job.Description, descriptionWeight},
		{"details", job.Details, detailsWeight},
	}

	var matches []FieldMatch
	var total float64
	for _, f := range fields {
		score := scoreField(f.text, terms, f.weight)
		if score <= 0 {
			continue
		}
		text := f.text
		if f.name == "details" {
			text = findBestSnippet(f.text, terms, 200)
		}
		matches = append(matches, FieldMatch{Field: f.name, Text: text, Weight: score})
		total += score
	}

	if total == 0 {
		return nil
	}
	if job.IsNew {
		total *= 1.05
	}

	j := *job
	return &Result{JobID: job.ID, Job: &j, Score: total, Matches: matches}
}

// scoreField calculates relevance score for a field
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		// Substring match anywhere in the field
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet finds the most relevant text snippet containing search terms
func findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	windowSize := maxLength / 8 // approximate words in snippet
	if windowSize >= len(words) {
		return truncate(text, maxLength)
	}

	bestScore, bestStart := 0, 0
	for i := 0; i <= len(words)-windowSize; i++ {
		window := strings.ToLower(strings.Join(words[i:i+windowSize], " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore, bestStart = score, i
		}
	}

	return truncate(strings.Join(words[bestStart:bestStart+windowSize], " "), maxLength)
}

// tokenize breaks text into lowercase terms of two or more letters/digits.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if term := current.String(); len([]rune(term)) > 1 {
			terms = append(terms, term)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return terms
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}
