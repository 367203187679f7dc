package search

import "github.com/pders01/jobfeed/internal/model"

// Searcher is the query API used by the CLI and the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// Indexer is implemented by searchers that keep their own copy of the jobs
// and must be told when the list changes.
type Indexer interface {
	Reindex(jobs []model.Job) error
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is one matching job. Job is nil when the searcher only knows the ID.
type Result struct {
	JobID   string
	Job     *model.Job
	Score   float64
	Matches []FieldMatch
}

// FieldMatch records which field contributed to a result's score.
type FieldMatch struct {
	Field  string // "title", "organization", "description", "details"
	Text   string
	Weight float64
}

// Resolve fills Result.Job from jobs by ID and drops results whose job is
// no longer present.
func Resolve(results []*Result, jobs []model.Job) []*Result {
	byID := make(map[string]int, len(jobs))
	for i, j := range jobs {
		byID[j.ID] = i
	}
	out := make([]*Result, 0, len(results))
	for _, r := range results {
		i, ok := byID[r.JobID]
		if !ok {
			continue
		}
		job := jobs[i]
		r.Job = &job
		out = append(out, r)
	}
	return out
}
