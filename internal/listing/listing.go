// Package listing filters, sorts and paginates job lists for display.
package listing

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pders01/jobfeed/internal/model"
)

// All disables a category or education filter.
const All = "all"

const DefaultPerPage = 12

type SortOrder string

const (
	DateDesc  SortOrder = "date-desc"
	DateAsc   SortOrder = "date-asc"
	TitleAsc  SortOrder = "title-asc"
	TitleDesc SortOrder = "title-desc"
)

// SortOrders lists the accepted orders, default first.
var SortOrders = []SortOrder{DateDesc, DateAsc, TitleAsc, TitleDesc}

// ParseSortOrder accepts the names in SortOrders; empty means DateDesc.
func ParseSortOrder(s string) (SortOrder, error) {
	if s == "" {
		return DateDesc, nil
	}
	for _, o := range SortOrders {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

type Filter struct {
	Search    string // case-insensitive substring of title, organization, description or details
	Category  string // exact match, empty or All for any
	Education string // substring of the job's education, empty or All for any
}

func (f Filter) matches(job model.Job) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		fields := strings.ToLower(strings.Join([]string{job.Title, job.Organization, job.Description, job.Details}, " "))
		if !strings.Contains(fields, q) {
			return false
		}
	}
	if f.Category != "" && f.Category != All && job.Category != f.Category {
		return false
	}
	if f.Education != "" && f.Education != All && !strings.Contains(job.Education, f.Education) {
		return false
	}
	return true
}

// Apply returns the jobs matching f, in their original order.
func Apply(jobs []model.Job, f Filter) []model.Job {
	out := make([]model.Job, 0, len(jobs))
	for _, job := range jobs {
		if f.matches(job) {
			out = append(out, job)
		}
	}
	return out
}

// Sort returns a sorted copy. Jobs with an unparseable post date sort as
// the oldest; ties keep their input order.
func Sort(jobs []model.Job, order SortOrder) []model.Job {
	out := slices.Clone(jobs)

	byDate := func(a, b model.Job) int {
		return compareTime(a.PostedAt(), b.PostedAt())
	}
	byTitle := func(a, b model.Job) int {
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	}

	switch order {
	case DateAsc:
		slices.SortStableFunc(out, byDate)
	case TitleAsc:
		slices.SortStableFunc(out, byTitle)
	case TitleDesc:
		slices.SortStableFunc(out, func(a, b model.Job) int { return byTitle(b, a) })
	default:
		slices.SortStableFunc(out, func(a, b model.Job) int { return byDate(b, a) })
	}
	return out
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// Page is one slice of a paginated list.
type Page struct {
	Jobs       []model.Job
	Number     int // 1-based, clamped to [1, TotalPages]
	TotalPages int // at least 1
	Total      int
}

func (p Page) HasNext() bool { return p.Number < p.TotalPages }
func (p Page) HasPrev() bool { return p.Number > 1 }

// Paginate returns page number (1-based) of jobs with perPage per page.
func Paginate(jobs []model.Job, number, perPage int) Page {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	total := len(jobs)
	pages := max(1, (total+perPage-1)/perPage)
	number = min(max(number, 1), pages)

	start := (number - 1) * perPage
	end := min(start+perPage, total)
	return Page{
		Jobs:       slices.Clone(jobs[start:end]),
		Number:     number,
		TotalPages: pages,
		Total:      total,
	}
}

// Query bundles the filter, order and page for a single listing request.
type Query struct {
	Filter  Filter
	Order   SortOrder
	Page    int
	PerPage int
}

// Run filters, sorts and paginates jobs in that order.
func Run(jobs []model.Job, q Query) Page {
	return Paginate(Sort(Apply(jobs, q.Filter), q.Order), q.Page, q.PerPage)
}

// Categories returns the distinct categories in first-seen order.
func Categories(jobs []model.Job) []string {
	seen := make(map[string]bool)
	var out []string
	for _, j := range jobs {
		if j.Category != "" && !seen[j.Category] {
			seen[j.Category] = true
			out = append(out, j.Category)
		}
	}
	return out
}
