package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Placeholder values used when a feed item carries no usable data.
const (
	NoTitle         = "No title available"
	NoDescription   = "No description available"
	UnknownLocation = "Multiple Locations"
	UnknownSalary   = "As per norms"
	PlaceholderLink = "#"
)

// Job is the normalized posting held by the repository and the cache.
type Job struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Category     string `json:"category"`
	Education    string `json:"education"`
	Eligibility  string `json:"eligibility"`
	Location     string `json:"location"`
	Salary       string `json:"salary"`
	PostDate     string `json:"post_date"`
	ExpiryDate   string `json:"expiry_date"`
	Description  string `json:"description"`
	Details      string `json:"details"`
	ApplyLink    string `json:"apply_link"`
	IsNew        bool   `json:"is_new"`
	Featured     bool   `json:"featured"`
	SourceID     string `json:"source_id"`
}

// Key identifies a posting across sources and fetch cycles.
type Key struct {
	Title        string
	Organization string
}

func (j Job) Key() Key {
	return Key{Title: j.Title, Organization: j.Organization}
}

// JobID derives the stable record ID for a title/organization pair.
func JobID(title, organization string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + organization))
	return fmt.Sprintf("%x", sum[:12])
}

// PostedAt parses PostDate, returning the zero time when it is not RFC 3339.
func (j Job) PostedAt() time.Time {
	t, err := time.Parse(time.RFC3339, j.PostDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RawItem is one entry of a fetched feed before normalization.
type RawItem struct {
	Title        string
	Published    *time.Time
	PublishedRaw string
	Link         string
	Description  string
	Content      string

	// Set only when the upstream feed carries them as structured fields.
	Location  string
	Salary    string
	ExpiryRaw string
}

// CacheEntry is the persisted snapshot of the job list.
type CacheEntry struct {
	Jobs      []Job     `json:"jobs"`
	Timestamp time.Time `json:"timestamp"`
}
