package normalize

import (
	"strings"
	"time"

	"github.com/pders01/jobfeed/internal/model"
)

// DefaultNewWithin is the age under which a posting is flagged as new.
const DefaultNewWithin = 72 * time.Hour

// DefaultFeatured lists categories whose postings are flagged as featured.
var DefaultFeatured = []string{"Central Government", "SSC", "Banking", "Railway"}

// Normalizer converts raw feed items into jobs.
type Normalizer struct {
	NewWithin time.Duration
	Featured  []string
}

// Default returns a Normalizer with the package defaults.
func Default() Normalizer {
	return Normalizer{NewWithin: DefaultNewWithin, Featured: DefaultFeatured}
}

// ToJob converts item using the default Normalizer.
func ToJob(item model.RawItem, src model.Source, now time.Time) model.Job {
	return Default().ToJob(item, src, now)
}

// IsNew reports whether published lies within DefaultNewWithin of now.
func IsNew(published, now time.Time) bool {
	return isWithin(published, now, DefaultNewWithin)
}

// IsFeatured reports whether src belongs to a default featured category.
func IsFeatured(src model.Source) bool {
	return containsFold(DefaultFeatured, src.Category)
}

func (n Normalizer) ToJob(item model.RawItem, src model.Source, now time.Time) model.Job {
	title := PlainText(item.Title)
	if title == "" {
		title = model.NoTitle
	}

	posted, dated := now, false
	if item.Published != nil && !item.Published.IsZero() {
		posted, dated = *item.Published, true
	}

	plain := PlainText(item.Description)

	details := item.Content
	if strings.TrimSpace(details) == "" {
		details = item.Description
	}

	expiry := strings.TrimSpace(item.ExpiryRaw)
	if expiry == "" {
		expiry = ExtractExpiryDate(plain, posted)
	}

	location := PlainText(item.Location)
	if location == "" {
		location = ExtractLocation(plain)
	}

	salary := PlainText(item.Salary)
	if salary == "" {
		salary = ExtractSalary(plain)
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		link = model.PlaceholderLink
	}

	return model.Job{
		ID:           model.JobID(title, src.Organization),
		Title:        title,
		Organization: src.Organization,
		Category:     src.Category,
		Education:    src.Education,
		Eligibility:  ExtractEligibility(plain, src.Education),
		Location:     location,
		Salary:       salary,
		PostDate:     FormatDate(posted),
		ExpiryDate:   expiry,
		Description:  CleanText(item.Description, DescriptionLength),
		Details:      CleanText(details, DetailsLength),
		ApplyLink:    link,
		IsNew:        dated && isWithin(posted, now, n.NewWithin),
		Featured:     containsFold(n.Featured, src.Category),
		SourceID:     src.ID(),
	}
}

func isWithin(published, now time.Time, window time.Duration) bool {
	if published.IsZero() || window <= 0 {
		return false
	}
	age := now.Sub(published)
	return age >= 0 && age <= window
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
