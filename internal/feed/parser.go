package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/pders01/jobfeed/internal/model"
)

// Element names read as structured job fields when a feed carries them,
// either as custom RSS elements or namespaced extensions.
var (
	locationElements = []string{"location", "joblocation", "job_location"}
	salaryElements   = []string{"salary", "pay", "payscale", "pay_scale"}
	expiryElements   = []string{"lastdate", "last_date", "closingdate", "closing_date", "expiry", "expirydate", "deadline"}
)

// Layouts seen in the pubDate of proxy envelopes and loosely formatted feeds.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// Parse decodes an rss2json envelope or any RSS/Atom/JSON Feed document.
func (p *Parser) Parse(body []byte) ([]model.RawItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '{' {
		items, ok, err := parseEnvelope(trimmed)
		if ok {
			return items, err
		}
	}

	feed, err := p.parser.Parse(bytes.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	items := make([]model.RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		items = append(items, fromFeedItem(item))
	}
	return items, nil
}

// envelope is the api.rss2json.com response shape.
type envelope struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Items   []envelopeItem `json:"items"`
}

type envelopeItem struct {
	Title       string `json:"title"`
	PubDate     string `json:"pubDate"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Location    string `json:"location"`
	Salary      string `json:"salary"`
	LastDate    string `json:"lastDate"`
}

// parseEnvelope reports ok=false when the JSON is not an rss2json envelope,
// so the caller can fall back to JSON Feed parsing.
func parseEnvelope(body []byte) ([]model.RawItem, bool, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Status == "" {
		return nil, false, nil
	}
	if env.Status != "ok" {
		msg := env.Message
		if msg == "" {
			msg = "status " + env.Status
		}
		return nil, true, fmt.Errorf("rss2json: %s", msg)
	}

	items := make([]model.RawItem, 0, len(env.Items))
	for _, it := range env.Items {
		items = append(items, model.RawItem{
			Title:        it.Title,
			Published:    parseDate(it.PubDate),
			PublishedRaw: it.PubDate,
			Link:         it.Link,
			Description:  it.Description,
			Content:      it.Content,
			Location:     strings.TrimSpace(it.Location),
			Salary:       strings.TrimSpace(it.Salary),
			ExpiryRaw:    strings.TrimSpace(it.LastDate),
		})
	}
	return items, true, nil
}

func fromFeedItem(item *gofeed.Item) model.RawItem {
	raw := model.RawItem{
		Title:        item.Title,
		Published:    item.PublishedParsed,
		PublishedRaw: item.Published,
		Link:         item.Link,
		Description:  item.Description,
		Content:      item.Content,
		Location:     structuredField(item, locationElements),
		Salary:       structuredField(item, salaryElements),
		ExpiryRaw:    structuredField(item, expiryElements),
	}
	if raw.Published == nil {
		if item.UpdatedParsed != nil {
			raw.Published = item.UpdatedParsed
			raw.PublishedRaw = item.Updated
		} else {
			raw.Published = parseDate(item.Published)
		}
	}
	if raw.Link == "" && len(item.Links) > 0 {
		raw.Link = item.Links[0]
	}
	return raw
}

func structuredField(item *gofeed.Item, names []string) string {
	for _, name := range names {
		for _, key := range sortedKeys(item.Custom) {
			if strings.EqualFold(key, name) {
				if v := strings.TrimSpace(item.Custom[key]); v != "" {
					return v
				}
			}
		}
		if v := extensionValue(item.Extensions, name); v != "" {
			return v
		}
	}
	return ""
}

func extensionValue(exts ext.Extensions, name string) string {
	for _, prefix := range sortedKeys(exts) {
		byName := exts[prefix]
		for _, elem := range sortedKeys(byName) {
			if !strings.EqualFold(elem, name) {
				continue
			}
			for _, v := range byName[elem] {
				if s := strings.TrimSpace(v.Value); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
