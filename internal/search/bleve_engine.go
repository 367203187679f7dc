package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/jobfeed/internal/model"
)

// Index is a bleve full-text index over jobs, keyed by job ID.
type Index struct {
	idx bleve.Index
}

// NewIndex opens the index at indexPath or creates it. An empty path keeps
// the index in memory.
func NewIndex(indexPath string) (*Index, error) {
	if indexPath == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.Open(indexPath)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		if mkErr := os.MkdirAll(filepath.Dir(indexPath), 0o755); mkErr != nil {
			return nil, fmt.Errorf("creating index directory: %w", mkErr)
		}
		idx, err = bleve.New(indexPath, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", indexPath, err)
	}
	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	org := bleve.NewTextFieldMapping()
	org.Analyzer = standard.Name
	org.Store = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = false

	details := bleve.NewTextFieldMapping()
	details.Analyzer = standard.Name
	details.Store = false

	category := bleve.NewTextFieldMapping()
	category.Analyzer = keyword.Name
	category.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("organization", org)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("details", details)
	dm.AddFieldMappingsAt("category", category)

	im.DefaultMapping = dm
	return im
}

func jobDocument(j model.Job) map[string]any {
	return map[string]any{
		"title":        j.Title,
		"organization": j.Organization,
		"description":  j.Description,
		"details":      j.Details,
		"category":     j.Category,
	}
}

// Reindex makes the index hold exactly jobs: every job is (re)indexed and
// documents for jobs no longer present are deleted, in one batch.
func (b *Index) Reindex(jobs []model.Job) error {
	keep := make(map[string]bool, len(jobs))
	batch := b.idx.NewBatch()
	for _, j := range jobs {
		keep[j.ID] = true
		if err := batch.Index(j.ID, jobDocument(j)); err != nil {
			return fmt.Errorf("indexing %s: %w", j.ID, err)
		}
	}

	existing, err := b.allIDs()
	if err != nil {
		return err
	}
	for _, id := range existing {
		if !keep[id] {
			batch.Delete(id)
		}
	}

	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("writing index batch: %w", err)
	}
	return nil
}

func (b *Index) allIDs() ([]string, error) {
	const size = 1000
	var ids []string
	for from := 0; ; from += size {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), size, from, false)
		res, err := b.idx.Search(req)
		if err != nil {
			return nil, fmt.Errorf("listing indexed jobs: %w", err)
		}
		for _, h := range res.Hits {
			ids = append(ids, h.ID)
		}
		if len(res.Hits) < size {
			return ids, nil
		}
	}
}

// Search ORs per-term match and prefix queries across the boosted fields.
// Results carry only JobID; use Resolve to attach the jobs.
func (b *Index) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	fields := []struct {
		name  string
		boost float64
	}{
		{"title", titleWeight},
		{"organization", organizationWeight},
		{"description", descriptionWeight},
		{"details", detailsWeight},
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, f := range fields {
			mq := bleve.NewMatchQuery(tok)
			mq.SetField(f.name)
			mq.SetBoost(f.boost)
			qs = append(qs, mq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f.name)
			pq.SetBoost(f.boost * 0.9)
			qs = append(qs, pq)
		}
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "organization"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := &Result{JobID: h.ID, Score: h.Score}
		if t, ok := h.Fields["title"].(string); ok {
			r.Matches = append(r.Matches, FieldMatch{Field: "title", Text: t})
		}
		out = append(out, r)
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (b *Index) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (b *Index) Close() error {
	return b.idx.Close()
}
