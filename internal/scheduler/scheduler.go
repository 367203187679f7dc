package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/feed"
	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/normalize"
)

// FeedClient fetches one source. *feed.Client satisfies it.
type FeedClient interface {
	FetchFeed(ctx context.Context, src model.Source) feed.Result
}

// BatchProgress is reported after every settled batch.
type BatchProgress struct {
	Index     int // 1-based
	Total     int
	Jobs      []model.Job // all jobs normalized so far, in source order
	Succeeded int
	Failed    int
}

// Outcome summarizes a full run.
type Outcome struct {
	Jobs      []model.Job
	Succeeded int
	Failed    []*feed.FetchError
	Batches   int
}

// Scheduler fetches sources in sequential batches of at most parallel
// concurrent requests.
type Scheduler struct {
	client     FeedClient
	parallel   int
	normalizer normalize.Normalizer
	now        func() time.Time
}

type Option func(*Scheduler)

func WithNormalizer(n normalize.Normalizer) Option {
	return func(s *Scheduler) { s.normalizer = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(client FeedClient, parallel int, opts ...Option) *Scheduler {
	if parallel < 1 {
		parallel = 1
	}
	s := &Scheduler{
		client:     client,
		parallel:   parallel,
		normalizer: normalize.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parallel is the maximum number of concurrent fetches per batch.
func (s *Scheduler) Parallel() int {
	return s.parallel
}

// Partition splits sources into ceil(N/p) consecutive batches of at most p.
func Partition(sources []model.Source, p int) [][]model.Source {
	if p < 1 {
		p = 1
	}
	batches := make([][]model.Source, 0, (len(sources)+p-1)/p)
	for start := 0; start < len(sources); start += p {
		end := min(start+p, len(sources))
		batches = append(batches, sources[start:end])
	}
	return batches
}

// Run fetches every source. A failing feed is logged and counted but never
// stops the others. When no feed succeeds the error wraps
// model.ErrAllFeedsFailed; cancellation returns ctx.Err() with the partial
// outcome.
func (s *Scheduler) Run(ctx context.Context, sources []model.Source, onBatch func(BatchProgress)) (Outcome, error) {
	var out Outcome
	if len(sources) == 0 {
		return out, fmt.Errorf("no feeds configured: %w", model.ErrAllFeedsFailed)
	}

	batches := Partition(sources, s.parallel)
	debuglog.Infof("fetching %d feeds in %d batches of up to %d", len(sources), len(batches), s.parallel)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		results, err := s.runBatch(ctx, batch)
		if err != nil {
			return out, err
		}

		now := s.now()
		for _, res := range results {
			if res.Err != nil {
				debuglog.WithFields(map[string]any{
					"source": res.Source.ID(),
					"kind":   string(res.Err.Kind),
				}).Warnf("%v", res.Err)
				out.Failed = append(out.Failed, res.Err)
				continue
			}
			out.Succeeded++
			for _, item := range res.Items {
				out.Jobs = append(out.Jobs, s.normalizer.ToJob(item, res.Source, now))
			}
		}
		out.Batches = i + 1

		if onBatch != nil {
			onBatch(BatchProgress{
				Index:     i + 1,
				Total:     len(batches),
				Jobs:      append([]model.Job(nil), out.Jobs...),
				Succeeded: out.Succeeded,
				Failed:    len(out.Failed),
			})
		}
	}

	debuglog.Infof("fetched %d jobs from %d feeds, %d failed", len(out.Jobs), out.Succeeded, len(out.Failed))

	if out.Succeeded == 0 {
		errs := make([]error, 0, len(out.Failed))
		for _, f := range out.Failed {
			errs = append(errs, f)
		}
		return out, fmt.Errorf("%w: %w", model.ErrAllFeedsFailed, errors.Join(errs...))
	}
	return out, nil
}

// runBatch fetches every source of a batch concurrently and waits for all
// of them. Each goroutine writes only its own slot. Feed failures stay in
// the results; the returned error is set only when ctx ended mid-batch.
func (s *Scheduler) runBatch(ctx context.Context, batch []model.Source) ([]feed.Result, error) {
	results := make([]feed.Result, len(batch))

	// A plain Group: one failing feed must not cancel its siblings.
	var g errgroup.Group
	for i, src := range batch {
		g.Go(func() error {
			results[i] = s.client.FetchFeed(ctx, src)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
