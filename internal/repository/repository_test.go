package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/jobfeed/internal/feed"
	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/scheduler"
	"github.com/pders01/jobfeed/internal/storage"
)

// gatedRunner blocks each Run until release is closed or ctx ends.
type gatedRunner struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	outcome scheduler.Outcome
	err     error
}

func newGatedRunner(outcome scheduler.Outcome, err error) *gatedRunner {
	return &gatedRunner{
		release: make(chan struct{}),
		started: make(chan struct{}, 8),
		outcome: outcome,
		err:     err,
	}
}

func (g *gatedRunner) Run(ctx context.Context, _ []model.Source, onBatch func(scheduler.BatchProgress)) (scheduler.Outcome, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return scheduler.Outcome{}, ctx.Err()
	}
	if onBatch != nil {
		onBatch(scheduler.BatchProgress{Index: 1, Total: 1, Jobs: g.outcome.Jobs, Succeeded: g.outcome.Succeeded})
	}
	return g.outcome, g.err
}

// instantRunner returns immediately with a fixed outcome.
type instantRunner struct {
	calls   atomic.Int32
	outcome scheduler.Outcome
	err     error
}

func (r *instantRunner) Run(context.Context, []model.Source, func(scheduler.BatchProgress)) (scheduler.Outcome, error) {
	r.calls.Add(1)
	return r.outcome, r.err
}

type countingStore struct {
	mu    sync.Mutex
	saves [][]model.Job
	load  []model.Job
}

func (s *countingStore) Save(jobs []model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, append([]model.Job(nil), jobs...))
	return nil
}

func (s *countingStore) Load() ([]model.Job, bool) {
	return s.load, s.load != nil
}

func (s *countingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func mkJob(title, org string) model.Job {
	return model.Job{ID: model.JobID(title, org), Title: title, Organization: org}
}

func sources(n int) []model.Source {
	out := make([]model.Source, n)
	for i := range out {
		out[i] = model.Source{URL: fmt.Sprintf("https://feeds.example.org/%d", i), Organization: fmt.Sprintf("Org %d", i)}
	}
	return out
}

// waitFor reads events until one of the wanted type arrives.
func waitFor(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-events:
			require.True(t, ok, "event channel closed before %s", want)
			if evt.Type == want {
				return evt
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestRefresh_GateIgnoresConcurrentRequests(t *testing.T) {
	runner := newGatedRunner(scheduler.Outcome{Jobs: []model.Job{mkJob("Clerk", "IBPS")}, Succeeded: 1}, nil)
	repo := New(runner, &countingStore{}, sources(1))
	defer repo.Close()

	events, unsubscribe := repo.Subscribe()
	defer unsubscribe()

	require.True(t, repo.Refresh(context.Background()))
	<-runner.started
	assert.Equal(t, Fetching, repo.State())

	assert.False(t, repo.Refresh(context.Background()))
	assert.False(t, repo.Refresh(context.Background()))
	_, err := repo.RefreshSync(context.Background())
	assert.ErrorIs(t, err, model.ErrRefreshInProgress)

	close(runner.release)
	waitFor(t, events, EventSucceeded)

	assert.Equal(t, int32(1), runner.calls.Load())
	assert.Equal(t, Idle, repo.State())

	// The gate reopens once the cycle settles.
	res, err := repo.RefreshSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestRefresh_Supersede(t *testing.T) {
	runner := newGatedRunner(scheduler.Outcome{Jobs: []model.Job{mkJob("Clerk", "IBPS")}, Succeeded: 1}, nil)
	repo := New(runner, &countingStore{}, sources(1), WithSupersede(true))
	defer repo.Close()

	events, unsubscribe := repo.Subscribe()
	defer unsubscribe()

	require.True(t, repo.Refresh(context.Background()))
	first := waitFor(t, events, EventStarted)
	<-runner.started

	require.True(t, repo.Refresh(context.Background()))
	second := waitFor(t, events, EventStarted)
	<-runner.started
	assert.NotEqual(t, first.CycleID, second.CycleID)

	close(runner.release)
	done := waitFor(t, events, EventSucceeded)
	assert.Equal(t, second.CycleID, done.CycleID)
	assert.Equal(t, int32(2), runner.calls.Load())

	last, ok := repo.LastCycle()
	require.True(t, ok)
	assert.Equal(t, second.CycleID, last.ID)
}

func TestRefreshSync_MergesAndSaves(t *testing.T) {
	store := &countingStore{}
	runner := &instantRunner{outcome: scheduler.Outcome{
		Jobs:      []model.Job{mkJob("Clerk", "IBPS"), mkJob("Scientist", "ISRO")},
		Succeeded: 2,
	}}
	repo := New(runner, store, sources(2))
	defer repo.Close()

	res, err := repo.RefreshSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, 2, res.Jobs)
	assert.Len(t, repo.Jobs(), 2)
	assert.Equal(t, 1, store.saveCount())

	// A second identical cycle leaves the list unchanged.
	_, err = repo.RefreshSync(context.Background())
	require.NoError(t, err)
	assert.Len(t, repo.Jobs(), 2)
}

func TestRefreshSync_PartialFailure(t *testing.T) {
	src := sources(2)
	runner := &instantRunner{outcome: scheduler.Outcome{
		Jobs:      []model.Job{mkJob("Clerk", "IBPS")},
		Succeeded: 1,
		Failed:    []*feed.FetchError{{Source: src[1], Kind: feed.KindTimeout, Cause: context.DeadlineExceeded}},
	}}
	store := &countingStore{}
	repo := New(runner, store, src)
	defer repo.Close()

	events, unsubscribe := repo.Subscribe()
	defer unsubscribe()

	res, err := repo.RefreshSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PartiallyFailed, res.State)
	assert.Len(t, res.Failed, 1)
	assert.Equal(t, 1, store.saveCount())

	evt := waitFor(t, events, EventPartiallyFailed)
	assert.Len(t, evt.Failures, 1)
	assert.Equal(t, 1, evt.Count())
}

func TestRefreshSync_TotalFailureRetainsData(t *testing.T) {
	store := &countingStore{load: []model.Job{mkJob("Clerk", "IBPS")}}
	runner := &instantRunner{err: fmt.Errorf("wrapped: %w", model.ErrAllFeedsFailed)}
	repo := New(runner, store, sources(3))
	defer repo.Close()

	require.True(t, repo.Bootstrap())

	events, unsubscribe := repo.Subscribe()
	defer unsubscribe()

	res, err := repo.RefreshSync(context.Background())
	assert.ErrorIs(t, err, model.ErrAllFeedsFailed)
	assert.Equal(t, FullyFailed, res.State)
	assert.Equal(t, 0, store.saveCount(), "no cache write on total failure")
	assert.Equal(t, []model.Job{mkJob("Clerk", "IBPS")}, repo.Jobs())

	evt := waitFor(t, events, EventFailed)
	assert.ErrorIs(t, evt.Err, model.ErrAllFeedsFailed)
	assert.Len(t, evt.Jobs, 1)
}

func TestBootstrap(t *testing.T) {
	cache := storage.NewCache(storage.NewMemoryKV())
	repo := New(&instantRunner{}, cache, nil)
	defer repo.Close()

	assert.False(t, repo.Bootstrap(), "empty cache is a miss")

	require.NoError(t, cache.Save([]model.Job{mkJob("Clerk", "IBPS"), mkJob("PO", "IBPS")}))

	events, unsubscribe := repo.Subscribe()
	defer unsubscribe()

	require.True(t, repo.Bootstrap())
	evt := waitFor(t, events, EventLoaded)
	assert.Equal(t, 2, evt.Count())
	assert.Len(t, repo.Jobs(), 2)
}

func TestJobs_ReturnsCopy(t *testing.T) {
	runner := &instantRunner{outcome: scheduler.Outcome{Jobs: []model.Job{mkJob("Clerk", "IBPS")}, Succeeded: 1}}
	repo := New(runner, nil, sources(1))
	defer repo.Close()

	_, err := repo.RefreshSync(context.Background())
	require.NoError(t, err)

	jobs := repo.Jobs()
	jobs[0].Title = "mutated"
	assert.Equal(t, "Clerk", repo.Jobs()[0].Title)
}

func TestProgressEventsDoNotReplaceList(t *testing.T) {
	runner := newGatedRunner(scheduler.Outcome{Jobs: []model.Job{mkJob("Clerk", "IBPS")}, Succeeded: 1}, nil)
	repo := New(runner, nil, sources(1))
	defer repo.Close()

	events, unsubscribe := repo.Subscribe()
	defer unsubscribe()

	require.True(t, repo.Refresh(context.Background()))
	<-runner.started
	close(runner.release)

	progress := waitFor(t, events, EventProgress)
	assert.Equal(t, 1, progress.Batch)
	assert.Equal(t, 1, progress.Count())
	waitFor(t, events, EventSucceeded)
	assert.Len(t, repo.Jobs(), 1)
}

func TestAutoRefresh_OnlyWhenVisible(t *testing.T) {
	runner := &instantRunner{outcome: scheduler.Outcome{Succeeded: 1}}
	repo := New(runner, nil, sources(1))
	defer repo.Close()

	var visible atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		repo.AutoRefresh(ctx, 10*time.Millisecond, visible.Load)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), runner.calls.Load())

	visible.Store(true)
	assert.Eventually(t, func() bool { return runner.calls.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestClose(t *testing.T) {
	runner := newGatedRunner(scheduler.Outcome{}, nil)
	repo := New(runner, nil, sources(1))

	events, _ := repo.Subscribe()
	require.True(t, repo.Refresh(context.Background()))
	<-runner.started

	repo.Close()

	// Close cancelled the cycle and waited for it.
	last, ok := repo.LastCycle()
	require.True(t, ok)
	assert.Equal(t, FullyFailed, last.State)
	assert.ErrorIs(t, last.Err, context.Canceled)

	for range events {
	}
	assert.False(t, repo.Refresh(context.Background()))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "partially-failed", PartiallyFailed.String())
	assert.Equal(t, "State(42)", State(42).String())
}
