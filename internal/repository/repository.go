// Package repository owns the authoritative job list: it seeds it from the
// cache, refreshes it through the scheduler one cycle at a time, and
// publishes every transition as an Event.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/dedup"
	"github.com/pders01/jobfeed/internal/feed"
	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/scheduler"
)

type State int

const (
	Idle State = iota
	Fetching
	Succeeded
	PartiallyFailed
	FullyFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Succeeded:
		return "succeeded"
	case PartiallyFailed:
		return "partially-failed"
	case FullyFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Runner executes one fetch pass. *scheduler.Scheduler satisfies it.
type Runner interface {
	Run(ctx context.Context, sources []model.Source, onBatch func(scheduler.BatchProgress)) (scheduler.Outcome, error)
}

// Store persists snapshots. *storage.Cache satisfies it.
type Store interface {
	Save(jobs []model.Job) error
	Load() ([]model.Job, bool)
}

// CycleResult describes a finished refresh cycle.
type CycleResult struct {
	ID         string
	State      State
	Jobs       int // size of the authoritative list after the cycle
	Fetched    int
	Succeeded  int
	Failed     []*feed.FetchError
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

type Repository struct {
	runner    Runner
	cache     Store
	sources   []model.Source
	supersede bool
	now       func() time.Time
	hub       *hub

	mu      sync.Mutex
	jobs    []model.Job
	state   State
	cycleID string
	cancel  context.CancelFunc
	last    *CycleResult
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Repository)

// WithSupersede makes Refresh cancel an in-flight cycle and start a new
// one instead of ignoring the request.
func WithSupersede(supersede bool) Option {
	return func(r *Repository) { r.supersede = supersede }
}

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func New(runner Runner, cache Store, sources []model.Source, opts ...Option) *Repository {
	r := &Repository{
		runner:  runner,
		cache:   cache,
		sources: append([]model.Source(nil), sources...),
		now:     time.Now,
		hub:     newHub(),
		jobs:    []model.Job{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bootstrap seeds the in-memory list from a fresh cache snapshot and
// reports whether one was found.
func (r *Repository) Bootstrap() bool {
	if r.cache == nil {
		return false
	}
	jobs, ok := r.cache.Load()
	if !ok {
		return false
	}

	r.mu.Lock()
	r.jobs = dedup.Dedupe(jobs)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	debuglog.Infof("loaded %d cached jobs", len(snapshot))
	r.hub.publish(Event{Type: EventLoaded, At: r.now(), Jobs: snapshot})
	return true
}

// Jobs returns a copy of the authoritative list.
func (r *Repository) Jobs() []model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Repository) snapshotLocked() []model.Job {
	return append([]model.Job(nil), r.jobs...)
}

func (r *Repository) Sources() []model.Source {
	return append([]model.Source(nil), r.sources...)
}

// State is Fetching while a cycle runs and Idle otherwise.
func (r *Repository) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastCycle returns the most recent finished cycle.
func (r *Repository) LastCycle() (CycleResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return CycleResult{}, false
	}
	return *r.last, true
}

// Subscribe returns an event channel and a function that unsubscribes and
// closes it. Events are dropped for subscribers that fall behind.
func (r *Repository) Subscribe() (<-chan Event, func()) {
	return r.hub.subscribe()
}

// Refresh starts a cycle in the background. It returns false when a cycle
// is already running (unless supersede is enabled) or the repository is
// closed.
func (r *Repository) Refresh(ctx context.Context) bool {
	cycleCtx, id, ok := r.begin(ctx)
	if !ok {
		return false
	}
	go func() {
		defer r.wg.Done()
		r.runCycle(cycleCtx, id)
	}()
	return true
}

// RefreshSync runs a cycle inline. The returned error is
// model.ErrRefreshInProgress when the gate rejects the request, otherwise
// the cycle's own error.
func (r *Repository) RefreshSync(ctx context.Context) (CycleResult, error) {
	cycleCtx, id, ok := r.begin(ctx)
	if !ok {
		return CycleResult{}, model.ErrRefreshInProgress
	}
	defer r.wg.Done()
	res := r.runCycle(cycleCtx, id)
	return res, res.Err
}

func (r *Repository) begin(ctx context.Context) (context.Context, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, "", false
	}
	if r.state == Fetching {
		if !r.supersede {
			debuglog.Debugf("refresh ignored: cycle %s in progress", r.cycleID)
			return nil, "", false
		}
		debuglog.Infof("superseding cycle %s", r.cycleID)
		r.cancel()
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	r.state = Fetching
	r.cycleID = id
	r.cancel = cancel
	r.wg.Add(1)
	return cycleCtx, id, true
}

func (r *Repository) runCycle(ctx context.Context, id string) CycleResult {
	res := CycleResult{ID: id, StartedAt: r.now()}
	r.hub.publish(Event{Type: EventStarted, CycleID: id, At: res.StartedAt})

	outcome, err := r.runner.Run(ctx, r.sources, func(p scheduler.BatchProgress) {
		r.mu.Lock()
		if r.cycleID != id {
			r.mu.Unlock()
			return
		}
		partial := dedup.Merge(r.jobs, p.Jobs)
		r.mu.Unlock()

		r.hub.publish(Event{
			Type:    EventProgress,
			CycleID: id,
			At:      r.now(),
			Jobs:    partial,
			Batch:   p.Index,
			Batches: p.Total,
		})
	})

	res.Fetched = len(outcome.Jobs)
	res.Succeeded = outcome.Succeeded
	res.Failed = outcome.Failed
	res.FinishedAt = r.now()

	r.mu.Lock()
	if r.cycleID != id {
		// Superseded: a newer cycle owns the state now.
		r.mu.Unlock()
		res.State = FullyFailed
		res.Err = context.Canceled
		debuglog.Infof("cycle %s superseded", id)
		return res
	}

	switch {
	case err != nil:
		res.State = FullyFailed
		res.Err = err
	default:
		r.jobs = dedup.Merge(r.jobs, outcome.Jobs)
		res.State = Succeeded
		if len(outcome.Failed) > 0 {
			res.State = PartiallyFailed
		}
		if r.cache != nil {
			if saveErr := r.cache.Save(r.jobs); saveErr != nil {
				debuglog.Warnf("saving cache: %v", saveErr)
			}
		}
	}

	res.Jobs = len(r.jobs)
	snapshot := r.snapshotLocked()
	r.state = Idle
	r.cycleID = ""
	r.cancel()
	r.cancel = nil
	last := res
	r.last = &last
	r.mu.Unlock()

	evt := Event{
		CycleID:  id,
		At:       res.FinishedAt,
		Jobs:     snapshot,
		Failures: res.Failed,
		Err:      res.Err,
	}
	switch res.State {
	case Succeeded:
		evt.Type = EventSucceeded
		debuglog.Infof("cycle %s succeeded: %d jobs", id, res.Jobs)
	case PartiallyFailed:
		evt.Type = EventPartiallyFailed
		debuglog.Warnf("cycle %s: %d of %d feeds failed", id, len(res.Failed), len(r.sources))
	default:
		evt.Type = EventFailed
		if errors.Is(err, model.ErrAllFeedsFailed) {
			debuglog.Errorf("cycle %s: all feeds failed", id)
		} else {
			debuglog.Warnf("cycle %s aborted: %v", id, err)
		}
	}
	r.hub.publish(evt)
	return res
}

// AutoRefresh calls Refresh every interval while visible reports true, until
// ctx is done. A nil visible counts as always visible.
func (r *Repository) AutoRefresh(ctx context.Context, interval time.Duration, visible func() bool) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if visible != nil && !visible() {
				debuglog.Debugf("auto-refresh skipped: not visible")
				continue
			}
			r.Refresh(ctx)
		}
	}
}

// Close cancels any running cycle, waits for it, and closes all
// subscriber channels. Later Refresh calls return false.
func (r *Repository) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.hub.close()
}
