package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/jobfeed/internal/feed"
	"github.com/pders01/jobfeed/internal/model"
)

// fakeClient returns one item per source and tracks peak concurrency.
type fakeClient struct {
	delay   time.Duration
	failing map[string]bool

	mu       sync.Mutex
	inFlight int
	peak     int
	calls    atomic.Int32
}

func (c *fakeClient) FetchFeed(ctx context.Context, src model.Source) feed.Result {
	c.calls.Add(1)
	c.mu.Lock()
	c.inFlight++
	c.peak = max(c.peak, c.inFlight)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return feed.Result{Source: src, Err: &feed.FetchError{Source: src, Kind: feed.KindNetwork, Cause: ctx.Err()}}
	}

	if c.failing[src.Organization] {
		return feed.Result{Source: src, Err: &feed.FetchError{Source: src, Kind: feed.KindTimeout, Cause: context.DeadlineExceeded}}
	}
	return feed.Result{Source: src, Items: []model.RawItem{{Title: "Post at " + src.Organization}}}
}

func makeSources(n int) []model.Source {
	sources := make([]model.Source, n)
	for i := range sources {
		sources[i] = model.Source{
			URL:          fmt.Sprintf("https://feeds.example.org/%d", i),
			Organization: fmt.Sprintf("Org %02d", i),
			Category:     "SSC",
		}
	}
	return sources
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, p  int
		sizes []int
	}{
		{n: 37, p: 15, sizes: []int{15, 15, 7}},
		{n: 30, p: 15, sizes: []int{15, 15}},
		{n: 3, p: 15, sizes: []int{3}},
		{n: 4, p: 1, sizes: []int{1, 1, 1, 1}},
		{n: 2, p: 0, sizes: []int{1, 1}},
		{n: 0, p: 15, sizes: []int{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.p), func(t *testing.T) {
			sources := makeSources(tt.n)
			batches := Partition(sources, tt.p)

			sizes := make([]int, 0, len(batches))
			var flat []model.Source
			for _, b := range batches {
				sizes = append(sizes, len(b))
				flat = append(flat, b...)
			}
			assert.Equal(t, tt.sizes, sizes)
			assert.Equal(t, len(sources), len(flat))
			for i := range flat {
				assert.Equal(t, sources[i], flat[i], "order preserved")
			}
		})
	}
}

func TestRun_BatchesAndConcurrency(t *testing.T) {
	client := &fakeClient{delay: 20 * time.Millisecond}
	s := New(client, 15, WithClock(fixedClock))

	var progress []BatchProgress
	out, err := s.Run(context.Background(), makeSources(37), func(p BatchProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.Equal(t, int32(37), client.calls.Load())
	assert.LessOrEqual(t, client.peak, 15)
	assert.Equal(t, 3, out.Batches)
	assert.Equal(t, 37, out.Succeeded)
	assert.Empty(t, out.Failed)
	require.Len(t, out.Jobs, 37)
	assert.Equal(t, "Post at Org 00", out.Jobs[0].Title)
	assert.Equal(t, "Post at Org 36", out.Jobs[36].Title)

	require.Len(t, progress, 3)
	assert.Equal(t, []int{15, 30, 37}, []int{len(progress[0].Jobs), len(progress[1].Jobs), len(progress[2].Jobs)})
	assert.Equal(t, 3, progress[2].Index)
	assert.Equal(t, 3, progress[2].Total)
}

func TestRun_BatchesAreSequential(t *testing.T) {
	client := &fakeClient{delay: 10 * time.Millisecond}
	s := New(client, 2)

	_, err := s.Run(context.Background(), makeSources(6), nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, client.peak, 2)
}

func TestRun_FailureIsolation(t *testing.T) {
	client := &fakeClient{failing: map[string]bool{"Org 03": true}}
	s := New(client, 4, WithClock(fixedClock))

	out, err := s.Run(context.Background(), makeSources(10), nil)
	require.NoError(t, err)

	assert.Equal(t, 9, out.Succeeded)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, "Org 03", out.Failed[0].Source.Organization)
	assert.ErrorIs(t, out.Failed[0], feed.ErrTimeout)
	assert.Len(t, out.Jobs, 9)
	for _, j := range out.Jobs {
		assert.NotEqual(t, "Org 03", j.Organization)
	}
}

func TestRun_AllFailed(t *testing.T) {
	sources := makeSources(3)
	failing := map[string]bool{}
	for _, s := range sources {
		failing[s.Organization] = true
	}
	s := New(&fakeClient{failing: failing}, 15)

	out, err := s.Run(context.Background(), sources, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAllFeedsFailed)
	assert.ErrorIs(t, err, feed.ErrTimeout)
	assert.Len(t, out.Failed, 3)
	assert.Empty(t, out.Jobs)
}

func TestRun_NoSources(t *testing.T) {
	_, err := New(&fakeClient{}, 15).Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, model.ErrAllFeedsFailed)
}

func TestRun_EmptyFeedCountsAsSuccess(t *testing.T) {
	s := New(emptyClient{}, 5)
	out, err := s.Run(context.Background(), makeSources(2), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Succeeded)
	assert.Empty(t, out.Jobs)
}

type emptyClient struct{}

func (emptyClient) FetchFeed(_ context.Context, src model.Source) feed.Result {
	return feed.Result{Source: src, Items: []model.RawItem{}}
}

func TestRun_Cancellation(t *testing.T) {
	client := &fakeClient{delay: time.Second}
	s := New(client, 2)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	out, err := s.Run(ctx, makeSources(6), nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(2), client.calls.Load(), "no batch starts after cancellation")
	assert.Zero(t, out.Batches)
}

func TestRunBatch(t *testing.T) {
	t.Run("feed failures are not batch errors", func(t *testing.T) {
		client := &fakeClient{failing: map[string]bool{"Org 01": true}}
		s := New(client, 3)

		results, err := s.runBatch(context.Background(), makeSources(3))
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Nil(t, results[0].Err)
		require.NotNil(t, results[1].Err)
		assert.Equal(t, feed.KindTimeout, results[1].Err.Kind)
		assert.Nil(t, results[2].Err)
	})

	t.Run("cancellation surfaces from the group", func(t *testing.T) {
		client := &fakeClient{delay: time.Second}
		s := New(client, 2)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		results, err := s.runBatch(ctx, makeSources(2))
		require.ErrorIs(t, err, context.Canceled)
		require.Len(t, results, 2)
		for _, res := range results {
			require.NotNil(t, res.Err)
			assert.Equal(t, feed.KindNetwork, res.Err.Kind)
		}
	})
}

func TestNew_ClampsParallel(t *testing.T) {
	assert.Equal(t, 1, New(&fakeClient{}, 0).Parallel())
	assert.Equal(t, 1, New(&fakeClient{}, -3).Parallel())
	assert.Equal(t, 4, New(&fakeClient{}, 4).Parallel())
}
