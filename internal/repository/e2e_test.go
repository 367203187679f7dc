package repository

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/jobfeed/internal/config"
	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/feed"
	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/scheduler"
	"github.com/pders01/jobfeed/internal/storage"
)

const ibpsFeedA = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>IBPS</title>
<item>
	<title>Clerk Recruitment 2024</title>
	<link>https://www.ibps.in/clerk</link>
	<description><![CDATA[<p>Graduate candidates. Last date: 15/03/2024. Location: Mumbai. Pay Rs. 25,000 - 40,000 per month</p>]]></description>
	<pubDate>Fri, 01 Mar 2024 10:00:00 GMT</pubDate>
</item>
<item>
	<title>PO Recruitment 2024</title>
	<link>https://www.ibps.in/po</link>
	<description>Probationary officers</description>
	<pubDate>Thu, 29 Feb 2024 10:00:00 GMT</pubDate>
</item>
</channel></rss>`

const ibpsFeedB = `{
	"status": "ok",
	"items": [
		{"title": "Clerk Recruitment 2024", "pubDate": "2024-03-01 11:00:00", "link": "https://www.ibps.in/clerk-mirror",
		 "description": "Mirror of the clerk notice", "content": ""},
		{"title": "Specialist Officer", "pubDate": "2024-02-20 09:00:00", "link": "https://www.ibps.in/so",
		 "description": "12th pass", "content": ""}
	]
}`

func TestEndToEnd_ThreeFeedsWithDuplicateAndTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(ibpsFeedA)) })
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(ibpsFeedB)) })
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := config.TestConfig()
	cfg.Feed.HTTPTimeout = 150 * time.Millisecond
	cfg.Sources = []model.Source{
		{URL: server.URL + "/a", Organization: "IBPS", Category: "Banking", Education: "Graduate"},
		{URL: server.URL + "/b", Organization: "IBPS", Category: "Banking", Education: "Graduate"},
		{URL: server.URL + "/slow", Organization: "ISRO", Category: "Technical", Education: "Engineering"},
	}
	require.NoError(t, cfg.Validate())

	now := func() time.Time { return time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC) }
	kv, err := storage.NewBoltKV(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	cache := storage.NewCache(kv, storage.WithClock(now))
	defer cache.Close()

	sched := scheduler.New(feed.NewClient(cfg), cfg.Feed.MaxParallel, scheduler.WithClock(now))
	repo := New(sched, cache, cfg.Sources, WithClock(now))
	defer repo.Close()

	var logs bytes.Buffer
	debuglog.SetOutput(&logs, debuglog.LevelDebug)
	t.Cleanup(func() { debuglog.SetOutput(nil, debuglog.LevelOff) })

	res, err := repo.RefreshSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PartiallyFailed, res.State)
	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "ISRO", res.Failed[0].Source.Organization)
	assert.ErrorIs(t, res.Failed[0], feed.ErrTimeout)

	// The timed-out feed is left out of the list but logged.
	logged := logs.String()
	assert.Contains(t, logged, `level=WARN msg="failed to fetch ISRO`)
	assert.Contains(t, logged, "kind=timeout")
	assert.Contains(t, logged, "source=isro")
	assert.Contains(t, logged, "1 of 3 feeds failed")

	jobs := repo.Jobs()
	require.Len(t, jobs, 3, "the clerk notice appears in both IBPS feeds")
	assert.Equal(t, "Clerk Recruitment 2024", jobs[0].Title)
	assert.Equal(t, "https://www.ibps.in/clerk-mirror", jobs[0].ApplyLink, "later record wins")
	assert.Equal(t, "PO Recruitment 2024", jobs[1].Title)
	assert.Equal(t, "Specialist Officer", jobs[2].Title)
	assert.Equal(t, "12th Pass", jobs[2].Eligibility)
	assert.True(t, jobs[0].Featured)

	// The snapshot was persisted and is served back while fresh.
	cached, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, jobs, cached)

	fresh := New(sched, cache, cfg.Sources, WithClock(now))
	defer fresh.Close()
	require.True(t, fresh.Bootstrap())
	assert.Equal(t, jobs, fresh.Jobs())
}
