package repository

import (
	"sync"
	"time"

	"github.com/pders01/jobfeed/internal/feed"
	"github.com/pders01/jobfeed/internal/model"
)

type EventType string

const (
	EventLoaded          EventType = "loaded"
	EventStarted         EventType = "started"
	EventProgress        EventType = "progress"
	EventSucceeded       EventType = "succeeded"
	EventPartiallyFailed EventType = "partially-failed"
	EventFailed          EventType = "failed"
)

// Event is published to every subscriber. Jobs is a snapshot owned by the
// receiver: the merged list for progress and terminal events, the cached
// list for loaded.
type Event struct {
	Type     EventType
	CycleID  string
	At       time.Time
	Jobs     []model.Job
	Batch    int
	Batches  int
	Failures []*feed.FetchError
	Err      error
}

// Count is the number of jobs carried by the event.
func (e Event) Count() int {
	return len(e.Jobs)
}

const subscriberBuffer = 32

type hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	closed  bool
}

func newHub() *hub {
	return &hub{clients: make(map[chan Event]struct{})}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		})
	}
}

func (h *hub) publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}
