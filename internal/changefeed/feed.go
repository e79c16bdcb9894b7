// Package changefeed is an in-process topic broadcaster. Stores that cannot push snapshots
// themselves publish a topic after every write and watchers re-run their query.
package changefeed

import (
	"sync"
	"time"
)

// Feed fans change signals out to the watchers of a topic. Signals coalesce: a watcher that
// has not consumed the previous signal sees a single pending one.
type Feed struct {
	mu     sync.RWMutex
	topics map[string]map[*Watcher]struct{}
	resync time.Duration
}

func New() *Feed {
	return &Feed{topics: make(map[string]map[*Watcher]struct{})}
}

// NewWithResync returns a feed whose watchers also re-run their query every interval, so
// writes made by other processes sharing the database are picked up. Zero disables it.
func NewWithResync(interval time.Duration) *Feed {
	f := New()
	f.resync = interval
	return f
}

type Watcher struct {
	C     <-chan struct{}
	c     chan struct{}
	feed  *Feed
	topic string
	once  sync.Once
}

// Subscribe registers a watcher for topic. Callers must Stop it.
func (f *Feed) Subscribe(topic string) *Watcher {
	ch := make(chan struct{}, 1)
	w := &Watcher{C: ch, c: ch, feed: f, topic: topic}
	f.mu.Lock()
	set := f.topics[topic]
	if set == nil {
		set = make(map[*Watcher]struct{})
		f.topics[topic] = set
	}
	set[w] = struct{}{}
	f.mu.Unlock()
	return w
}

// Publish signals every watcher of topic without blocking.
func (f *Feed) Publish(topic string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for w := range f.topics[topic] {
		select {
		case w.c <- struct{}{}:
		default:
		}
	}
}

// Watchers reports how many watchers are registered on topic.
func (f *Feed) Watchers(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.topics[topic])
}

// Stop unregisters the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		w.feed.mu.Lock()
		defer w.feed.mu.Unlock()
		set := w.feed.topics[w.topic]
		delete(set, w)
		if len(set) == 0 {
			delete(w.feed.topics, w.topic)
		}
	})
}

func MessagesTopic(conversationID string) string {
	return "messages/" + conversationID
}

func NotificationsTopic(uid string) string {
	return "notifications/" + uid
}
