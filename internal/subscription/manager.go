// Package subscription keeps at most one live query open per key and forwards every full
// snapshot it produces to a callback.
package subscription

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Key string

func ConversationKey(conversationID string) Key {
	return Key("conversation/" + conversationID)
}

func NotificationsKey(uid string) Key {
	return Key("notifications/" + uid)
}

// Source streams snapshots of a live query into emit until ctx is done. It returns nil on
// cancellation and an error when the underlying stream breaks.
type Source[T any] func(ctx context.Context, emit func([]T)) error

var errStreamEnded = errors.New("stream ended")

// Token is the cancellation handle of one subscription. The zero Token is valid and
// cancelling it does nothing.
type Token struct {
	sub *subscription
}

func (t Token) Key() Key {
	if t.sub == nil {
		return ""
	}
	return t.sub.key
}

type subscription struct {
	key    Key
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// deliver runs fn unless the subscription was cancelled. Holding mu while fn runs makes
// stop wait for an in-flight callback.
func (s *subscription) deliver(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

func (s *subscription) stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

type Options struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Manager owns the live subscriptions of one session.
type Manager struct {
	log  *zap.Logger
	opts Options

	mu     sync.Mutex
	active map[Key]*subscription
	closed bool
	wg     sync.WaitGroup
}

func NewManager(log *zap.Logger, opts Options) *Manager {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	return &Manager{log: log, opts: opts, active: make(map[Key]*subscription)}
}

// Subscribe opens a live query for key, cancelling any subscription already open for it.
// onUpdate receives each full snapshot; calls are serialised and never happen after the
// subscription is cancelled. onUpdate must not call back into the Manager.
func Subscribe[T any](m *Manager, key Key, src Source[T], onUpdate func([]T)) Token {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{key: key, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		close(sub.done)
		return Token{}
	}
	prev := m.active[key]
	m.active[key] = sub
	m.wg.Add(1)
	m.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	go m.run(ctx, sub, func(ctx context.Context, delivered func()) error {
		return src(ctx, func(snap []T) {
			if sub.deliver(func() { onUpdate(snap) }) {
				delivered()
			}
		})
	})
	return Token{sub: sub}
}

// run keeps the stream open, resubscribing with exponential backoff whenever it breaks. The
// backoff resets once a reconnected stream delivers a snapshot.
func (m *Manager) run(ctx context.Context, sub *subscription, stream func(context.Context, func()) error) {
	defer m.wg.Done()
	defer close(sub.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.opts.InitialInterval
	b.MaxInterval = m.opts.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	log := m.log.With(zap.String("key", string(sub.key)))
	for {
		var delivered atomic.Bool
		err := stream(ctx, func() { delivered.Store(true) })
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errStreamEnded
		}
		if delivered.Load() {
			b.Reset()
		}
		wait := b.NextBackOff()
		log.Warn("live query dropped, resubscribing", zap.Error(err), zap.Duration("backoff", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// Unsubscribe cancels the subscription behind t. When it returns no further callback for
// it will run. Cancelling twice, or cancelling the zero Token, is a no-op.
func (m *Manager) Unsubscribe(t Token) {
	if t.sub == nil {
		return
	}
	m.mu.Lock()
	if m.active[t.sub.key] == t.sub {
		delete(m.active, t.sub.key)
	}
	m.mu.Unlock()
	t.sub.stop()
}

// Active reports whether a subscription is open for key.
func (m *Manager) Active(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[key]
	return ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Close cancels every subscription and waits for their goroutines to exit. Subscribe after
// Close returns the zero Token.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	subs := make([]*subscription, 0, len(m.active))
	for key, sub := range m.active {
		subs = append(subs, sub)
		delete(m.active, key)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	m.wg.Wait()
}
