// Package memrepo is an in-memory document store for local development and tests. Live
// queries are driven by a changefeed, the same way the MySQL backend does it.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shinyyama/marketchat/internal/changefeed"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository"
)

type DB struct {
	mu            sync.RWMutex
	feed          *changefeed.Feed
	now           func() time.Time
	conversations map[string]model.Conversation
	messages      map[string][]model.Message
	notifications map[string]map[string]model.Notification
	users         map[string]model.User
	listings      map[string]model.Listing
}

func New() *DB {
	return &DB{
		feed:          changefeed.New(),
		now:           time.Now,
		conversations: make(map[string]model.Conversation),
		messages:      make(map[string][]model.Message),
		notifications: make(map[string]map[string]model.Notification),
		users:         make(map[string]model.User),
		listings:      make(map[string]model.Listing),
	}
}

// SetClock replaces the timestamp source used for server-assigned times.
func (d *DB) SetClock(now func() time.Time) {
	d.mu.Lock()
	d.now = now
	d.mu.Unlock()
}

func (d *DB) Feed() *changefeed.Feed {
	return d.feed
}

func (d *DB) Store() *repository.Store {
	return &repository.Store{
		Conversations: conversations{d},
		Messages:      messages{d},
		Notifications: notifications{d},
		Users:         users{d},
		Listings:      listings{d},
		Close:         func() error { return nil },
	}
}

// PutListing seeds a listing. Listings are read-only through the repository interface.
func (d *DB) PutListing(l model.Listing) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listings[l.ID] = l
}

type conversations struct{ d *DB }

func (r conversations) Create(ctx context.Context, cv *model.Conversation) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.conversations[cv.ID]; ok {
		return repository.ErrAlreadyExists
	}
	if cv.CreatedAt.IsZero() {
		cv.CreatedAt = r.d.now()
	}
	r.d.conversations[cv.ID] = *cv
	return nil
}

func (r conversations) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	cv, ok := r.d.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cv, nil
}

func (r conversations) FindByParticipantAndListing(ctx context.Context, uid, listingID string) ([]model.Conversation, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []model.Conversation
	for _, cv := range r.d.conversations {
		if cv.ListingID == listingID && cv.HasParticipant(uid) {
			out = append(out, cv)
		}
	}
	return out, nil
}

func (r conversations) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	var out []model.Conversation
	for _, cv := range r.d.conversations {
		if cv.HasParticipant(uid) {
			out = append(out, cv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	return out, nil
}

func lastActivity(cv model.Conversation) time.Time {
	if cv.LastMessageAt != nil {
		return *cv.LastMessageAt
	}
	return cv.CreatedAt
}

func (r conversations) UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	cv, ok := r.d.conversations[id]
	if !ok {
		return repository.ErrNotFound
	}
	cv.LastMessage = text
	cv.LastMessageAt = &at
	r.d.conversations[id] = cv
	return nil
}

func (r conversations) Delete(ctx context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if _, ok := r.d.conversations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.d.conversations, id)
	return nil
}

type messages struct{ d *DB }

func (r messages) Create(ctx context.Context, msg *model.Message) error {
	r.d.mu.Lock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.d.now()
	}
	r.d.messages[msg.ConversationID] = append(r.d.messages[msg.ConversationID], *msg)
	r.d.mu.Unlock()
	r.d.feed.Publish(changefeed.MessagesTopic(msg.ConversationID))
	return nil
}

func (r messages) ListByConversation(ctx context.Context, convID string) ([]model.Message, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := append([]model.Message(nil), r.d.messages[convID]...)
	model.SortMessages(out)
	return out, nil
}

func (r messages) WatchByConversation(ctx context.Context, convID string, emit func([]model.Message)) error {
	load := func(ctx context.Context) ([]model.Message, error) {
		return r.ListByConversation(ctx, convID)
	}
	return changefeed.Watch(ctx, r.d.feed, changefeed.MessagesTopic(convID), load, emit)
}

type notifications struct{ d *DB }

func (r notifications) Create(ctx context.Context, n *model.Notification) error {
	r.d.mu.Lock()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.d.now()
	}
	feed := r.d.notifications[n.UserUID]
	if feed == nil {
		feed = make(map[string]model.Notification)
		r.d.notifications[n.UserUID] = feed
	}
	feed[n.ID] = *n
	r.d.mu.Unlock()
	r.d.feed.Publish(changefeed.NotificationsTopic(n.UserUID))
	return nil
}

func (r notifications) ListByUser(ctx context.Context, uid string, unreadOnly bool) ([]model.Notification, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	out := make([]model.Notification, 0, len(r.d.notifications[uid]))
	for _, n := range r.d.notifications[uid] {
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	model.SortNotifications(out)
	return out, nil
}

func (r notifications) MarkRead(ctx context.Context, uid, id string) error {
	r.d.mu.Lock()
	n, ok := r.d.notifications[uid][id]
	if !ok {
		r.d.mu.Unlock()
		return repository.ErrNotFound
	}
	n.Read = true
	r.d.notifications[uid][id] = n
	r.d.mu.Unlock()
	r.d.feed.Publish(changefeed.NotificationsTopic(uid))
	return nil
}

func (r notifications) Delete(ctx context.Context, uid, id string) error {
	r.d.mu.Lock()
	if _, ok := r.d.notifications[uid][id]; !ok {
		r.d.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(r.d.notifications[uid], id)
	r.d.mu.Unlock()
	r.d.feed.Publish(changefeed.NotificationsTopic(uid))
	return nil
}

func (r notifications) WatchByUser(ctx context.Context, uid string, emit func([]model.Notification)) error {
	load := func(ctx context.Context) ([]model.Notification, error) {
		return r.ListByUser(ctx, uid, false)
	}
	return changefeed.Watch(ctx, r.d.feed, changefeed.NotificationsTopic(uid), load, emit)
}

type users struct{ d *DB }

func (r users) FindByID(ctx context.Context, uid string) (*model.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	u, ok := r.d.users[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r users) Upsert(ctx context.Context, u *model.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if prev, ok := r.d.users[u.UID]; ok {
		u.CreatedAt = prev.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = r.d.now()
	}
	r.d.users[u.UID] = *u
	return nil
}

type listings struct{ d *DB }

func (r listings) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	l, ok := r.d.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r listings) Put(ctx context.Context, l *model.Listing) error {
	r.d.PutListing(*l)
	return nil
}
