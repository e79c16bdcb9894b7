// Package chat holds the per-session chat controller: which conversation is open, its live
// message subscription and the send path.
package chat

import (
	"context"
	"sync"

	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/reqctx"
	"github.com/shinyyama/marketchat/internal/service"
	"github.com/shinyyama/marketchat/internal/subscription"
	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "idle"
}

type Avatar struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

func avatarOf(u model.User) Avatar {
	return Avatar{UID: u.UID, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
}

// View is everything a renderer needs to paint an open conversation.
type View struct {
	Conversation model.Conversation `json:"conversation"`
	ListingTitle string             `json:"listingTitle"`
	Messages     []model.Message    `json:"messages"`
	LocalUID     string             `json:"localUid"`
	Self         Avatar             `json:"self"`
	Partner      Avatar             `json:"partner"`
}

// Sent reports whether msg was written by the local user.
func (v View) Sent(msg model.Message) bool {
	return msg.SenderUID == v.LocalUID
}

type RenderFunc func(View)

// MessageWatcher is the live message query the controller subscribes to.
type MessageWatcher interface {
	WatchByConversation(ctx context.Context, convID string, emit func([]model.Message)) error
}

type Controller struct {
	uid      string
	subs     *subscription.Manager
	convs    service.ConversationService
	profiles service.ProfileService
	messages MessageWatcher
	render   RenderFunc
	log      *zap.Logger

	mu     sync.Mutex
	state  State
	convID string
	token  subscription.Token
	gen    uint64
	closed bool
}

func NewController(
	uid string,
	subs *subscription.Manager,
	convs service.ConversationService,
	profiles service.ProfileService,
	messages MessageWatcher,
	render RenderFunc,
	log *zap.Logger,
) *Controller {
	return &Controller{
		uid:      uid,
		subs:     subs,
		convs:    convs,
		profiles: profiles,
		messages: messages,
		render:   render,
		log:      log.With(zap.String("uid", uid)),
	}
}

// Current returns the open conversation id and the controller state.
func (c *Controller) Current() (string, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.convID, c.state
}

// Open switches the controller to conversationID. The previous subscription is released
// before anything else happens, so no render for the old conversation runs after Open is
// called. Header data and avatars are read once here and are not refreshed while open. If
// Open fails the controller is left idle.
func (c *Controller) Open(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return service.ErrInvalidState
	}
	c.gen++
	gen := c.gen
	c.releaseLocked()
	c.mu.Unlock()

	cv, err := c.convs.Get(ctx, conversationID, c.uid)
	if err != nil {
		return err
	}
	title := c.convs.ListingTitle(ctx, cv)
	self := avatarOf(c.profiles.Lookup(ctx, c.uid))
	partner := avatarOf(c.profiles.Lookup(ctx, cv.Partner(c.uid)))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return service.ErrInvalidState
	}
	if c.gen != gen {
		reqctx.Logger(ctx, c.log).Debug("open superseded", zap.String("conversation", conversationID))
		return nil
	}

	base := View{
		Conversation: *cv,
		ListingTitle: title,
		LocalUID:     c.uid,
		Self:         self,
		Partner:      partner,
	}
	src := func(ctx context.Context, emit func([]model.Message)) error {
		return c.messages.WatchByConversation(ctx, cv.ID, emit)
	}
	c.token = subscription.Subscribe(c.subs, subscription.ConversationKey(cv.ID), src, func(msgs []model.Message) {
		sorted := append([]model.Message(nil), msgs...)
		model.SortMessages(sorted)
		v := base
		v.Messages = sorted
		c.render(v)
	})
	if c.token == (subscription.Token{}) {
		// The manager is closed.
		return service.ErrInvalidState
	}
	c.convID = cv.ID
	c.state = StateOpen
	return nil
}

// Send posts text (and an optional image URL) to the open conversation. In the idle state
// it fails with service.ErrInvalidState without touching the store.
func (c *Controller) Send(ctx context.Context, text string, imageURL *string) (*model.Message, error) {
	c.mu.Lock()
	convID, state := c.convID, c.state
	c.mu.Unlock()
	if state != StateOpen {
		return nil, service.ErrInvalidState
	}
	return c.convs.SendMessage(ctx, convID, c.uid, text, imageURL)
}

// Close releases the open conversation's subscription. In-flight sends are not cancelled.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.releaseLocked()
}

// Shutdown closes the controller for good. Later Open and Send calls fail with
// service.ErrInvalidState.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
	c.releaseLocked()
}

func (c *Controller) releaseLocked() {
	c.subs.Unsubscribe(c.token)
	c.token = subscription.Token{}
	c.convID = ""
	c.state = StateIdle
}
