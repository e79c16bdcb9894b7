package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/reqctx"
	"github.com/shinyyama/marketchat/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	imageSummary       = "[image]"
	titleNoListing     = "Item Inquiry"
	titleListingGone   = "Item Unavailable"
	titleLookupFailed  = "Chat"
	partnerLookupLimit = 8
)

// conversationNamespace seeds deterministic conversation ids.
var conversationNamespace = uuid.MustParse("5b0f7f4e-3c51-4d55-9a0e-6f1f6a3c2b10")

// ConversationKey derives the id of the conversation between a and b about listingID. The
// participant pair is unordered.
func ConversationKey(listingID, a, b string) string {
	if b < a {
		a, b = b, a
	}
	return uuid.NewSHA1(conversationNamespace, []byte(listingID+"\x00"+a+"\x00"+b)).String()
}

// MessageNotifier is the fan-out step of SendMessage.
type MessageNotifier interface {
	NotifyMessage(ctx context.Context, recipientUID, convID, senderUID, text string) (*model.Notification, error)
}

type ConversationEntry struct {
	model.Conversation
	Partner model.User `json:"partner"`
}

type ConversationService interface {
	StartOrGet(ctx context.Context, listingID, sellerUID, buyerUID string) (*model.Conversation, bool, error)
	Contact(ctx context.Context, listingID, sellerUID, buyerUID string) (*model.Conversation, error)
	Get(ctx context.Context, id, uid string) (*model.Conversation, error)
	ListByUser(ctx context.Context, uid string) ([]ConversationEntry, error)
	ListMessages(ctx context.Context, id, uid string) ([]model.Message, error)
	SendMessage(ctx context.Context, id, senderUID, text string, imageURL *string) (*model.Message, error)
	Delete(ctx context.Context, id, uid string) error
	ListingTitle(ctx context.Context, cv *model.Conversation) string
}

type conversationService struct {
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	listingRepo repository.ListingRepository
	notifier    MessageNotifier
	profiles    ProfileService
	log         *zap.Logger
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	listingRepo repository.ListingRepository,
	notifier MessageNotifier,
	profiles ProfileService,
	log *zap.Logger,
) ConversationService {
	return &conversationService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		listingRepo: listingRepo,
		notifier:    notifier,
		profiles:    profiles,
		log:         log,
	}
}

// StartOrGet returns the buyer's conversation with the seller about the listing, creating it
// when none exists. The bool reports whether it was created by this call.
func (s *conversationService) StartOrGet(ctx context.Context, listingID, sellerUID, buyerUID string) (*model.Conversation, bool, error) {
	if sellerUID == "" || buyerUID == "" {
		return nil, false, validationError("seller and buyer are required")
	}
	if sellerUID == buyerUID {
		return nil, false, validationError("cannot chat with yourself")
	}
	existing, err := s.convRepo.FindByParticipantAndListing(ctx, buyerUID, listingID)
	if err != nil {
		return nil, false, storeErr(err)
	}
	for _, cv := range existing {
		if cv.HasParticipant(sellerUID) {
			return &cv, false, nil
		}
	}

	cv := &model.Conversation{
		ID:        ConversationKey(listingID, buyerUID, sellerUID),
		ListingID: listingID,
		BuyerUID:  buyerUID,
		SellerUID: sellerUID,
	}
	if err := s.convRepo.Create(ctx, cv); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// Lost a create race against the same pair; the winner's document is ours too.
			got, err := s.convRepo.FindByID(ctx, cv.ID)
			if err != nil {
				return nil, false, storeErr(err)
			}
			return got, false, nil
		}
		return nil, false, storeErr(err)
	}
	return cv, true, nil
}

// Contact is StartOrGet followed, for a newly created conversation about an existing
// listing, by the buyer's two opening messages.
func (s *conversationService) Contact(ctx context.Context, listingID, sellerUID, buyerUID string) (*model.Conversation, error) {
	cv, created, err := s.StartOrGet(ctx, listingID, sellerUID, buyerUID)
	if err != nil || !created || listingID == "" {
		return cv, err
	}
	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			reqctx.Logger(ctx, s.log).Warn("listing lookup failed", zap.String("listing", listingID), zap.Error(err))
		}
		return cv, nil
	}
	openers := []string{
		fmt.Sprintf("Product: %s (₹%s)", listing.Title, listing.PriceLabel()),
		fmt.Sprintf("I want to know about %s (%s)", listing.Title, listing.Category),
	}
	var errs []error
	for _, text := range openers {
		msg, err := s.SendMessage(ctx, cv.ID, buyerUID, text, nil)
		if err == nil {
			continue
		}
		errs = append(errs, fmt.Errorf("opening message: %w", err))
		if msg == nil {
			break
		}
	}
	return cv, errors.Join(errs...)
}

func (s *conversationService) Get(ctx context.Context, id, uid string) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if !cv.HasParticipant(uid) {
		return nil, ErrForbidden
	}
	return cv, nil
}

func (s *conversationService) ListByUser(ctx context.Context, uid string) ([]ConversationEntry, error) {
	if uid == "" {
		return nil, validationError("uid is required")
	}
	convs, err := s.convRepo.FindByUser(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	entries := make([]ConversationEntry, len(convs))
	var g errgroup.Group
	g.SetLimit(partnerLookupLimit)
	for i, cv := range convs {
		g.Go(func() error {
			entries[i] = ConversationEntry{Conversation: cv, Partner: s.profiles.Lookup(ctx, cv.Partner(uid))}
			return nil
		})
	}
	_ = g.Wait()
	return entries, nil
}

func (s *conversationService) ListMessages(ctx context.Context, id, uid string) ([]model.Message, error) {
	if _, err := s.Get(ctx, id, uid); err != nil {
		return nil, err
	}
	msgs, err := s.msgRepo.ListByConversation(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	model.SortMessages(msgs)
	return msgs, nil
}

// SendMessage persists the message, refreshes the conversation summary and notifies the
// other participant, in that order. The steps are independent writes: when a later step
// fails the persisted message is still returned together with the error.
func (s *conversationService) SendMessage(ctx context.Context, id, senderUID, text string, imageURL *string) (*model.Message, error) {
	if imageURL != nil && strings.TrimSpace(*imageURL) == "" {
		imageURL = nil
	}
	if strings.TrimSpace(text) == "" && imageURL == nil {
		return nil, validationError("text or image is required")
	}
	cv, err := s.Get(ctx, id, senderUID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: cv.ID,
		SenderUID:      senderUID,
		Text:           text,
		ImageURL:       imageURL,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, storeErr(err)
	}

	log := reqctx.Logger(ctx, s.log).With(zap.String("conversation", cv.ID), zap.String("message", msg.ID))
	summary := text
	if strings.TrimSpace(summary) == "" {
		summary = imageSummary
	}

	var errs []error
	if err := s.convRepo.UpdateLastMessage(ctx, cv.ID, summary, msg.CreatedAt); err != nil {
		log.Warn("conversation summary update failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("update conversation summary: %w", storeErr(err)))
	}
	if _, err := s.notifier.NotifyMessage(ctx, cv.Partner(senderUID), cv.ID, senderUID, summary); err != nil {
		log.Warn("message notification failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("notify recipient: %w", err))
	}
	return msg, errors.Join(errs...)
}

// Delete removes the conversation for both participants. Messages are not deleted.
func (s *conversationService) Delete(ctx context.Context, id, uid string) error {
	if _, err := s.Get(ctx, id, uid); err != nil {
		return err
	}
	return storeErr(s.convRepo.Delete(ctx, id))
}

// ListingTitle labels a chat header with the linked listing's title.
func (s *conversationService) ListingTitle(ctx context.Context, cv *model.Conversation) string {
	if cv == nil || cv.ListingID == "" {
		return titleNoListing
	}
	listing, err := s.listingRepo.FindByID(ctx, cv.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return titleListingGone
		}
		reqctx.Logger(ctx, s.log).Warn("listing lookup failed", zap.String("listing", cv.ListingID), zap.Error(err))
		return titleLookupFailed
	}
	return listing.Title
}
