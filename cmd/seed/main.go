package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/marketchat/internal/backend"
	"github.com/shinyyama/marketchat/internal/config"
	"github.com/shinyyama/marketchat/internal/logging"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository"
	"github.com/shinyyama/marketchat/internal/service"
	"go.uber.org/zap"
)

type seedListing struct {
	ID       string
	Title    string
	Category string
	Price    float64
	Seller   string
}

type seedChat struct {
	ListingID string
	Buyer     string
	Replies   []string
}

var seedUsers = []model.User{
	{UID: "seed-asha", DisplayName: "Asha Verma", Email: "asha@example.edu", University: "IIT Delhi"},
	{UID: "seed-rohan", DisplayName: "Rohan Iyer", Email: "rohan@example.edu", University: "IIT Delhi"},
	{UID: "seed-meera", DisplayName: "Meera Nair", Email: "meera@example.edu", University: "IIT Bombay"},
}

var seedListings = []seedListing{
	{ID: "seed-desk", Title: "Study Desk", Category: "furniture", Price: 1800, Seller: "seed-asha"},
	{ID: "seed-calc", Title: "Scientific Calculator", Category: "electronics", Price: 649.5, Seller: "seed-asha"},
	{ID: "seed-cycle", Title: "Hybrid Bicycle", Category: "sports", Price: 5200, Seller: "seed-meera"},
}

var seedChats = []seedChat{
	{ListingID: "seed-desk", Buyer: "seed-rohan", Replies: []string{"Still available, pick up near the library?"}},
	{ListingID: "seed-cycle", Buyer: "seed-asha", Replies: []string{"Yes! Gears were serviced last month."}},
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Seeding never verifies tokens.
	cfg.AuthMode = config.AuthHeader
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StoreBackend == config.BackendMemory {
		return errors.New("seeding the in-memory store has no effect; set STORE_BACKEND")
	}

	logger, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		return err
	}
	b, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	canSeed, err := shouldSeed(ctx, b.Store)
	if err != nil {
		return err
	}
	if !canSeed {
		logger.Info("seed data already exists; skipping (set FORCE_SEED=true to override)")
		return nil
	}

	seeder, ok := b.Store.Listings.(repository.ListingSeeder)
	if !ok {
		return fmt.Errorf("store backend %q cannot write listings", cfg.StoreBackend)
	}

	profiles := service.NewProfileService(b.Store.Users, logger)
	notifications := service.NewNotificationService(b.Store.Notifications, logger, cfg.NotificationBulkParallel)
	convs := service.NewConversationService(b.Store.Conversations, b.Store.Messages, b.Store.Listings, notifications, profiles, logger)

	for i := range seedUsers {
		if err := profiles.Upsert(ctx, &seedUsers[i]); err != nil {
			return fmt.Errorf("upsert user %s: %w", seedUsers[i].UID, err)
		}
	}
	sellers := make(map[string]string, len(seedListings))
	for _, l := range seedListings {
		listing := &model.Listing{
			ID:        l.ID,
			Title:     strings.TrimSpace(l.Title),
			Category:  l.Category,
			Price:     l.Price,
			SellerUID: l.Seller,
			CreatedAt: time.Now().UTC(),
		}
		if err := seeder.Put(ctx, listing); err != nil {
			return fmt.Errorf("put listing %s: %w", l.ID, err)
		}
		sellers[l.ID] = l.Seller
	}
	for _, sc := range seedChats {
		seller := sellers[sc.ListingID]
		cv, err := convs.Contact(ctx, sc.ListingID, seller, sc.Buyer)
		if err != nil {
			return fmt.Errorf("contact %s: %w", sc.ListingID, err)
		}
		for _, text := range sc.Replies {
			if _, err := convs.SendMessage(ctx, cv.ID, seller, text, nil); err != nil {
				return fmt.Errorf("reply in %s: %w", cv.ID, err)
			}
		}
		logger.Info("seeded conversation", zap.String("conversation", cv.ID), zap.String("listing", sc.ListingID))
	}

	logger.Info("seed complete",
		zap.Int("users", len(seedUsers)),
		zap.Int("listings", len(seedListings)),
		zap.Int("conversations", len(seedChats)))
	return nil
}

func shouldSeed(ctx context.Context, store *repository.Store) (bool, error) {
	_, err := store.Listings.FindByID(ctx, seedListings[0].ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("check seed listing: %w", err)
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
