// Package backend opens the document store and identity provider selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/shinyyama/marketchat/internal/changefeed"
	"github.com/shinyyama/marketchat/internal/config"
	"github.com/shinyyama/marketchat/internal/db"
	"github.com/shinyyama/marketchat/internal/firebaseapp"
	"github.com/shinyyama/marketchat/internal/middleware"
	"github.com/shinyyama/marketchat/internal/repository"
	"github.com/shinyyama/marketchat/internal/repository/fsrepo"
	"github.com/shinyyama/marketchat/internal/repository/memrepo"
	"go.uber.org/zap"
)

// Backend is everything cmd/* needs from the outside world.
type Backend struct {
	Store    *repository.Store
	Verifier middleware.TokenVerifier
}

func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	var app *firebaseapp.App
	if cfg.NeedsFirebase() {
		var err error
		if app, err = firebaseapp.New(ctx, cfg); err != nil {
			return nil, err
		}
	}

	b := &Backend{}
	switch cfg.StoreBackend {
	case config.BackendMySQL:
		conn, err := db.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(conn); err != nil {
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
		}
		b.Store = repository.NewStore(conn, changefeed.NewWithResync(cfg.LiveQueryResync))
	case config.BackendFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		b.Store = fsrepo.NewStore(client)
	case config.BackendMemory:
		log.Warn("using in-memory store; data is lost on exit")
		b.Store = memrepo.New().Store()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.AuthMode == config.AuthFirebase {
		client, err := app.Auth(ctx)
		if err != nil {
			_ = b.Store.Close()
			return nil, err
		}
		b.Verifier = client
	} else {
		log.Warn("trusting X-User-UID header for identity", zap.String("auth_mode", cfg.AuthMode))
	}
	log.Info("backend ready", zap.String("store", cfg.StoreBackend), zap.String("auth", cfg.AuthMode))
	return b, nil
}

func (b *Backend) Close() error {
	return b.Store.Close()
}
