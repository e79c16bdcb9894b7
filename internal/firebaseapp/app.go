// Package firebaseapp initialises the shared Firebase app used for token verification and
// the Firestore backend.
package firebaseapp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/shinyyama/marketchat/internal/config"
	"google.golang.org/api/option"
)

type App struct {
	app       *firebase.App
	projectID string
}

// New builds the app from cfg. Without FIREBASE_CREDENTIALS_FILE the application default
// credentials are used.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	return &App{app: app, projectID: cfg.FirebaseProjectID}, nil
}

func (a *App) ProjectID() string {
	return a.projectID
}

func (a *App) Auth(ctx context.Context) (*auth.Client, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return client, nil
}

func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore: %w", err)
	}
	return client, nil
}
