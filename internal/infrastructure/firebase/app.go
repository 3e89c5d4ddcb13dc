package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"portfoliochat/pkg/config"
	"portfoliochat/pkg/logger"
)

// Clients bundles what the chat server needs from one Firebase project.
type Clients struct {
	Auth      *FirebaseAuthClient
	Firestore *firestore.Client
}

func (c *Clients) Close() error {
	return c.Firestore.Close()
}

func credentials(cfg *config.Config) (option.ClientOption, error) {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON)), nil
	}
	if cfg.FirebaseServiceAccountPath == "" {
		return nil, fmt.Errorf("FIREBASE_SERVICE_ACCOUNT_JSON or FIREBASE_SERVICE_ACCOUNT_PATH is required")
	}
	if _, err := os.Stat(cfg.FirebaseServiceAccountPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("service account file does not exist: %s", cfg.FirebaseServiceAccountPath)
	}
	logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
	return option.WithCredentialsFile(cfg.FirebaseServiceAccountPath), nil
}

func NewClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	opt, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}
	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &Clients{
		Auth:      NewFirebaseAuthClient(authClient),
		Firestore: firestoreClient,
	}, nil
}
