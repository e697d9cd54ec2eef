package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
)

// FirebaseTree backs the Tree with a Firebase Realtime Database via
// the Admin SDK. The Admin SDK exposes no streaming listeners, so
// Watch polls the subtree and notifies when the content changes.
type FirebaseTree struct {
	client       *db.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

const defaultPollInterval = 2 * time.Second

func NewFirebaseTree(ctx context.Context, databaseURL string, logger *slog.Logger) (*FirebaseTree, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL})
	if err != nil {
		return nil, err
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseTree{
		client:       client,
		pollInterval: defaultPollInterval,
		logger:       logger,
	}, nil
}

func (t *FirebaseTree) Get(ctx context.Context, path string, v any) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	return t.client.NewRef(path).Get(ctx, v)
}

func (t *FirebaseTree) Set(ctx context.Context, path string, v any) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	return t.client.NewRef(path).Set(ctx, v)
}

func (t *FirebaseTree) Push(ctx context.Context, path string, v any) (string, error) {
	if _, err := splitPath(path); err != nil {
		return "", err
	}
	ref, err := t.client.NewRef(path).Push(ctx, v)
	if err != nil {
		return "", err
	}
	return ref.Key, nil
}

func (t *FirebaseTree) Delete(ctx context.Context, path string) error {
	if _, err := splitPath(path); err != nil {
		return err
	}
	return t.client.NewRef(path).Delete(ctx)
}

func (t *FirebaseTree) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	if _, err := splitPath(path); err != nil {
		return nil, err
	}
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		ticker := time.NewTicker(t.pollInterval)
		defer ticker.Stop()

		last, err := t.snapshot(ctx, path)
		if err != nil {
			t.logger.Warn("firebase watch: initial read failed",
				slog.String("path", path), slog.String("errorMsg", err.Error()))
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, err := t.snapshot(ctx, path)
				if err != nil {
					t.logger.Warn("firebase watch: poll failed",
						slog.String("path", path), slog.String("errorMsg", err.Error()))
					continue
				}
				if bytes.Equal(current, last) {
					continue
				}
				last = current
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (t *FirebaseTree) snapshot(ctx context.Context, path string) ([]byte, error) {
	var v any
	if err := t.client.NewRef(path).Get(ctx, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
