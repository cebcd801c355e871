// Package snapshot persists serialized cart snapshots keyed by session.
package snapshot

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by LoadSnapshot when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// Storage is the durable medium a cart store mirrors its state into.
type Storage interface {
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)
	SaveSnapshot(ctx context.Context, key string, data []byte) error
	DeleteSnapshot(ctx context.Context, key string) error
}

// Pinger is implemented by backends that depend on a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Pruner is implemented by backends that can drop snapshots last written
// before cutoff. Redis expires keys itself and does not implement it.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("snapshot key is required")
	}
	return nil
}
