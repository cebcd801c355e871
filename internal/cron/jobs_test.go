package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/session"
	"github.com/angelmondragon/storefront-cart/internal/snapshot"
)

type fakePruner struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (f *fakePruner) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.removed, f.err
}

func TestSnapshotRetentionJobUsesTTLCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	pruner := &fakePruner{removed: 7}
	job, err := NewSnapshotRetentionJob(pruner, 720*time.Hour)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job.now = func() time.Time { return now }

	removed, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if removed != 7 {
		t.Fatalf("expected 7 removed, got %d", removed)
	}
	if want := now.Add(-720 * time.Hour); !pruner.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, pruner.cutoff)
	}
}

func TestSnapshotRetentionJobPropagatesError(t *testing.T) {
	job, _ := NewSnapshotRetentionJob(&fakePruner{err: errors.New("db gone")}, time.Hour)
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestJobConstructorsValidate(t *testing.T) {
	if _, err := NewSnapshotRetentionJob(nil, time.Hour); err == nil {
		t.Fatal("expected nil pruner to fail")
	}
	if _, err := NewSnapshotRetentionJob(&fakePruner{}, 0); err == nil {
		t.Fatal("expected zero ttl to fail")
	}
	if _, err := NewIdleCartJob(nil, time.Minute); err == nil {
		t.Fatal("expected nil evictor to fail")
	}
}

func TestIdleCartJobEvictsThroughRegistry(t *testing.T) {
	ctx := context.Background()
	storage := snapshot.NewMemory()
	registry, err := session.NewRegistry(storage, cart.Options{}, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	id := session.NewID()
	store, err := registry.Store(ctx, id)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	store.AddItem(ctx, cart.Product{ID: "A", Name: "A", UnitPrice: decimal.NewFromInt(3)}, 2)

	job, err := NewIdleCartJob(registry, time.Nanosecond)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	removed, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if removed != 1 || registry.Len() != 0 {
		t.Fatalf("expected the cart to be evicted, removed=%d open=%d", removed, registry.Len())
	}
	if _, err := storage.LoadSnapshot(ctx, session.Key(id)); err != nil {
		t.Fatalf("evicted cart must keep its snapshot: %v", err)
	}
}
