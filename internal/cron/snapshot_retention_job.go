package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/snapshot"
)

// SnapshotRetentionJob deletes snapshots nobody has written within TTL, so
// abandoned carts do not accumulate in file and SQL storage.
type SnapshotRetentionJob struct {
	pruner snapshot.Pruner
	ttl    time.Duration
	now    func() time.Time
}

func NewSnapshotRetentionJob(pruner snapshot.Pruner, ttl time.Duration) (*SnapshotRetentionJob, error) {
	if pruner == nil {
		return nil, fmt.Errorf("snapshot pruner required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("retention ttl must be positive, got %s", ttl)
	}
	return &SnapshotRetentionJob{pruner: pruner, ttl: ttl, now: time.Now}, nil
}

func (j *SnapshotRetentionJob) Name() string { return "snapshot-retention" }

func (j *SnapshotRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.ttl)
	removed, err := j.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("snapshot retention: %w", err)
	}
	return removed, nil
}
