package cron

import (
	"context"
	"fmt"
	"time"
)

type idleEvictor interface {
	EvictIdle(ctx context.Context, idle time.Duration) (int, error)
}

// IdleCartJob releases in-memory carts that have not been requested for a
// while. session.Registry implements the evictor.
type IdleCartJob struct {
	evictor idleEvictor
	idle    time.Duration
}

func NewIdleCartJob(evictor idleEvictor, idle time.Duration) (*IdleCartJob, error) {
	if evictor == nil {
		return nil, fmt.Errorf("cart evictor required")
	}
	if idle <= 0 {
		return nil, fmt.Errorf("idle timeout must be positive, got %s", idle)
	}
	return &IdleCartJob{evictor: evictor, idle: idle}, nil
}

func (j *IdleCartJob) Name() string { return "idle-cart-eviction" }

func (j *IdleCartJob) Run(ctx context.Context) (int64, error) {
	n, err := j.evictor.EvictIdle(ctx, j.idle)
	if err != nil {
		return int64(n), fmt.Errorf("idle cart eviction: %w", err)
	}
	return int64(n), nil
}
