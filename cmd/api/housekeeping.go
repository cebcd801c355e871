package main

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-cart/internal/cron"
	"github.com/angelmondragon/storefront-cart/internal/session"
	"github.com/angelmondragon/storefront-cart/internal/snapshot"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

// startHousekeeping launches snapshot retention and idle cart eviction.
// Retention touches shared storage and takes the Redis lock when one is
// available; eviction only affects this process. The returned func waits
// for both loops after ctx is canceled.
func startHousekeeping(ctx context.Context, cfg *config.Config, logg *logger.Logger, backend *snapshotBackend, registry *session.Registry, reg prometheus.Registerer) (func(), error) {
	hk := cfg.Housekeeping
	if !hk.Enabled {
		logg.Info(ctx, "housekeeping disabled")
		return func() {}, nil
	}
	jobMetrics := metrics.NewJobMetrics(reg)

	var services []*cron.Service

	if pruner, ok := backend.storage.(snapshot.Pruner); ok && cfg.Snapshot.TTL > 0 {
		job, err := cron.NewSnapshotRetentionJob(pruner, cfg.Snapshot.TTL)
		if err != nil {
			return nil, err
		}
		var lock cron.Lock = &cron.LocalLock{}
		if backend.redis != nil {
			lock, err = cron.NewRedisLock(backend.redis, backend.redis.LockKey("snapshot-retention"), hk.LockTTL)
			if err != nil {
				return nil, err
			}
		}
		svc, err := cron.NewService(cron.ServiceParams{
			Logger:   logg,
			Registry: cron.NewRegistry(job),
			Lock:     lock,
			Metrics:  jobMetrics,
			Interval: hk.Interval,
		})
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}

	if hk.CartIdleTimeout > 0 {
		job, err := cron.NewIdleCartJob(registry, hk.CartIdleTimeout)
		if err != nil {
			return nil, err
		}
		svc, err := cron.NewService(cron.ServiceParams{
			Logger:   logg,
			Registry: cron.NewRegistry(job),
			Lock:     &cron.LocalLock{},
			Metrics:  jobMetrics,
			Interval: hk.Interval,
		})
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}

	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "housekeeping stopped unexpectedly", err)
			}
		}()
	}
	return wg.Wait, nil
}
