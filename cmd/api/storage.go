package main

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-cart/internal/snapshot"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/migrate"
	"github.com/angelmondragon/storefront-cart/pkg/redis"
)

// snapshotBackend is the configured storage plus whatever connections it
// owns.
type snapshotBackend struct {
	storage snapshot.Storage
	redis   *redis.Client
	closers []func() error
}

func (b *snapshotBackend) Close() error {
	var errs error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, b.closers[i]())
	}
	return errs
}

func openSnapshotBackend(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*snapshotBackend, error) {
	ctx = logg.WithField(ctx, "snapshot_backend", cfg.Snapshot.Backend.String())

	switch cfg.Snapshot.Backend {
	case enums.SnapshotBackendMemory:
		logg.Warn(ctx, "memory snapshot backend: carts are lost on restart")
		return &snapshotBackend{storage: snapshot.NewMemory()}, nil

	case enums.SnapshotBackendFile:
		storage, err := snapshot.NewFile(cfg.Snapshot.Dir)
		if err != nil {
			return nil, err
		}
		return &snapshotBackend{storage: storage}, nil

	case enums.SnapshotBackendRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		storage, err := snapshot.NewRedis(client, cfg.Snapshot.TTL)
		if err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return &snapshotBackend{storage: storage, redis: client, closers: []func() error{client.Close}}, nil

	case enums.SnapshotBackendSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), dbClient.Close())
		}
		storage, err := snapshot.NewSQL(dbClient.DB())
		if err != nil {
			return nil, multierr.Append(err, dbClient.Close())
		}
		backend := &snapshotBackend{storage: storage, closers: []func() error{dbClient.Close}}
		// Redis is optional here; when present it coordinates housekeeping
		// across instances sharing the database.
		if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
			client, err := redis.New(ctx, cfg.Redis, logg)
			if err != nil {
				return nil, multierr.Append(fmt.Errorf("bootstrap redis: %w", err), backend.Close())
			}
			backend.redis = client
			backend.closers = append(backend.closers, client.Close)
		}
		return backend, nil
	}

	return nil, fmt.Errorf("unsupported snapshot backend %q", cfg.Snapshot.Backend)
}
