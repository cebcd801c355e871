// Package session maps shopper sessions to their cart stores.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/snapshot"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

const closeConcurrency = 8

// ErrClosed is returned by Store after Close.
var ErrClosed = errors.New("session registry closed")

// ActiveGauge is told how many stores are open. pkg/metrics.CartMetrics
// implements it.
type ActiveGauge interface {
	SetActiveCarts(n int)
}

// Registry owns one cart.Store per session id.
type Registry struct {
	storage snapshot.Storage
	opts    cart.Options
	logg    *logger.Logger
	gauge   ActiveGauge
	opening singleflight.Group

	mu      sync.Mutex
	stores  map[string]*cart.Store
	touched map[string]time.Time
	now     func() time.Time
	closed  bool
}

// NewRegistry builds a registry persisting into storage. opts is passed to
// every cart.Open call; gauge may be nil.
func NewRegistry(storage snapshot.Storage, opts cart.Options, gauge ActiveGauge) (*Registry, error) {
	if storage == nil {
		return nil, fmt.Errorf("snapshot storage required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Registry{
		storage: storage,
		opts:    opts,
		logg:    opts.Logger,
		gauge:   gauge,
		stores:  map[string]*cart.Store{},
		touched: map[string]time.Time{},
		now:     time.Now,
	}, nil
}

// Key is the snapshot key a session's cart is stored under.
func Key(sessionID string) string {
	return "cart:" + sessionID
}

// ParseID normalizes a session id, rejecting anything but a UUID.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "session id must be a UUID")
	}
	return id.String(), nil
}

// NewID mints a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Store returns the cart for sessionID, loading it from storage on first use.
func (r *Registry) Store(ctx context.Context, sessionID string) (*cart.Store, error) {
	id, err := ParseID(sessionID)
	if err != nil {
		return nil, err
	}

	if s, err := r.lookup(id); s != nil || err != nil {
		return s, err
	}

	// Loading can hit the network, so it runs outside r.mu; concurrent
	// first requests for one session share a single load.
	v, err, _ := r.opening.Do(id, func() (any, error) {
		if s, err := r.lookup(id); s != nil || err != nil {
			return s, err
		}
		sctx := r.logg.WithSessionID(ctx, id)
		s, err := cart.Open(sctx, Key(id), r.storage, r.opts)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			_ = s.Close(ctx)
			return nil, ErrClosed
		}
		r.stores[id] = s
		r.touched[id] = r.now()
		r.reportActive()
		r.logg.Debug(sctx, "session.cart.opened")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cart.Store), nil
}

func (r *Registry) lookup(id string) (*cart.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	s, ok := r.stores[id]
	if ok {
		r.touched[id] = r.now()
	}
	return s, nil
}

// Drop discards the session's store and deletes its snapshot. A caller
// still holding the store can keep mutating it, but nothing it does is
// written back.
func (r *Registry) Drop(ctx context.Context, sessionID string) error {
	id, err := ParseID(sessionID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	s, ok := r.stores[id]
	delete(r.stores, id)
	delete(r.touched, id)
	r.reportActive()
	r.mu.Unlock()

	var errs error
	if ok {
		errs = multierr.Append(errs, s.Discard(ctx))
	}
	errs = multierr.Append(errs, r.storage.DeleteSnapshot(ctx, Key(id)))
	return errs
}

// EvictIdle closes stores nobody has asked for within idle. Their
// snapshots stay in storage, so the next request reloads the cart.
func (r *Registry) EvictIdle(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, ErrClosed
	}
	evicted := map[string]*cart.Store{}
	for id, at := range r.touched {
		if at.Before(cutoff) {
			evicted[id] = r.stores[id]
			delete(r.stores, id)
			delete(r.touched, id)
		}
	}
	r.reportActive()
	r.mu.Unlock()

	var errs error
	for id, s := range evicted {
		if err := s.Close(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	if len(evicted) > 0 {
		r.logg.Debug(r.logg.WithField(ctx, "carts", len(evicted)), "session.registry.evicted")
	}
	return len(evicted), errs
}

// Len is the number of open stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close flushes and closes every store. The returned error combines every
// store that failed to persist.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	stores := make(map[string]*cart.Store, len(r.stores))
	for id, s := range r.stores {
		stores[id] = s
	}
	r.mu.Unlock()

	var (
		errMu sync.Mutex
		errs  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(closeConcurrency)
	for id, s := range stores {
		g.Go(func() error {
			if err := s.Close(gctx); err != nil {
				errMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("session %s: %w", id, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logg.Info(r.logg.WithField(ctx, "carts", len(stores)), "session.registry.closed")
	return errs
}

func (r *Registry) reportActive() {
	if r.gauge != nil {
		r.gauge.SetActiveCarts(len(r.stores))
	}
}
