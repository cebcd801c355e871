// Package cart holds the shopping-cart state model: line items, derived
// totals, and the store that mutates them and mirrors them to storage.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/snapshot"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

const defaultSaveTimeout = 5 * time.Second

// Recorder receives cart metrics. pkg/metrics.CartMetrics implements it.
type Recorder interface {
	IncMutation(op enums.CartOperation)
	IncPersistFailure(phase string)
	ObserveSave(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) IncMutation(enums.CartOperation) {}
func (noopRecorder) IncPersistFailure(string)        {}
func (noopRecorder) ObserveSave(time.Duration)       {}

// Options tunes a Store. The zero value is usable.
type Options struct {
	Logger      *logger.Logger
	Metrics     Recorder
	SyncWrites  bool
	SaveTimeout time.Duration
}

// Store is the single source of truth for one shopper's cart. All methods
// are safe for concurrent use; each mutation is atomic to readers.
type Store struct {
	key     string
	logg    *logger.Logger
	metrics Recorder
	sync    bool
	writer  *writer

	mu      sync.RWMutex
	items   []LineItem
	version uint64

	// notifyMu is taken before mu is released so subscribers see states
	// in version order.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[uint64]func(State)
	nextSub  uint64
}

// Open loads the snapshot stored under key, or starts an empty cart when
// there is none or it cannot be read. Storage problems are logged, never
// returned; the only errors are a missing key or storage.
func Open(ctx context.Context, key string, storage snapshot.Storage, opts Options) (*Store, error) {
	if key == "" {
		return nil, fmt.Errorf("cart key required")
	}
	if storage == nil {
		return nil, fmt.Errorf("snapshot storage required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = noopRecorder{}
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultSaveTimeout
	}

	s := &Store{
		key:     key,
		logg:    opts.Logger,
		metrics: opts.Metrics,
		sync:    opts.SyncWrites,
		subs:    map[uint64]func(State){},
	}
	s.items = s.load(ctx, storage, opts.SaveTimeout)
	s.writer = newWriter(storage, key, opts.SaveTimeout, s.logg, s.metrics, !opts.SyncWrites)
	return s, nil
}

func (s *Store) load(ctx context.Context, storage snapshot.Storage, timeout time.Duration) []LineItem {
	ctx = s.logg.WithField(ctx, "snapshot_key", s.key)
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := storage.LoadSnapshot(loadCtx, s.key)
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.metrics.IncPersistFailure(phaseLoad)
		s.logg.Error(ctx, "cart.snapshot.load_failed", err)
		return nil
	}
	items, err := DecodeSnapshot(data)
	if err != nil {
		s.metrics.IncPersistFailure(phaseDecode)
		s.logg.Error(ctx, "cart.snapshot.corrupt", err)
		return nil
	}
	return items
}

// Key is the snapshot key the store persists under.
func (s *Store) Key() string {
	return s.key
}

// State returns the current items, totals and version.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Items returns a copy of the rows in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Totals recomputes item count and subtotal from the current rows.
func (s *Store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeTotals(s.items)
}

func (s *Store) stateLocked() State {
	return State{
		Items:   cloneItems(s.items),
		Totals:  computeTotals(s.items),
		Version: s.version,
	}
}

// AddItem merges qty into the row for p.ID, or appends a new row. A
// resulting quantity ≤ 0 removes an existing row and skips a new one.
func (s *Store) AddItem(ctx context.Context, p Product, qty int) State {
	if p.ID == "" || p.UnitPrice.IsNegative() {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"item_id":    p.ID,
			"unit_price": p.UnitPrice.String(),
		}), "cart.add_item.invalid_product")
		return s.State()
	}
	return s.mutate(s.logg.WithItemID(ctx, p.ID), enums.CartOperationAdd, func(items []LineItem) ([]LineItem, bool) {
		return addLine(items, p, qty)
	})
}

// RemoveItem deletes the row for id. Unknown ids are ignored.
func (s *Store) RemoveItem(ctx context.Context, id string) State {
	return s.mutate(s.logg.WithItemID(ctx, id), enums.CartOperationRemove, func(items []LineItem) ([]LineItem, bool) {
		return removeLine(items, id)
	})
}

// UpdateQuantity sets the row's quantity to qty; qty ≤ 0 removes the row.
// Unknown ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, id string, qty int) State {
	return s.mutate(s.logg.WithItemID(ctx, id), enums.CartOperationUpdate, func(items []LineItem) ([]LineItem, bool) {
		return updateLine(items, id, qty)
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) State {
	return s.mutate(ctx, enums.CartOperationClear, func(items []LineItem) ([]LineItem, bool) {
		return nil, len(items) > 0
	})
}

func (s *Store) mutate(ctx context.Context, op enums.CartOperation, fn func([]LineItem) ([]LineItem, bool)) State {
	s.mu.Lock()
	next, changed := fn(s.items)
	if !changed {
		state := s.stateLocked()
		s.mu.Unlock()
		s.logg.Debug(s.logg.WithField(ctx, "op", op.String()), "cart.mutation.noop")
		return state
	}
	s.items = next
	s.version++
	state := s.stateLocked()

	mustFlush := false
	data, err := EncodeSnapshot(s.items)
	if err != nil {
		s.metrics.IncPersistFailure(phaseEncode)
		s.logg.Error(ctx, "cart.snapshot.encode_failed", err)
	} else {
		mustFlush = s.writer.enqueue(ctx, state.Version, data)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if mustFlush {
		_ = s.writer.flush(ctx)
	}
	s.metrics.IncMutation(op)
	s.notify(state)
	return state
}

// Subscribe registers fn to receive the state after every effective
// mutation, in version order. fn runs on the mutating goroutine and must
// not mutate the store itself. The returned func unregisters it.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(state State) {
	s.subsMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Flush writes the latest snapshot now and reports the storage error, if
// any. Mutations never need it; it exists for shutdown and tests.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Discard stops persistence without writing what is pending. It waits for
// an in-flight save, so a snapshot deleted afterwards stays deleted. The
// store keeps working in memory only.
func (s *Store) Discard(ctx context.Context) error {
	return s.writer.discard(ctx)
}

// Close flushes and stops background persistence. The store stays usable;
// later mutations are saved synchronously.
func (s *Store) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}
