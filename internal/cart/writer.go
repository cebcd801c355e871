package cart

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/snapshot"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

const (
	phaseLoad   = "load"
	phaseDecode = "decode"
	phaseEncode = "encode"
	phaseSave   = "save"
)

// writer mirrors a store into snapshot storage off the caller's path.
// Only the newest pending snapshot is kept; saves happen in version order
// and an older version is never written over a newer one.
type writer struct {
	storage snapshot.Storage
	key     string
	timeout time.Duration
	logg    *logger.Logger
	metrics Recorder

	mu        sync.Mutex
	pending   *pendingSnapshot
	closed    bool
	discarded bool

	saveMu  sync.Mutex
	saved   uint64
	lastErr error

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

type pendingSnapshot struct {
	ctx     context.Context
	version uint64
	data    []byte
}

func newWriter(storage snapshot.Storage, key string, timeout time.Duration, logg *logger.Logger, metrics Recorder, async bool) *writer {
	w := &writer{
		storage: storage,
		key:     key,
		timeout: timeout,
		logg:    logg,
		metrics: metrics,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if async {
		go w.run()
	} else {
		w.closed = true
		close(w.stopped)
	}
	return w
}

// enqueue records the snapshot for version and reports whether the caller
// must flush it itself (writer closed or synchronous).
func (w *writer) enqueue(ctx context.Context, version uint64, data []byte) bool {
	w.mu.Lock()
	if w.discarded {
		w.mu.Unlock()
		return false
	}
	if w.pending == nil || w.pending.version < version {
		w.pending = &pendingSnapshot{ctx: context.WithoutCancel(ctx), version: version, data: data}
	}
	closed := w.closed
	w.mu.Unlock()

	if closed {
		return true
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return false
}

func (w *writer) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.writePending()
		case <-w.done:
			w.writePending()
			return
		}
	}
}

func (w *writer) take() *pendingSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.pending
	w.pending = nil
	return p
}

func (w *writer) writePending() {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	if p := w.take(); p != nil {
		_ = w.saveLocked(p.ctx, p.version, p.data)
	}
}

// flush writes the pending snapshot with ctx. It returns the error of the
// latest save attempt, so nil means the newest version is in storage.
// Holding saveMu while taking means an in-flight background save finishes
// before flush returns.
func (w *writer) flush(ctx context.Context) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	p := w.take()
	if p == nil {
		return w.lastErr
	}
	return w.saveLocked(ctx, p.version, p.data)
}

func (w *writer) saveLocked(ctx context.Context, version uint64, data []byte) error {
	if version <= w.saved {
		return nil
	}
	w.saved = version

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	err := w.storage.SaveSnapshot(ctx, w.key, data)
	w.metrics.ObserveSave(time.Since(start))
	w.lastErr = err
	if err != nil {
		w.metrics.IncPersistFailure(phaseSave)
		w.logg.Error(w.logg.WithFields(ctx, map[string]any{
			"snapshot_key": w.key,
			"version":      version,
		}), "cart.snapshot.save_failed", err)
		return err
	}
	return nil
}

// close stops the background goroutine after it writes what is pending.
// Later enqueues are flushed synchronously by the store.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return w.flush(ctx)
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	select {
	case <-w.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.flush(ctx)
}

// discard drops whatever is pending and stops persisting for good. It
// returns once no save is in flight, so storage holds nothing newer than
// what was there before the call.
func (w *writer) discard(ctx context.Context) error {
	w.mu.Lock()
	w.discarded = true
	w.pending = nil
	running := !w.closed
	w.closed = true
	w.mu.Unlock()

	if running {
		close(w.done)
	}
	select {
	case <-w.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.saveMu.Lock()
	w.saveMu.Unlock()
	return nil
}
