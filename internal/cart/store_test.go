package cart

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-cart/internal/snapshot"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
)

const testKey = "cart:test"

func product(id, price string) Product {
	return Product{ID: id, Name: "Product " + id, UnitPrice: decimal.RequireFromString(price)}
}

func openStore(t *testing.T, storage snapshot.Storage, opts Options) *Store {
	t.Helper()
	s, err := Open(context.Background(), testKey, storage, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func ids(items []LineItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

type recordingStorage struct {
	snapshot.Storage

	mu      sync.Mutex
	saves   int
	saveErr error
	loadErr error
	block   chan struct{}
}

func (r *recordingStorage) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.Storage.LoadSnapshot(ctx, key)
}

func (r *recordingStorage) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.saves++
	err := r.saveErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Storage.SaveSnapshot(ctx, key, data)
}

func (r *recordingStorage) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type countingRecorder struct {
	mu        sync.Mutex
	mutations map[enums.CartOperation]int
	failures  map[string]int
	saves     int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{mutations: map[enums.CartOperation]int{}, failures: map[string]int{}}
}

func (c *countingRecorder) IncMutation(op enums.CartOperation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutations[op]++
}

func (c *countingRecorder) IncPersistFailure(phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[phase]++
}

func (c *countingRecorder) ObserveSave(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
}

func (c *countingRecorder) failuresFor(phase string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures[phase]
}

func TestOpenRequiresKeyAndStorage(t *testing.T) {
	_, err := Open(context.Background(), "", snapshot.NewMemory(), Options{})
	require.Error(t, err)
	_, err = Open(context.Background(), testKey, nil, Options{})
	require.Error(t, err)
}

func TestNewCartIsEmpty(t *testing.T) {
	s := openStore(t, snapshot.NewMemory(), Options{})

	state := s.State()
	assert.True(t, state.IsEmpty())
	assert.Equal(t, 0, state.Totals.TotalItems)
	requireMoney(t, "0", state.Totals.Subtotal)
	assert.Equal(t, uint64(0), state.Version)
	assert.Equal(t, testKey, s.Key())
}

func TestAddMergesAndUpdateRemoves(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{SyncWrites: true})

	s.AddItem(ctx, product("A", "10.00"), 2)
	s.AddItem(ctx, product("B", "5.00"), 1)
	state := s.AddItem(ctx, product("A", "10.00"), 1)

	assert.Equal(t, []string{"A", "B"}, ids(state.Items))
	a, _ := state.Find("A")
	b, _ := state.Find("B")
	assert.Equal(t, 3, a.Quantity)
	assert.Equal(t, 1, b.Quantity)
	assert.Equal(t, 4, state.Totals.TotalItems)
	requireMoney(t, "35.00", state.Totals.Subtotal)

	state = s.UpdateQuantity(ctx, "B", 0)
	assert.Equal(t, []string{"A"}, ids(state.Items))
	assert.Equal(t, 3, state.Totals.TotalItems)
	requireMoney(t, "30.00", state.Totals.Subtotal)

	state = s.Clear(ctx)
	assert.True(t, state.IsEmpty())
	assert.Equal(t, 0, state.Totals.TotalItems)
	requireMoney(t, "0", state.Totals.Subtotal)
}

func TestAddKeepsOriginalRowAttributes(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	s.AddItem(ctx, Product{ID: "A", Name: "First", UnitPrice: decimal.NewFromInt(4)}, 1)
	state := s.AddItem(ctx, Product{ID: "A", Name: "Renamed", UnitPrice: decimal.NewFromInt(9)}, 1)

	require.Len(t, state.Items, 1)
	assert.Equal(t, "First", state.Items[0].Name)
	requireMoney(t, "8", state.Totals.Subtotal)
}

func TestAddNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	state := s.AddItem(ctx, product("A", "1.00"), 0)
	assert.True(t, state.IsEmpty())
	assert.Equal(t, uint64(0), state.Version)

	s.AddItem(ctx, product("A", "1.00"), 3)
	state = s.AddItem(ctx, product("A", "1.00"), -1)
	a, ok := state.Find("A")
	require.True(t, ok)
	assert.Equal(t, 2, a.Quantity)

	state = s.AddItem(ctx, product("A", "1.00"), -5)
	assert.True(t, state.IsEmpty())
}

func TestAddSaturatesAtMaxQuantity(t *testing.T) {
	ctx := context.Background()
	storage := snapshot.NewMemory()
	s := openStore(t, storage, Options{SyncWrites: true})

	s.AddItem(ctx, product("A", "2.00"), math.MaxInt)
	state := s.AddItem(ctx, product("A", "2.00"), 1)
	a, ok := state.Find("A")
	require.True(t, ok)
	assert.Equal(t, MaxQuantity, a.Quantity)
	assert.Equal(t, MaxQuantity, state.Totals.TotalItems)
	requireMoney(t, "2000000.00", state.Totals.Subtotal)

	state = s.UpdateQuantity(ctx, "A", math.MaxInt)
	a, _ = state.Find("A")
	assert.Equal(t, MaxQuantity, a.Quantity)

	state = s.AddItem(ctx, product("A", "2.00"), -1)
	a, _ = state.Find("A")
	assert.Equal(t, MaxQuantity-1, a.Quantity)

	reopened := openStore(t, storage, Options{})
	assert.Equal(t, MaxQuantity-1, reopened.Totals().TotalItems)
}

func TestAddRejectsInvalidProduct(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	assert.True(t, s.AddItem(ctx, product("", "1.00"), 1).IsEmpty())
	assert.True(t, s.AddItem(ctx, product("A", "-1.00"), 1).IsEmpty())
	assert.Equal(t, uint64(0), s.State().Version)
}

func TestAbsentIDIsNoop(t *testing.T) {
	ctx := context.Background()
	storage := &recordingStorage{Storage: snapshot.NewMemory()}
	s := openStore(t, storage, Options{SyncWrites: true})

	s.AddItem(ctx, product("A", "2.00"), 1)
	before := s.State()
	savesBefore := storage.saveCount()

	assert.Equal(t, before, s.RemoveItem(ctx, "missing"))
	assert.Equal(t, before, s.UpdateQuantity(ctx, "missing", 4))
	assert.Equal(t, savesBefore, storage.saveCount())
}

func TestUpdateQuantityIsAbsolute(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	s.AddItem(ctx, product("A", "2.50"), 4)
	state := s.UpdateQuantity(ctx, "A", 2)
	a, _ := state.Find("A")
	assert.Equal(t, 2, a.Quantity)
	requireMoney(t, "5.00", state.Totals.Subtotal)

	state = s.UpdateQuantity(ctx, "A", -3)
	assert.True(t, state.IsEmpty())
}

func TestRemovePreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	for _, id := range []string{"A", "B", "C"} {
		s.AddItem(ctx, product(id, "1"), 1)
	}
	state := s.RemoveItem(ctx, "B")
	assert.Equal(t, []string{"A", "C"}, ids(state.Items))
}

func TestSubtotalRoundsToCents(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	s.AddItem(ctx, product("A", "0.1"), 1)
	s.AddItem(ctx, product("B", "0.2"), 1)
	s.AddItem(ctx, product("C", "1.005"), 1)
	requireMoney(t, "1.31", s.Totals().Subtotal)
}

func TestStateIsDetachedFromStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	state := s.AddItem(ctx, Product{ID: "A", UnitPrice: decimal.NewFromInt(1), Attributes: map[string]any{"size": "S"}}, 1)
	state.Items[0].Quantity = 99
	state.Items[0].Attributes["size"] = "XL"

	got := s.Items()
	assert.Equal(t, 1, got[0].Quantity)
	assert.Equal(t, "S", got[0].Attributes["size"])
}

func TestVersionBumpsOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	assert.Equal(t, uint64(0), s.Clear(ctx).Version)
	assert.Equal(t, uint64(1), s.AddItem(ctx, product("A", "1"), 1).Version)
	assert.Equal(t, uint64(1), s.UpdateQuantity(ctx, "A", 1).Version)
	assert.Equal(t, uint64(2), s.UpdateQuantity(ctx, "A", 5).Version)
}

func TestMutationsPersistSnapshot(t *testing.T) {
	ctx := context.Background()
	storage := snapshot.NewMemory()
	s := openStore(t, storage, Options{SyncWrites: true})

	s.AddItem(ctx, product("A", "10.00"), 2)
	s.AddItem(ctx, product("B", "5.00"), 1)

	data, err := storage.LoadSnapshot(ctx, testKey)
	require.NoError(t, err)
	items, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids(items))

	s.Clear(ctx)
	data, err = storage.LoadSnapshot(ctx, testKey)
	require.NoError(t, err)
	items, err = DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReopenRestoresState(t *testing.T) {
	ctx := context.Background()
	storage := snapshot.NewMemory()

	first, err := Open(ctx, testKey, storage, Options{})
	require.NoError(t, err)
	first.AddItem(ctx, product("A", "10.00"), 3)
	first.AddItem(ctx, product("B", "5.00"), 1)
	require.NoError(t, first.Close(ctx))

	second := openStore(t, storage, Options{})
	state := second.State()
	assert.Equal(t, []string{"A", "B"}, ids(state.Items))
	assert.Equal(t, 4, state.Totals.TotalItems)
	requireMoney(t, "35.00", state.Totals.Subtotal)
}

func TestAsyncWritesPersistFinalState(t *testing.T) {
	ctx := context.Background()
	storage := snapshot.NewMemory()
	s := openStore(t, storage, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(ctx, product("A", "1.00"), 1)
		}()
	}
	wg.Wait()
	require.NoError(t, s.Flush(ctx))

	data, err := storage.LoadSnapshot(ctx, testKey)
	require.NoError(t, err)
	items, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 50, items[0].Quantity)
	assert.Equal(t, 50, s.Totals().TotalItems)
}

func TestMutationDoesNotWaitForSlowStorage(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	storage := &recordingStorage{Storage: snapshot.NewMemory(), block: block}
	s, err := Open(ctx, testKey, storage, Options{})
	require.NoError(t, err)

	done := make(chan State, 1)
	go func() { done <- s.AddItem(ctx, product("A", "1.00"), 1) }()

	select {
	case state := <-done:
		assert.Equal(t, 1, state.Totals.TotalItems)
	case <-time.After(2 * time.Second):
		t.Fatal("AddItem blocked on storage")
	}

	close(block)
	require.NoError(t, s.Close(ctx))
	data, err := storage.LoadSnapshot(ctx, testKey)
	require.NoError(t, err)
	items, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	storage := &recordingStorage{Storage: snapshot.NewMemory(), saveErr: errors.New("quota exceeded")}
	metrics := newCountingRecorder()
	s := openStore(t, storage, Options{SyncWrites: true, Metrics: metrics})

	state := s.AddItem(ctx, product("A", "10.00"), 2)
	assert.Equal(t, 2, state.Totals.TotalItems)
	assert.Equal(t, 2, s.Totals().TotalItems)
	assert.Equal(t, 1, metrics.failuresFor(phaseSave))
	assert.Equal(t, 1, metrics.mutations[enums.CartOperationAdd])

	_, err := storage.LoadSnapshot(ctx, testKey)
	require.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestFlushReportsSaveError(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	storage := &recordingStorage{Storage: snapshot.NewMemory(), block: block, saveErr: errors.New("disk full")}
	s, err := Open(ctx, testKey, storage, Options{})
	require.NoError(t, err)

	s.AddItem(ctx, product("A", "1.00"), 1)
	s.AddItem(ctx, product("B", "1.00"), 1)

	close(block)
	require.Error(t, s.Flush(ctx))
	require.Error(t, s.Close(ctx))

	storage.mu.Lock()
	storage.saveErr = nil
	storage.mu.Unlock()
	s.AddItem(ctx, product("C", "1.00"), 1)
	require.NoError(t, s.Flush(ctx))
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	storage := snapshot.NewMemory()
	require.NoError(t, storage.SaveSnapshot(ctx, testKey, []byte(`{"items":[{"id":`)))
	metrics := newCountingRecorder()

	s := openStore(t, storage, Options{Metrics: metrics})
	assert.True(t, s.State().IsEmpty())
	assert.Equal(t, 1, metrics.failuresFor(phaseDecode))

	s.AddItem(ctx, product("A", "1.00"), 1)
	assert.Equal(t, 1, s.Totals().TotalItems)
}

func TestLoadErrorStartsEmpty(t *testing.T) {
	storage := &recordingStorage{Storage: snapshot.NewMemory(), loadErr: errors.New("connection refused")}
	metrics := newCountingRecorder()

	s := openStore(t, storage, Options{Metrics: metrics})
	assert.True(t, s.State().IsEmpty())
	assert.Equal(t, 1, metrics.failuresFor(phaseLoad))
}

func TestLegacySnapshotLoads(t *testing.T) {
	ctx := context.Background()
	storage := snapshot.NewMemory()
	require.NoError(t, storage.SaveSnapshot(ctx, testKey, []byte(`[{"id":"A","name":"Alpha","price":12.5,"quantity":2}]`)))

	s := openStore(t, storage, Options{})
	state := s.State()
	assert.Equal(t, 2, state.Totals.TotalItems)
	requireMoney(t, "25.00", state.Totals.Subtotal)
}

func TestSubscribersSeeEachChange(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	var seen []int
	cancel := s.Subscribe(func(st State) { seen = append(seen, st.Totals.TotalItems) })

	s.AddItem(ctx, product("A", "1"), 2)
	s.RemoveItem(ctx, "missing")
	s.UpdateQuantity(ctx, "A", 5)
	cancel()
	s.Clear(ctx)

	assert.Equal(t, []int{2, 5}, seen)
}

func TestSubscribersSeeVersionsInOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	var (
		mu   sync.Mutex
		seen []uint64
	)
	s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st.Version)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(ctx, product("A", "1.00"), 1)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 50)
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1], seen[i])
	}
}

func TestDiscardDropsPendingSnapshot(t *testing.T) {
	ctx := context.Background()
	storage := &recordingStorage{Storage: snapshot.NewMemory(), block: make(chan struct{})}
	s := openStore(t, storage, Options{})

	s.AddItem(ctx, product("A", "1.00"), 1)
	s.AddItem(ctx, product("B", "1.00"), 1)

	discarded := make(chan error, 1)
	go func() { discarded <- s.Discard(ctx) }()
	close(storage.block)
	require.NoError(t, <-discarded)
	saves := storage.saveCount()

	s.AddItem(ctx, product("C", "1.00"), 1)
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, saves, storage.saveCount())
	assert.Equal(t, 3, s.Totals().TotalItems)

	// a save already in flight may land; nothing after it does
	data, err := storage.LoadSnapshot(ctx, testKey)
	if errors.Is(err, snapshot.ErrNotFound) {
		return
	}
	require.NoError(t, err)
	items, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.NotContains(t, ids(items), "C")
}

func TestConcurrentMutationsAreAtomic(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, snapshot.NewMemory(), Options{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.AddItem(ctx, product("A", "1.00"), 1)
		}()
		go func() {
			defer wg.Done()
			st := s.State()
			assert.Equal(t, st.Totals.TotalItems, sumQuantities(st.Items))
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Totals().TotalItems)
}

func sumQuantities(items []LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
