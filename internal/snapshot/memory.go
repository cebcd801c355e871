package snapshot

import (
	"context"
	"sync"
	"time"
)

// Memory keeps snapshots in process memory. Nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	data    map[string][]byte
	written map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data:    map[string][]byte{},
		written: map[string]time.Time{},
		now:     time.Now,
	}
}

func (m *Memory) LoadSnapshot(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) SaveSnapshot(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	m.written[key] = m.now()
	return nil
}

func (m *Memory) DeleteSnapshot(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.written, key)
	return nil
}

// PruneBefore drops snapshots last saved before cutoff.
func (m *Memory) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key, at := range m.written {
		if at.Before(cutoff) {
			delete(m.data, key)
			delete(m.written, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored snapshots.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
