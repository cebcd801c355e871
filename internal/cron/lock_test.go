package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/redis"
)

type memoryRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockExcludesOtherInstances(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRedis()
	a, err := NewRedisLock(store, "sf:lock:housekeeping", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	b, _ := NewRedisLock(store, "sf:lock:housekeeping", time.Minute)

	if ok, err := a.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected a to acquire, ok=%v err=%v", ok, err)
	}
	if store.ttls["sf:lock:housekeeping"] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", store.ttls["sf:lock:housekeeping"])
	}
	if ok, _ := b.Acquire(ctx); ok {
		t.Fatal("b must not acquire a held lock")
	}
	// b never owned the lock, so its release is a no-op
	if err := b.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := store.data["sf:lock:housekeeping"]; !ok {
		t.Fatal("non-owner release deleted the lock")
	}

	if err := a.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("b should acquire after a released")
	}
}

func TestRedisLockLeavesTakenOverLease(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRedis()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	// simulate expiry and another holder
	store.data["k"] = "someone-else"
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.data["k"] != "someone-else" {
		t.Fatal("release removed a lease owned by another instance")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected nil client to fail")
	}
	if _, err := NewRedisLock(newMemoryRedis(), "", 0); err == nil {
		t.Fatal("expected empty key to fail")
	}
}

func TestLocalLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	var lock LocalLock
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	if ok, _ := lock.Acquire(ctx); ok {
		t.Fatal("second acquire must fail while held")
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire after release")
	}
}
