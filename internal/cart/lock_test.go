package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeRedis) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.values[key]
	return ok, nil
}

func (f *fakeRedis) CheckoutLockKey(userID string) string {
	return "mh:checkout_lock:" + userID
}

func TestRedisLockIsExclusivePerUser(t *testing.T) {
	store := newFakeRedis()
	lock, err := NewRedisLock(store, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock returned error: %v", err)
	}
	ctx := context.Background()

	lease, ok, err := lock.Acquire(ctx, "7")
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := lock.Acquire(ctx, "7"); ok {
		t.Fatal("second acquire for the same user must fail")
	}
	if _, ok, _ := lock.Acquire(ctx, "8"); !ok {
		t.Fatal("other users must not be blocked")
	}
	if held, _ := lock.Held(ctx, "7"); !held {
		t.Fatal("expected lock to be held")
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if held, _ := lock.Held(ctx, "7"); held {
		t.Fatal("expected lock to be free after release")
	}
}

func TestRedisLockReleaseKeepsForeignOwner(t *testing.T) {
	store := newFakeRedis()
	lock, _ := NewRedisLock(store, time.Minute)
	ctx := context.Background()

	lease, _, _ := lock.Acquire(ctx, "7")
	// The lease expired and someone else took the lock.
	store.values["mh:checkout_lock:7"] = "someone-else"

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if store.values["mh:checkout_lock:7"] != "someone-else" {
		t.Fatal("release must not delete a lock owned by another holder")
	}

	delete(store.values, "mh:checkout_lock:7")
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("releasing a vanished lock should be a no-op, got %v", err)
	}
}

func TestRedisLockErrors(t *testing.T) {
	if _, err := NewRedisLock(nil, time.Minute); err == nil {
		t.Fatal("expected nil client to fail")
	}
	store := newFakeRedis()
	store.setErr = errors.New("connection refused")
	lock, _ := NewRedisLock(store, 0)
	if _, _, err := lock.Acquire(context.Background(), "7"); err == nil {
		t.Fatal("expected setnx failure to surface")
	}
	if _, _, err := lock.Acquire(context.Background(), " "); err == nil {
		t.Fatal("expected blank user id to fail")
	}
}

func TestMemoryLockExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	lock := NewMemoryLock(30*time.Second, clock)
	ctx := context.Background()

	stale, ok, _ := lock.Acquire(ctx, "7")
	if !ok {
		t.Fatal("expected acquire to succeed")
	}
	if _, ok, _ := lock.Acquire(ctx, "7"); ok {
		t.Fatal("expected re-entry to be refused")
	}

	clock.Advance(31 * time.Second)
	if held, _ := lock.Held(ctx, "7"); held {
		t.Fatal("expired lock must not be held")
	}
	fresh, ok, _ := lock.Acquire(ctx, "7")
	if !ok {
		t.Fatal("expected acquire after expiry to succeed")
	}

	// The stale lease must not release the new holder.
	_ = stale.Release(ctx)
	if held, _ := lock.Held(ctx, "7"); !held {
		t.Fatal("stale lease released the current holder")
	}
	_ = fresh.Release(ctx)
	if held, _ := lock.Held(ctx, "7"); held {
		t.Fatal("expected lock to be free")
	}
}
