package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Second

// Lock serializes checkouts per user. Acquire never waits: ok is false when another
// checkout for the same user is in flight.
type Lock interface {
	Acquire(ctx context.Context, userID string) (lease Lease, ok bool, err error)
	Held(ctx context.Context, userID string) (bool, error)
}

// Lease is a held lock. Release is a no-op once the lease expired or was taken over.
type Lease interface {
	Release(ctx context.Context) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	CheckoutLockKey(userID string) string
}

// RedisLock implements Lock using Redis SETNX + TTL.
type RedisLock struct {
	client redisStore
	ttl    time.Duration
}

// NewRedisLock constructs a Redis-backed checkout lock.
func NewRedisLock(client redisStore, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context, userID string) (Lease, bool, error) {
	key, err := l.key(userID)
	if err != nil {
		return nil, false, err
	}
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{client: l.client, key: key, owner: owner}, true, nil
}

func (l *RedisLock) Held(ctx context.Context, userID string) (bool, error) {
	key, err := l.key(userID)
	if err != nil {
		return false, err
	}
	held, err := l.client.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return held, nil
}

func (l *RedisLock) key(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("lock owner user id is required")
	}
	return l.client.CheckoutLockKey(userID), nil
}

type redisLease struct {
	client redisStore
	key    string
	owner  string
}

// Release frees the lock only if the owner value still matches.
func (l *redisLease) Release(ctx context.Context) error {
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}

// MemoryLock is a process-local Lock for tests and single-instance runs without Redis.
type MemoryLock struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock clockwork.Clock
	held  map[string]memoryEntry
}

type memoryEntry struct {
	owner   string
	expires time.Time
}

func NewMemoryLock(ttl time.Duration, clock clockwork.Clock) *MemoryLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryLock{ttl: ttl, clock: clock, held: make(map[string]memoryEntry)}
}

func (l *MemoryLock) Acquire(_ context.Context, userID string) (Lease, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, false, errors.New("lock owner user id is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if entry, ok := l.held[userID]; ok && now.Before(entry.expires) {
		return nil, false, nil
	}
	owner := uuid.NewString()
	l.held[userID] = memoryEntry{owner: owner, expires: now.Add(l.ttl)}
	return &memoryLease{lock: l, userID: userID, owner: owner}, true, nil
}

func (l *MemoryLock) Held(_ context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.held[userID]
	return ok && l.clock.Now().Before(entry.expires), nil
}

type memoryLease struct {
	lock   *MemoryLock
	userID string
	owner  string
}

func (l *memoryLease) Release(context.Context) error {
	l.lock.mu.Lock()
	defer l.lock.mu.Unlock()
	if entry, ok := l.lock.held[l.userID]; ok && entry.owner == l.owner {
		delete(l.lock.held, l.userID)
	}
	return nil
}

var (
	_ Lock = (*RedisLock)(nil)
	_ Lock = (*MemoryLock)(nil)
)
