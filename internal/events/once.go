package events

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OnceGuard reports whether a key is being claimed for the first time. Release drops a claim
// whose side effect did not happen, so a later caller can claim it again.
type OnceGuard interface {
	First(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisOnceGuard claims keys with SETNX so the claim holds across instances.
type RedisOnceGuard struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisOnceGuard creates a guard whose claims expire after ttl.
func NewRedisOnceGuard(rdb *redis.Client, prefix string, ttl time.Duration) *RedisOnceGuard {
	return &RedisOnceGuard{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (g *RedisOnceGuard) First(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, g.prefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
}

func (g *RedisOnceGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, g.prefix+key).Err()
}

// MemoryOnceGuard claims keys in process memory.
type MemoryOnceGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryOnceGuard creates an empty guard.
func NewMemoryOnceGuard() *MemoryOnceGuard {
	return &MemoryOnceGuard{seen: make(map[string]struct{})}
}

func (g *MemoryOnceGuard) First(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

func (g *MemoryOnceGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
	return nil
}
