package memory

import (
	"context"
	"sync"
	"time"
)

// DispatchGuard is the in-process counterpart of the Redis guard.
type DispatchGuard struct {
	mu   sync.Mutex
	now  func() time.Time
	keys map[string]time.Time // key -> expiry
}

func NewDispatchGuard() *DispatchGuard {
	return &DispatchGuard{now: time.Now, keys: make(map[string]time.Time)}
}

func (g *DispatchGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.keys[key] = now.Add(ttl)

	// opportunistic sweep
	for k, exp := range g.keys {
		if !now.Before(exp) {
			delete(g.keys, k)
		}
	}
	return true, nil
}
