package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const dispatchPrefix = "dispatch:"

// DispatchGuard gives at-most-once semantics to verification dispatches via SETNX.
// Callers treat an error as "guard unavailable" and decide for themselves.
type DispatchGuard struct {
	rdb    *goredis.Client
	prefix string
}

func NewDispatchGuard(c *Client) *DispatchGuard {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &DispatchGuard{rdb: rdb, prefix: dispatchPrefix}
}

func (g *DispatchGuard) Key(key string) string {
	return g.prefix + key
}

func (g *DispatchGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, domain.ErrMissingField("key")
	}
	if ttl <= 0 {
		return false, domain.ErrMissingField("ttl")
	}
	if g.rdb == nil {
		return false, errors.New("redis dispatch guard not configured")
	}

	ok, err := g.rdb.SetNX(ctx, g.Key(key), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
