// Package lock provides a best-effort cross-instance guard around slot
// writes. The authoritative serialisation is the slot row lock taken inside
// the database transaction; the Redis lock only keeps concurrent requests
// for the same slot from piling up on that row.
package lock

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/config"
)

// locker obtains one named lock. *redislock.Client satisfies it through
// redisLocker.
type locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opts *redislock.Options) (heldLock, error)
}

type heldLock interface {
	Key() string
	Release(ctx context.Context) error
}

type redisLocker struct{ c *redislock.Client }

func (r redisLocker) Obtain(ctx context.Context, key string, ttl time.Duration, opts *redislock.Options) (heldLock, error) {
	l, err := r.c.Obtain(ctx, key, ttl, opts)
	if err != nil {
		return nil, err
	}
	return l, nil
}

type SlotGuard struct {
	locker  locker
	prefix  string
	ttl     time.Duration
	backoff time.Duration
	retries int
	log     *zap.Logger
}

// NewSlotGuard returns a disabled guard when rdb is nil or the lock is
// switched off in config.
func NewSlotGuard(rdb *redis.Client, cfg config.LockConfig, log *zap.Logger) *SlotGuard {
	if log == nil {
		log = zap.NewNop()
	}
	g := &SlotGuard{prefix: cfg.Prefix, ttl: cfg.TTL, backoff: cfg.RetryBackoff, retries: cfg.Retries, log: log}
	if rdb != nil && cfg.Enabled {
		g.locker = redisLocker{redislock.New(rdb)}
	}
	return g
}

// Acquire locks every distinct slot in sorted order and returns a function
// releasing them. Slots that cannot be locked are logged and skipped.
func (g *SlotGuard) Acquire(ctx context.Context, slots ...string) func() {
	if g == nil || g.locker == nil || len(slots) == 0 {
		return func() {}
	}
	keys := dedupe(slots)
	held := make([]heldLock, 0, len(keys))
	opts := &redislock.Options{RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(g.backoff), g.retries)}
	for _, slot := range keys {
		l, err := g.locker.Obtain(ctx, g.prefix+":"+slot, g.ttl, opts)
		switch {
		case errors.Is(err, redislock.ErrNotObtained):
			g.log.Warn("slot lock busy; proceeding on database lock", zap.String("time_slot", slot))
			continue
		case err != nil:
			g.log.Warn("slot lock error; proceeding on database lock", zap.String("time_slot", slot), zap.Error(err))
			continue
		}
		held = append(held, l)
	}
	return func() {
		// release with a fresh context so a cancelled request still frees its locks
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, l := range held {
			if err := l.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				g.log.Warn("slot lock release failed", zap.String("key", l.Key()), zap.Error(err))
			}
		}
	}
}

func dedupe(slots []string) []string {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
