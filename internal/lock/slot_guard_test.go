package lock

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/config"
)

type fakeLock struct {
	key      string
	released *[]string
	err      error
}

func (l fakeLock) Key() string { return l.key }

func (l fakeLock) Release(context.Context) error {
	*l.released = append(*l.released, l.key)
	return l.err
}

// fakeLocker answers Obtain per key: a listed error is returned, anything
// else is granted.
type fakeLocker struct {
	errs     map[string]error
	obtained []string
	released []string
	opts     *redislock.Options
}

func (f *fakeLocker) Obtain(_ context.Context, key string, _ time.Duration, opts *redislock.Options) (heldLock, error) {
	f.opts = opts
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	f.obtained = append(f.obtained, key)
	var err error
	if key == "arena:slot:expired" {
		err = redislock.ErrLockNotHeld
	}
	return fakeLock{key: key, released: &f.released, err: err}, nil
}

func newTestGuard(l locker) *SlotGuard {
	return &SlotGuard{locker: l, prefix: "arena:slot", ttl: time.Second, backoff: time.Millisecond, retries: 2, log: zap.NewNop()}
}

func TestDisabledGuardIsNoop(t *testing.T) {
	var nilGuard *SlotGuard
	nilGuard.Acquire(context.Background(), "a")()

	g := NewSlotGuard(nil, config.LockConfig{Enabled: true}, nil)
	release := g.Acquire(context.Background(), "9:30 AM - 11:00 AM")
	release()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	if g := NewSlotGuard(rdb, config.LockConfig{Enabled: false}, nil); g.locker != nil {
		t.Error("switched-off guard holds a locker")
	}
}

func TestAcquireReleasesEveryHeldLock(t *testing.T) {
	fl := &fakeLocker{}
	g := newTestGuard(fl)
	release := g.Acquire(context.Background(), "evening", "morning", "evening")

	if want := []string{"arena:slot:evening", "arena:slot:morning"}; !reflect.DeepEqual(fl.obtained, want) {
		t.Fatalf("obtained = %v, want %v", fl.obtained, want)
	}
	if fl.opts == nil || fl.opts.RetryStrategy == nil {
		t.Error("Obtain called without a retry strategy")
	}
	if len(fl.released) != 0 {
		t.Fatalf("released before release func ran: %v", fl.released)
	}
	release()
	if !reflect.DeepEqual(fl.released, fl.obtained) {
		t.Errorf("released = %v, want %v", fl.released, fl.obtained)
	}
}

func TestAcquireSkipsSlotsItCannotLock(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"busy", redislock.ErrNotObtained},
		{"redis down", errors.New("dial tcp: connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl := &fakeLocker{errs: map[string]error{"arena:slot:morning": tt.err}}
			release := newTestGuard(fl).Acquire(context.Background(), "morning", "evening")
			if want := []string{"arena:slot:evening"}; !reflect.DeepEqual(fl.obtained, want) {
				t.Fatalf("obtained = %v, want %v", fl.obtained, want)
			}
			release()
			if want := []string{"arena:slot:evening"}; !reflect.DeepEqual(fl.released, want) {
				t.Errorf("released = %v, want %v", fl.released, want)
			}
		})
	}
}

func TestReleaseToleratesExpiredLock(t *testing.T) {
	fl := &fakeLocker{}
	release := newTestGuard(fl).Acquire(context.Background(), "expired", "morning")
	release()
	if len(fl.released) != 2 {
		t.Errorf("released = %v, want both keys attempted", fl.released)
	}
}

func TestAcquireWithUnreachableRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	g := NewSlotGuard(rdb, config.LockConfig{Enabled: true, Prefix: "arena:slot", TTL: time.Second,
		RetryBackoff: time.Millisecond, Retries: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// the dial error is logged and the booking proceeds on the database lock
	g.Acquire(ctx, "9:30 AM - 11:00 AM")()
}

func TestDedupeSortsAndDropsEmpty(t *testing.T) {
	got := dedupe([]string{"b", "", "a", "b"})
	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("dedupe = %v, want %v", got, want)
	}
}
