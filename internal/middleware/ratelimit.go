package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/config"
	"github.com/iliyamo/arena-booking/internal/metrics"
)

// takeScript refills the bucket stored at KEYS[1] for the elapsed whole
// intervals and takes one token. It returns {allowed, remaining, retry_ms}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(state[1]) or capacity
local last = tonumber(state[2]) or now

local steps = math.floor(math.max(0, now - last) / interval)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	last = last + steps * interval
end

local allowed, retry = 0, 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry = math.max(0, interval - (now - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_ms', last)
redis.call('EXPIRE', key, tonumber(ARGV[5]))
return {allowed, tokens, retry}
`)

type bucketResult struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// bucket is one Redis-backed token bucket configuration.
type bucket struct {
	rdb *redis.Client
	cfg config.RateLimitConfig
}

func (b bucket) take(ctx context.Context, key string, now time.Time) (bucketResult, error) {
	raw, err := takeScript.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(), b.cfg.Capacity, b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(), int64(b.cfg.TTL/time.Second)).Int64Slice()
	if err != nil {
		return bucketResult{}, err
	}
	if len(raw) != 3 {
		return bucketResult{}, fmt.Errorf("rate limit script returned %d values", len(raw))
	}
	return bucketResult{
		allowed:   raw[0] == 1,
		remaining: raw[1],
		retry:     time.Duration(raw[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests with a token bucket kept in Redis. Redis
// errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if log == nil {
		log = zap.NewNop()
	}
	b := bucket{rdb: rdb, cfg: cfg}
	parts := keyParts(cfg.KeyStrategy)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg.Prefix, parts, c)
			res, err := b.take(c.Request().Context(), key, time.Now())
			if err != nil {
				log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res.allowed {
				return next(c)
			}

			secs := int((res.retry + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			metrics.RateLimited.WithLabelValues(c.Path()).Inc()
			log.Debug("rate limited", zap.String("key", key), zap.Duration("retry", res.retry))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// keyParts turns a strategy such as "ip_user_route" into its components.
// Unknown strategies fall back to the client ip.
func keyParts(strategy string) []string {
	var out []string
	for _, p := range strings.Split(strings.ToLower(strategy), "_") {
		switch p {
		case "ip", "user", "route":
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"ip"}
	}
	return out
}

func rateKey(prefix string, parts []string, c echo.Context) string {
	key := []string{prefix}
	for _, p := range parts {
		switch p {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key = append(key, "ip", ip)
		case "user":
			key = append(key, "user", userKey(c))
		case "route":
			key = append(key, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(key, ":")
}
