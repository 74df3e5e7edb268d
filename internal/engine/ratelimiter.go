package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitPrefix   = "registry:ratelimit:"
	defaultRateWindow = time.Second
)

// admitScript trims the caller's window, then admits the request only while
// fewer than ARGV[3] requests remain in it. Returns 1 on admit, 0 on deny.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
    return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RateLimiter caps registry mutations per caller over a sliding window kept
// in a Redis sorted set. Redis failures admit the request.
type RateLimiter struct {
	client *redis.Client
	logger *slog.Logger
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter returns a limiter with a one second window.
func NewRateLimiter(client *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		window: defaultRateWindow,
		now:    time.Now,
	}
}

// WithWindow changes the window length. Non-positive values are ignored.
func (rl *RateLimiter) WithWindow(window time.Duration) *RateLimiter {
	if window > 0 {
		rl.window = window
	}
	return rl
}

// Allow reports whether caller may perform another mutation within limit
// requests per window. A non-positive limit disables limiting.
func (rl *RateLimiter) Allow(ctx context.Context, caller domain.Principal, limit int) bool {
	if limit <= 0 {
		return true
	}

	nowMs := rl.now().UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + ":" + uuid.NewString()

	admitted, err := admitScript.Run(ctx, rl.client,
		[]string{rateLimitPrefix + string(caller)},
		nowMs, rl.window.Milliseconds(), limit, member,
	).Int()
	if err != nil {
		rl.logger.Error("rate limit check failed, admitting request", "caller", caller, "error", err)
		return true
	}
	if admitted == 0 {
		rl.logger.Debug("caller rate limited", "caller", caller, "limit", limit, "window", rl.window)
		return false
	}
	return true
}
