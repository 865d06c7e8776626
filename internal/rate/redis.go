package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript resets the window when it has elapsed, rejects at the
// limit, otherwise increments. Keys expire after two window lengths, which
// plays the role of the in-memory sweep.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local start = tonumber(redis.call("HGET", KEYS[1], "s"))
local count = tonumber(redis.call("HGET", KEYS[1], "c"))
if not start or now - start >= window then
	start = now
	count = 0
end
if count >= limit then
	return {0, count}
end
count = count + 1
redis.call("HSET", KEYS[1], "s", start, "c", count)
redis.call("PEXPIRE", KEYS[1], window * 2)
return {1, count}
`)

// RedisWindow shares window state between instances through Redis.
type RedisWindow struct {
	redis  redis.UniversalClient
	prefix string
	length time.Duration
	now    func() time.Time
}

// NewRedisWindow returns a shared limiter. An empty prefix selects "rl".
func NewRedisWindow(client redis.UniversalClient, prefix string, length time.Duration, now func() time.Time) *RedisWindow {
	if prefix == "" {
		prefix = "rl"
	}
	if length <= 0 {
		length = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &RedisWindow{
		redis:  client,
		prefix: prefix,
		length: length,
		now:    now,
	}
}

func (w *RedisWindow) Allow(ctx context.Context, key string, limit int) (Decision, error) {
	res, err := slidingWindowScript.Run(ctx, w.redis,
		[]string{w.prefix + ":" + key},
		w.now().UnixMilli(),
		w.length.Milliseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply", ErrRedisUnavailable)
	}

	d := Decision{
		Allowed:    res[0] == 1,
		Limit:      limit,
		RetryAfter: w.length,
	}
	if d.Allowed {
		d.Remaining = limit - int(res[1])
	}
	return d, nil
}
