package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucket refills `refill` tokens every `interval_ms` up to `capacity` and
// takes one token per call. Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_s = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now_ms
end

if interval_ms > 0 and refill > 0 then
  local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
  if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    last = last + steps * interval_ms
  end
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_ms', last)
redis.call('EXPIRE', key, ttl_s)
return {allowed, tokens, retry_ms}
`)

// Bucket describes a token bucket.
type Bucket struct {
	Capacity int
	Refill   int
	Interval time.Duration
}

// Decision is the outcome of one Take.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Take consumes one token from the bucket stored at key. When redis is
// unavailable the request is allowed.
func (c *Client) Take(ctx context.Context, key string, b Bucket, now time.Time) Decision {
	open := Decision{Allowed: true, Remaining: int64(b.Capacity)}
	if c == nil || c.client == nil || b.Capacity <= 0 {
		return open
	}

	ttl := b.Interval * time.Duration(b.Capacity+1)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	vals, err := tokenBucket.Run(ctx, c.client, []string{key},
		now.UnixMilli(), b.Capacity, b.Refill, b.Interval.Milliseconds(), int64(ttl/time.Second),
	).Int64Slice()
	if err != nil || len(vals) != 3 {
		return open
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}
}
