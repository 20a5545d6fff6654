// Package ratelimit implements a Redis backed sliding window limiter.
//
// Each key is a sorted set of request timestamps. A Lua script trims entries
// older than the window, counts the rest and admits the request only when the
// count is below the limit, so concurrent callers on several replicas see one
// consistent counter.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule is a limit of Max requests per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Enabled reports whether the rule limits anything.
func (r Rule) Enabled() bool {
	return r.Max > 0 && r.Window > 0
}

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until the oldest counted request leaves the
	// window. Zero when the request was allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Result, error)
}

// returns {allowed, remaining, retry_after_ms}
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local current = redis.call('ZCARD', key)
if current >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry = window
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	return {0, 0, retry}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window + 60000)

return {1, limit - current - 1, 0}
`)

// Redis implements Limiter on a Redis server.
type Redis struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

// NewRedis returns a Redis limiter whose keys are namespaced by prefix.
func NewRedis(client redis.Scripter, prefix string) *Redis {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

// Allow records one request for key and reports whether it fits the rule.
// A disabled rule always allows.
func (l *Redis) Allow(ctx context.Context, key string, rule Rule) (Result, error) {
	if !rule.Enabled() {
		return Result{Allowed: true, Limit: rule.Max, Remaining: rule.Max}, nil
	}

	nowMs := l.now().UnixMilli()
	member := strconv.FormatInt(nowMs, 10) + "-" + strconv.FormatUint(rand.Uint64(), 36)

	raw, err := slidingWindow.Run(ctx, l.client, []string{l.prefix + key},
		nowMs, rule.Window.Milliseconds(), rule.Max, member).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: eval: %w", err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply %v", raw)
	}

	return Result{
		Allowed:    raw[0] == 1,
		Limit:      rule.Max,
		Remaining:  int(raw[1]),
		RetryAfter: time.Duration(raw[2]) * time.Millisecond,
	}, nil
}
