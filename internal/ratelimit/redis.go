package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/clock"
	"github.com/redis/go-redis/v9"
)

// INCR then PEXPIRE on first hit keeps the window anchored at the first
// attempt, matching Memory.
var checkScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Redis is a Limiter shared by every instance pointing at the same server.
type Redis struct {
	client redis.UniversalClient
	prefix string
	clock  clock.Clock
}

func NewRedis(client redis.UniversalClient, prefix string, c clock.Clock) *Redis {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "ledger:rate_limit"
	}
	if c == nil {
		c = clock.System
	}
	return &Redis{client: client, prefix: prefix, clock: c}
}

func (r *Redis) key(k string) string { return r.prefix + ":" + k }

func (r *Redis) Check(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}
	raw, err := checkScript.Run(ctx, r.client, []string{r.key(key)}, windowMs).Result()
	if err != nil {
		return Decision{}, err
	}
	count, ttlMs, err := parseCheckReply(raw)
	if err != nil {
		return Decision{}, err
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	d := Decision{
		Allowed:   count <= int64(max),
		Remaining: max - int(count),
		ResetAt:   r.clock.Now().Add(time.Duration(ttlMs) * time.Millisecond),
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func parseCheckReply(raw any) (count, ttlMs int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok = values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok = values[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	return count, ttlMs, nil
}
