package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and starts the window on the first hit.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`)

// FixedWindow limits events per key within a fixed time window.
type FixedWindow struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewFixedWindow builds a limiter. A non-positive limit disables limiting.
func NewFixedWindow(rdb *redis.Client, prefix string, limit int, window time.Duration) *FixedWindow {
	if window < time.Second {
		window = time.Second
	}
	return &FixedWindow{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

// Allow records one event for key and reports whether it is within the limit.
func (l *FixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.rdb == nil || l.limit <= 0 {
		return true, nil
	}
	result, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + key}, l.limit, int(l.window.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
