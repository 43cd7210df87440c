// Package quota enforces the shared daily generation ceiling. The counter is
// keyed by UTC calendar day and shared by every user and every process, so
// the check-then-increment must be atomic against concurrent callers.
package quota

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterTTL keeps finished day counters from accumulating forever. Two days
// comfortably outlives the day the counter guards.
const counterTTL = 48 * time.Hour

const dayKeyLayout = "2006-01-02"

// The script reads the current count (missing key = 0), aborts with -1 when
// the ceiling is reached, and otherwise increments. Redis runs scripts
// atomically, which is what makes two callers racing on the last unit safe.
var tryIncrementScript = redis.NewScript(`
local ceiling = tonumber(ARGV[1])
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= ceiling then
  return -1
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return count
`)

// Ledger is the daily quota counter consumed by admission and commit.
type Ledger interface {
	// TryIncrement atomically commits one unit of quota for the day.
	// committed=false with nil err means the ceiling was reached; a non-nil
	// err also reports committed=false (the ledger fails closed).
	TryIncrement(ctx context.Context, day string) (committed bool, err error)
	// Count returns the current committed count for the day. Advisory only.
	Count(ctx context.Context, day string) (int, error)
	// Ceiling returns the configured daily maximum.
	Ceiling() int
}

// DayKey formats the UTC calendar day used as the counter identity.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayKeyLayout)
}

// RedisLedger implements Ledger on a shared Redis instance.
type RedisLedger struct {
	client  *redis.Client
	prefix  string
	ceiling int
}

// NewRedisLedger connects to Redis and validates the ceiling.
func NewRedisLedger(addr, password, prefix string, ceiling int) (*RedisLedger, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("quota ledger redis addr is required")
	}
	if ceiling <= 0 {
		return nil, errors.New("quota ledger requires a positive ceiling")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "akelarre:quota"
	}
	return &RedisLedger{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix:  prefix,
		ceiling: ceiling,
	}, nil
}

// TryIncrement commits one unit for the day unless the ceiling is reached.
// Store errors are returned with committed=false; the counter is never
// assumed incremented on failure.
func (l *RedisLedger) TryIncrement(ctx context.Context, day string) (bool, error) {
	res, err := tryIncrementScript.Run(ctx, l.client, []string{l.key(day)}, l.ceiling, counterTTL.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res > 0, nil
}

// Count reads the current count for the day, treating a missing counter as 0.
func (l *RedisLedger) Count(ctx context.Context, day string) (int, error) {
	val, err := l.client.Get(ctx, l.key(day)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Ceiling returns the configured daily maximum.
func (l *RedisLedger) Ceiling() int {
	return l.ceiling
}

func (l *RedisLedger) key(day string) string {
	return l.prefix + ":" + day
}
