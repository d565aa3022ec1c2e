package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// checkAndRecordScript keeps a set for membership and a list for insertion
// order. KEYS[1]=set, KEYS[2]=list, ARGV[1]=order id, ARGV[2]=max history.
// Returns 1 for a duplicate, 0 when the id was recorded.
const checkAndRecordScript = `
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
  return 1
end
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('RPUSH', KEYS[2], ARGV[1])
local max = tonumber(ARGV[2])
while redis.call('LLEN', KEYS[2]) > max do
  local oldest = redis.call('LPOP', KEYS[2])
  redis.call('SREM', KEYS[1], oldest)
end
return 0
`

// forgetScript drops one id from both keys. Same KEYS layout as above.
const forgetScript = `
redis.call('SREM', KEYS[1], ARGV[1])
redis.call('LREM', KEYS[2], 0, ARGV[1])
return 0
`

// RedisGuard keeps the history in Redis so it survives restarts of the print
// server. Eviction order matches MemoryGuard.
type RedisGuard struct {
	client  redis.UniversalClient
	script  *redis.Script
	forget  *redis.Script
	setKey  string
	listKey string
	max     int
}

// NewRedisGuard builds a guard storing its history under the given key prefix.
// The hash tag keeps both keys in one cluster slot.
func NewRedisGuard(client redis.UniversalClient, prefix string, max int) *RedisGuard {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	if prefix == "" {
		prefix = "printsrv"
	}
	return &RedisGuard{
		client:  client,
		script:  redis.NewScript(checkAndRecordScript),
		forget:  redis.NewScript(forgetScript),
		setKey:  fmt.Sprintf("{%s}:printed:set", prefix),
		listKey: fmt.Sprintf("{%s}:printed:order", prefix),
		max:     max,
	}
}

// CheckAndRecord implements Guard. The whole check runs as one script, so it
// is atomic across every print server sharing the keys.
func (g *RedisGuard) CheckAndRecord(ctx context.Context, orderID string) (bool, error) {
	n, err := g.script.Run(ctx, g.client, []string{g.setKey, g.listKey}, orderID, g.max).Int()
	if err != nil {
		return false, fmt.Errorf("run dedup script: %w", err)
	}
	return n == 1, nil
}

// Forget implements Guard.
func (g *RedisGuard) Forget(ctx context.Context, orderID string) error {
	if err := g.forget.Run(ctx, g.client, []string{g.setKey, g.listKey}, orderID).Err(); err != nil {
		return fmt.Errorf("run dedup forget script: %w", err)
	}
	return nil
}
