package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"signup/pkg/platform/sentinel"
)

const keyPrefix = "signup:inflight:"

// releaseScript deletes the key only if it still holds our token, so a
// holder whose lease expired cannot free someone else's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard serialises submissions across instances with SET NX PX.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submission lease: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return nil, sentinel.ErrInFlight
	}

	return func() {
		// The caller's context may be gone by now; the lease TTL covers a
		// failed release.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.client, []string{redisKey}, token).Err()
	}, nil
}
