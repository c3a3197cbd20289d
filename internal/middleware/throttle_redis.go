package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/medstaff-api/pkg/circuitbreaker"
)

const redisKeyPrefix = "medstaff:login:"

// RedisAttemptStore shares counters between instances. A breaker stops
// calls to an unreachable redis so logins are not slowed by timeouts.
type RedisAttemptStore struct {
	client *redis.Client
	cb     *circuitbreaker.CircuitBreaker
}

// NewRedisAttemptStore connects to url and verifies the connection
func NewRedisAttemptStore(ctx context.Context, url string) (*RedisAttemptStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisAttemptStore{
		client: client,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "login-throttle-redis",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}, nil
}

// Hit increments the counter and sets the expiry with the first attempt
func (s *RedisAttemptStore) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	var n int64
	err := s.cb.Execute(func() error {
		var incr *redis.IntCmd
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, redisKeyPrefix+key)
			pipe.ExpireNX(ctx, redisKeyPrefix+key, window)
			return nil
		})
		if err != nil {
			return err
		}
		n = incr.Val()
		return nil
	})
	return int(n), err
}

// Release gives back one attempt. DECR on an expired key would leave a
// counter without a TTL, so the script only touches a live key.
func (s *RedisAttemptStore) Release(ctx context.Context, key string) error {
	return s.cb.Execute(func() error {
		return releaseScript.Run(ctx, s.client, []string{redisKeyPrefix + key}).Err()
	})
}

var releaseScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

func (s *RedisAttemptStore) Reset(ctx context.Context, key string) error {
	return s.cb.Execute(func() error {
		return s.client.Del(ctx, redisKeyPrefix+key).Err()
	})
}

// PingContext bypasses the breaker so readiness reflects the real connection
func (s *RedisAttemptStore) PingContext(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisAttemptStore) Close() error {
	return s.client.Close()
}
