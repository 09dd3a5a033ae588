package limiter

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gitreadapp/GitRead/internal/pkg/cache"
	"github.com/gitreadapp/GitRead/internal/pkg/env"
)

const (
	// DefaultMaxConcurrent bounds in-flight generations across all instances.
	DefaultMaxConcurrent = 4

	semaphoreKey = "gitread:generate:inflight"

	// slotTTL guards against leaked slots when an instance dies mid-generation.
	// Generations run for minutes at most, so a stale counter self-heals.
	slotTTL = 10 * time.Minute
)

// Semaphore is a Redis-backed counting semaphore. All instances share the
// same counter, so the bound holds across the whole deployment.
type Semaphore struct {
	client *redis.Client
	key    string
	limit  int64
}

func New(client *redis.Client, limit int64) *Semaphore {
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	return &Semaphore{client: client, key: semaphoreKey, limit: limit}
}

func NewFromEnv() *Semaphore {
	limit, err := strconv.ParseInt(env.GetEnv("GENERATE_MAX_CONCURRENT", ""), 10, 64)
	if err != nil || limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	return New(cache.GetClient(), limit)
}

// Acquire tries to take a slot. When it succeeds it returns ok=true and a
// release func the caller must invoke when the work is done. When the
// semaphore is full it returns ok=false and a no-op release.
func (s *Semaphore) Acquire(ctx context.Context) (release func(), ok bool, err error) {
	noop := func() {}

	count, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return noop, false, err
	}
	// First holder sets the TTL so a crashed instance cannot wedge the
	// counter forever.
	if count == 1 {
		s.client.Expire(ctx, s.key, slotTTL)
	}
	if count > s.limit {
		s.client.Decr(ctx, s.key)
		return noop, false, nil
	}

	return func() {
		s.client.Decr(context.Background(), s.key)
	}, true, nil
}

// InFlight reports the current number of held slots.
func (s *Semaphore) InFlight(ctx context.Context) (int64, error) {
	count, err := s.client.Get(ctx, s.key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}
