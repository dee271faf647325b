package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStoreConfig configures the Redis-backed store.
type RedisStoreConfig struct {
	// Addr is the Redis address, host:port.
	Addr string

	// Password authenticates against Redis. Optional.
	Password string

	// DB selects the Redis database.
	DB int

	// Prefix namespaces the limiter's keys.
	// Default: "ratelimit:"
	Prefix string

	// KeyTTL expires idle identity histories. Should be at least as long
	// as the largest tier window.
	// Default: 1 hour.
	KeyTTL time.Duration
}

// RedisStore shares request history across processes using a sorted set per
// identity, scored by timestamp. Unlike MemoryStore it gives every instance
// the same view, which is what horizontal scaling needs for a single global
// budget per identity.
type RedisStore struct {
	client *redis.Client
	prefix string
	keyTTL time.Duration
	seq    atomic.Uint64
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("ratelimit: redis address is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit:"
	}
	if cfg.KeyTTL <= 0 {
		cfg.KeyTTL = time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ratelimit: redis ping failed: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		keyTTL: cfg.KeyTTL,
	}, nil
}

// Count removes entries scored at or before cutoff and returns the
// remaining cardinality.
func (s *RedisStore) Count(ctx context.Context, identifier string, cutoff time.Time) (int, error) {
	key := s.prefix + identifier

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ratelimit: redis count: %w", err)
	}

	return int(card.Val()), nil
}

// Record appends a request timestamp for the identity and refreshes the key
// TTL so idle identities expire on their own.
func (s *RedisStore) Record(ctx context.Context, identifier string, at time.Time) error {
	key := s.prefix + identifier

	// The sequence suffix keeps same-nanosecond requests from collapsing
	// into one sorted-set member.
	member := fmt.Sprintf("%d-%d", at.UnixNano(), s.seq.Add(1))

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixNano()), Member: member})
	pipe.Expire(ctx, key, s.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ratelimit: redis record: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection, for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
