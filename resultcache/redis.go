package resultcache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/logging"
)

// RedisOptions locate the Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis shares cached results between server instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logging.Log.Error("Failed to connect to Redis", zap.String("addr", opts.Addr), zap.Error(err))
		_ = rdb.Close()
		return nil, err
	}

	logging.Log.Info("Connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &Redis{client: rdb, ttl: opts.TTL}, nil
}

// Get treats any Redis failure as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Log.Warn("Redis get failed", zap.String("key", key), zap.Error(err))
		}
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, data []byte) {
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		logging.Log.Warn("Redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Stats reports the entries under the result key prefix when Redis answers a count query quickly.
func (r *Redis) Stats() Stats {
	s := Stats{Backend: "redis", Hits: r.hits.Load(), Misses: r.misses.Load()}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", 500).Result()
		if err != nil {
			return s
		}
		s.Entries += len(keys)
		if next == 0 {
			return s
		}
		cursor = next
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
