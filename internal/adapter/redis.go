package adapter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions holds the Redis connection settings
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient creates a new Redis client.
// The store and notifier take redis.UniversalClient so tests can point them at any deployment.
func NewRedisClient(opts RedisOptions) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
}

// PingRedis checks if Redis is reachable
func PingRedis(ctx context.Context, client redis.UniversalClient) error {
	return client.Ping(ctx).Err()
}
