package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-media-ledger/internal/logger"
)

// PostgresOptions holds the settings for opening the PostgreSQL backend
type PostgresOptions struct {
	DSN             string
	ReplicaDSNs     []string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectTimeout bounds the retries while the database comes up
	ConnectTimeout time.Duration
	Debug          bool
}

// OpenPostgres connects to PostgreSQL, retrying with exponential backoff until ConnectTimeout.
// Read replicas, when given, serve queries through dbresolver.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if opts.Debug {
		logLevel = gormlogger.Info
	}

	var db *gorm.DB
	operation := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(logLevel),
		})
		if err != nil {
			return err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	if err := retryConnect(ctx, "postgres", opts.ConnectTimeout, operation); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxOpen, maxIdle, lifetime, idleTime := NormalizeConnectionPoolSettings(
		opts.MaxOpenConns, opts.MaxIdleConns, opts.ConnMaxLifetime, opts.ConnMaxIdleTime)

	if len(opts.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(opts.ReplicaDSNs))
		for _, dsn := range opts.ReplicaDSNs {
			replicas = append(replicas, postgres.Open(dsn))
		}
		err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxOpenConns(maxOpen).
			SetMaxIdleConns(maxIdle).
			SetConnMaxLifetime(lifetime).
			SetConnMaxIdleTime(idleTime))
		if err != nil {
			return nil, fmt.Errorf("failed to register read replicas: %w", err)
		}
	}

	if err := ConfigureConnectionPool(db, maxOpen, maxIdle, lifetime, idleTime); err != nil {
		return nil, err
	}

	return db, nil
}

// WaitForRedis pings Redis with exponential backoff until it answers or the timeout passes
func WaitForRedis(ctx context.Context, client redis.UniversalClient, timeout time.Duration) error {
	return retryConnect(ctx, "redis", timeout, func() error {
		return client.Ping(ctx).Err()
	})
}

func retryConnect(ctx context.Context, backend string, timeout time.Duration, operation func() error) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout

	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		logger.WarnCtx(ctx, "Backend not ready, retrying",
			zap.String("backend", backend),
			zap.Error(err),
			zap.Duration("backoff", d))
	})
}
