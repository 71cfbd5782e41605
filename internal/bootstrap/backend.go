package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/config"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/messaging"
	"github.com/feral-file/ff-media-ledger/internal/store"
)

// Options selects and configures the store and notifier backends
type Options struct {
	Debug    bool
	Store    config.StoreConfig
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	Notifier config.NotifierConfig
	NATS     config.NATSConfig

	JSON          adapter.JSON
	NatsConnector adapter.NatsConnector
}

// Backend bundles the store and the notifier that fans its writes out to subscribers
type Backend struct {
	Store    store.Store
	Notifier messaging.Notifier

	redis   redis.UniversalClient
	closers []func() error
}

// Open connects the configured backends. On failure everything opened so far is closed.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	b := &Backend{}

	notifier, err := b.openNotifier(ctx, opts)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Notifier = notifier
	b.closers = append(b.closers, notifier.Close)

	st, err := b.openStore(ctx, opts, notifier)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Store = st
	b.closers = append(b.closers, st.Close)

	logger.InfoCtx(ctx, "Backends ready",
		zap.String("store", opts.Store.Backend),
		zap.String("notifier", opts.Notifier.Backend))

	return b, nil
}

// Close releases the backends in reverse order of opening
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// redisClient connects the shared Redis client on first use
func (b *Backend) redisClient(ctx context.Context, opts Options) (redis.UniversalClient, error) {
	if b.redis != nil {
		return b.redis, nil
	}

	client := adapter.NewRedisClient(adapter.RedisOptions{
		Addr:         opts.Redis.Addr,
		Password:     opts.Redis.Password,
		DB:           opts.Redis.DB,
		PoolSize:     opts.Redis.PoolSize,
		DialTimeout:  opts.Redis.DialTimeout,
		ReadTimeout:  opts.Redis.ReadTimeout,
		WriteTimeout: opts.Redis.WriteTimeout,
	})
	if err := store.WaitForRedis(ctx, client, opts.Store.ConnectTimeout); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	b.redis = client
	b.closers = append(b.closers, client.Close)
	logger.InfoCtx(ctx, "Connected to Redis", zap.String("addr", opts.Redis.Addr))
	return client, nil
}

func (b *Backend) openNotifier(ctx context.Context, opts Options) (messaging.Notifier, error) {
	switch opts.Notifier.Backend {
	case config.NotifierBackendLocal, "":
		return messaging.NewLocalNotifier(), nil

	case config.NotifierBackendNATS:
		connector := opts.NatsConnector
		if connector == nil {
			connector = adapter.NewNatsConnector()
		}
		notifier, err := messaging.NewNATSNotifier(messaging.NATSConfig{
			URL:            opts.NATS.URL,
			Subject:        opts.Notifier.Subject,
			MaxReconnects:  opts.NATS.MaxReconnects,
			ReconnectWait:  opts.NATS.ReconnectWait,
			ConnectionName: opts.NATS.ConnectionName,
		}, connector, opts.JSON)
		if err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", opts.NATS.URL))
		return notifier, nil

	case config.NotifierBackendRedis:
		client, err := b.redisClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return messaging.NewRedisNotifier(ctx, client, opts.Notifier.Subject, opts.JSON)

	default:
		return nil, fmt.Errorf("unsupported notifier backend %q", opts.Notifier.Backend)
	}
}

func (b *Backend) openStore(ctx context.Context, opts Options, notifier messaging.Notifier) (store.Store, error) {
	switch opts.Store.Backend {
	case config.StoreBackendMemory:
		return store.NewMemoryStore(notifier), nil

	case config.StoreBackendPostgres:
		db, err := store.OpenPostgres(ctx, store.PostgresOptions{
			DSN:             opts.Database.DSN(),
			ReplicaDSNs:     opts.Database.ReplicaDSNs(),
			MaxOpenConns:    opts.Database.MaxOpenConns,
			MaxIdleConns:    opts.Database.MaxIdleConns,
			ConnMaxLifetime: opts.Database.ConnMaxLifetime,
			ConnMaxIdleTime: opts.Database.ConnMaxIdleTime,
			ConnectTimeout:  opts.Store.ConnectTimeout,
			Debug:           opts.Debug,
		})
		if err != nil {
			return nil, err
		}
		if opts.Store.AutoMigrate {
			if err := store.Migrate(db); err != nil {
				return nil, err
			}
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.String("host", opts.Database.Host),
			zap.Bool("read_replica", opts.Database.ReadHost != ""))
		return store.NewPGStore(db, notifier), nil

	case config.StoreBackendRedis:
		client, err := b.redisClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client, opts.Store.RedisPrefix, notifier), nil

	default:
		return nil, fmt.Errorf("unsupported store backend %q", opts.Store.Backend)
	}
}
