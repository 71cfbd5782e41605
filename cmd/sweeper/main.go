package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/bootstrap"
	"github.com/feral-file/ff-media-ledger/internal/config"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/repairer"
	"github.com/feral-file/ff-media-ledger/internal/sweeper"
	"github.com/feral-file/ff-media-ledger/internal/topplayed"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSweeperConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "media-ledger-sweeper",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Sweeper")

	// Open store and change notifier
	backend, err := bootstrap.Open(ctx, bootstrap.Options{
		Debug:    cfg.Debug,
		Store:    cfg.Store,
		Database: cfg.Database,
		Redis:    cfg.Redis,
		Notifier: cfg.Notifier,
		NATS:     cfg.NATS,
		JSON:     adapter.NewJSON(),
	})
	if err != nil {
		logger.Fatal("Failed to open backends", zap.Error(err), zap.String("store", cfg.Store.Backend))
	}

	// Initialize clock adapter
	clock := adapter.NewClock()

	rep := repairer.New(repairer.Config{
		Workers:   cfg.Ledger.Repair.Worker.WorkerPoolSize,
		QueueSize: cfg.Ledger.Repair.Worker.WorkerQueueSize,
		Timeout:   cfg.Ledger.Repair.Timeout,
	}, backend.Store, clock)
	materializer := topplayed.New(topplayed.Config{
		Size:               cfg.Ledger.TopPlayedSize,
		RefreshProbability: cfg.Ledger.RefreshProbability,
	}, backend.Store, adapter.NewRand(), clock)

	// Initialize like aggregate sweeper
	likeSweeper := sweeper.NewLikeAggregateSweeper(&sweeper.LikeAggregateSweeperConfig{
		WorkerPoolSize: cfg.LikeAggregateSweeper.Worker.WorkerPoolSize,
		BatchSize:      cfg.LikeAggregateSweeper.BatchSize,
		Interval:       cfg.LikeAggregateSweeper.Interval,
	}, backend.Store, rep, materializer, clock)

	// Initialize scheduled top played refresher
	refresher, err := sweeper.NewTopPlayedRefresher(&sweeper.TopPlayedRefresherConfig{
		Schedule: cfg.LikeAggregateSweeper.TopPlayedRefreshSchedule,
	}, materializer)
	if err != nil {
		logger.Fatal("Failed to initialize top played refresher", zap.Error(err))
	}

	sweepers := []sweeper.Sweeper{likeSweeper, refresher}
	logger.InfoCtx(ctx, "Initialized sweepers",
		zap.Int("batch_size", cfg.LikeAggregateSweeper.BatchSize),
		zap.Int("worker_pool_size", cfg.LikeAggregateSweeper.Worker.WorkerPoolSize),
		zap.Duration("interval", cfg.LikeAggregateSweeper.Interval),
		zap.String("top_played_refresh_schedule", cfg.LikeAggregateSweeper.TopPlayedRefreshSchedule),
	)

	// Start the sweepers; the first failure cancels the rest
	group, groupCtx := errgroup.WithContext(ctx)
	for _, s := range sweepers {
		group.Go(func() error {
			if err := s.Start(groupCtx); err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil
		})
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- group.Wait()
	}()

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			logger.ErrorCtx(ctx, err)
		}
	}

	// Cancel context to stop the sweepers
	cancel()

	// Give the sweepers time to shut down gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	for _, s := range sweepers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.ErrorCtx(shutdownCtx, err, zap.String("sweeper", s.Name()))
		}
	}

	rep.Close()
	if err := backend.Close(); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "backend"))
	}

	logger.InfoCtx(shutdownCtx, "Sweeper stopped")
}
