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

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/api/middleware"
	"github.com/feral-file/ff-media-ledger/internal/api/rest"
	"github.com/feral-file/ff-media-ledger/internal/api/server"
	"github.com/feral-file/ff-media-ledger/internal/bootstrap"
	"github.com/feral-file/ff-media-ledger/internal/config"
	"github.com/feral-file/ff-media-ledger/internal/ledger"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/migrator"
	"github.com/feral-file/ff-media-ledger/internal/playtracker"
	"github.com/feral-file/ff-media-ledger/internal/repairer"
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
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "media-ledger-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Feral File Media Ledger API")

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

	// Initialize adapters
	clock := adapter.NewClock()

	// Wire ledger components
	rep := repairer.New(repairer.Config{
		Workers:   cfg.Ledger.Repair.Worker.WorkerPoolSize,
		QueueSize: cfg.Ledger.Repair.Worker.WorkerQueueSize,
		Timeout:   cfg.Ledger.Repair.Timeout,
	}, backend.Store, clock)
	mig := migrator.New(backend.Store, rep, clock)
	likeLedger := ledger.New(backend.Store, mig, rep, clock)
	materializer := topplayed.New(topplayed.Config{
		Size:               cfg.Ledger.TopPlayedSize,
		RefreshProbability: cfg.Ledger.RefreshProbability,
	}, backend.Store, adapter.NewRand(), clock)
	recorder := playtracker.NewRecorder(backend.Store, materializer, clock)
	sessions := playtracker.NewSessionRegistry(recorder, clock, cfg.Ledger.SessionTTL)

	// Create server config
	serverConfig := server.Config{
		Debug:              cfg.Debug,
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ReadTimeout:        time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:       time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:        time.Duration(cfg.Server.IdleTimeout) * time.Second,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	srv := server.New(serverConfig, rest.Dependencies{
		Ledger:       likeLedger,
		Sessions:     sessions,
		Recorder:     recorder,
		Materializer: materializer,
		Repairer:     rep,
		Migrator:     mig,
	})

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}

	// Drain queued repairs before the store goes away
	rep.Close()
	if err := backend.Close(); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "backend"))
	}

	logger.Info("API server stopped")
}
