package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/repairer"
	"github.com/feral-file/ff-media-ledger/internal/store"
	"github.com/feral-file/ff-media-ledger/internal/topplayed"
)

const (
	SWEEP_CYCLE_INTERVAL = 15 * time.Minute // Time to sleep between sweep cycles
)

// LikeAggregateSweeperConfig holds configuration for the like aggregate sweeper
type LikeAggregateSweeperConfig struct {
	WorkerPoolSize int           // Concurrent repairs
	BatchSize      int           // Keys repaired per batch
	Interval       time.Duration // Sleep between cycles

	// Retry of the top played refresh that closes each cycle
	RefreshInitialInterval time.Duration
	RefreshMaxElapsedTime  time.Duration
}

// likeAggregateSweeper reconciles every like aggregate with its likers and refreshes the top played ranking
type likeAggregateSweeper struct {
	config       *LikeAggregateSweeperConfig
	store        store.Store
	repairer     repairer.Repairer
	materializer topplayed.Materializer
	pool         pond.Pool
	clock        adapter.Clock
	running      atomic.Bool
	stopChan     chan struct{}
	stoppedCh    chan struct{}
}

// NewLikeAggregateSweeper creates a new like aggregate sweeper
func NewLikeAggregateSweeper(
	config *LikeAggregateSweeperConfig,
	st store.Store,
	rep repairer.Repairer,
	materializer topplayed.Materializer,
	clock adapter.Clock,
) Sweeper {
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 4
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Interval <= 0 {
		config.Interval = SWEEP_CYCLE_INTERVAL
	}
	if config.RefreshInitialInterval <= 0 {
		config.RefreshInitialInterval = 15 * time.Second
	}
	if config.RefreshMaxElapsedTime <= 0 {
		config.RefreshMaxElapsedTime = 1 * time.Hour
	}

	return &likeAggregateSweeper{
		config:       config,
		store:        st,
		repairer:     rep,
		materializer: materializer,
		clock:        clock,
		stopChan:     make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *likeAggregateSweeper) Name() string {
	return "like-aggregate-sweeper"
}

// Start runs sweep cycles until the context is canceled or Stop is called
func (s *likeAggregateSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting like aggregate sweeper",
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
		zap.Int("batch_size", s.config.BatchSize),
		zap.Duration("interval", s.config.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Like aggregate sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Like aggregate sweeper stop requested")
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
		}
	}
}

// Stop signals the main loop and waits for the running cycle to finish
func (s *likeAggregateSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping like aggregate sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Like aggregate sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Like aggregate sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle repairs every known key once, then refreshes the ranking
func (s *likeAggregateSweeper) runSweepCycle(ctx context.Context) error {
	startTime := s.clock.Now()
	logger.InfoCtx(ctx, "Starting sweep cycle")

	keys, err := s.collectKeys(ctx)
	if err != nil {
		if !s.sleep(ctx, s.config.Interval) {
			return ctx.Err()
		}
		return fmt.Errorf("failed to collect media keys: %w", err)
	}

	var noop, deleted, recreated, corrected, failed atomic.Int32

	for start := 0; start < len(keys); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(keys))

		s.pool = pond.NewPool(
			s.config.WorkerPoolSize,
			pond.WithQueueSize(s.config.BatchSize),
			pond.WithContext(ctx),
		)
		for _, key := range keys[start:end] {
			s.pool.Submit(func() {
				outcome, err := s.repairer.Repair(ctx, key)
				if err != nil {
					failed.Add(1)
					logger.ErrorCtx(ctx, err, zap.String("mediaKey", key.String()))
					return
				}
				switch outcome {
				case repairer.OutcomeDeleted:
					deleted.Add(1)
				case repairer.OutcomeRecreated:
					recreated.Add(1)
				case repairer.OutcomeCorrected:
					corrected.Add(1)
				default:
					noop.Add(1)
				}
			})
		}
		s.pool.StopAndWait()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if err := s.refreshTopPlayedWithRetry(ctx); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to refresh top played after retries: %w", err))
	}

	logger.InfoCtx(ctx, "Sweep cycle completed",
		zap.Duration("duration", s.clock.Since(startTime)),
		zap.Int("total_checked", len(keys)),
		zap.Int32("noop", noop.Load()),
		zap.Int32("deleted", deleted.Load()),
		zap.Int32("recreated", recreated.Load()),
		zap.Int32("corrected", corrected.Load()),
		zap.Int32("failed", failed.Load()),
	)

	if !s.sleep(ctx, s.config.Interval) {
		return ctx.Err()
	}
	return nil
}

// collectKeys lists the keys of every aggregate and of every liked record.
// Keys with likes but no aggregate come from the second scan.
func (s *likeAggregateSweeper) collectKeys(ctx context.Context) ([]domain.MediaKey, error) {
	set := make(map[domain.MediaKey]struct{})

	for _, collection := range []string{store.CollectionGlobalLikes, store.LikesGroup} {
		docs, err := s.store.Query(ctx, store.Query{Collection: collection})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			key, _ := doc.Data[store.FieldMediaKey].(string)
			if key == "" {
				continue
			}
			set[domain.MediaKey(key)] = struct{}{}
		}
	}

	keys := make([]domain.MediaKey, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// sleep sleeps for the given duration but can be interrupted by context cancellation or Stop
func (s *likeAggregateSweeper) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-s.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}

// refreshTopPlayedWithRetry refreshes the ranking with exponential backoff retry
func (s *likeAggregateSweeper) refreshTopPlayedWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.RefreshInitialInterval
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = s.config.RefreshMaxElapsedTime
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Top played refresh failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	err := backoff.RetryNotify(func() error {
		return s.materializer.Refresh(ctx)
	}, backoff.WithContext(b, ctx), notifyOnError)
	if err != nil {
		return fmt.Errorf("failed after %d attempts: %w", attemptCount+1, err)
	}

	if attemptCount > 0 {
		logger.InfoCtx(ctx, "Top played refresh succeeded after retries", zap.Int("total_attempts", attemptCount+1))
	}
	return nil
}
