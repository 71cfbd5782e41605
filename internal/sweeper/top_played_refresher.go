package sweeper

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/topplayed"
)

// TopPlayedRefresherConfig holds the refresher settings
type TopPlayedRefresherConfig struct {
	// Schedule is a cron expression with a leading seconds field, e.g. "0 */5 * * * *"
	Schedule string
}

// topPlayedRefresher recomputes the top played ranking on a cron schedule,
// independent of the sampled refreshes that follow recorded plays
type topPlayedRefresher struct {
	config       *TopPlayedRefresherConfig
	materializer topplayed.Materializer
	engine       *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewTopPlayedRefresher registers the refresh job. An invalid schedule is rejected here.
func NewTopPlayedRefresher(config *TopPlayedRefresherConfig, materializer topplayed.Materializer) (Sweeper, error) {
	r := &topPlayedRefresher{
		config:       config,
		materializer: materializer,
		engine:       cron.New(cron.WithSeconds()),
	}

	if _, err := r.engine.AddFunc(config.Schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid top played refresh schedule %q: %w", config.Schedule, err)
	}

	return r, nil
}

func (r *topPlayedRefresher) Name() string {
	return "top-played-refresher"
}

// Start runs the cron engine until ctx is canceled
func (r *topPlayedRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("%s is already running", r.Name())
	}
	r.running = true
	r.mu.Unlock()

	logger.InfoCtx(ctx, "Starting top played refresher", zap.String("schedule", r.config.Schedule))
	r.engine.Start()

	<-ctx.Done()
	return nil
}

// Stop halts the schedule and waits for a refresh in flight
func (r *topPlayedRefresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	select {
	case <-r.engine.Stop().Done():
		logger.InfoCtx(ctx, "Top played refresher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for top played refresh: %w", ctx.Err())
	}
}

func (r *topPlayedRefresher) refresh() {
	ctx := logger.WithFields(context.Background(), zap.String("sweeper", r.Name()))
	if err := r.materializer.Refresh(ctx); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("scheduled top played refresh failed: %w", err))
		return
	}
	logger.DebugCtx(ctx, "Refreshed top played ranking")
}
