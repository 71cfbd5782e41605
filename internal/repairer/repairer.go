package repairer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/store"
)

// Outcome is what a repair pass did to the aggregate
type Outcome string

const (
	OutcomeNoop      Outcome = "noop"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeRecreated Outcome = "recreated"
	OutcomeCorrected Outcome = "corrected"
)

// Repairer reconciles GlobalLikeAggregates with the LikeRecords that exist
//
//go:generate mockgen -source=repairer.go -destination=../mocks/repairer.go -package=mocks -mock_names=Repairer=MockRepairer
type Repairer interface {
	// Repair brings the aggregate of the key in line with its likers.
	// Re-running it, also concurrently, converges to the same state.
	Repair(ctx context.Context, key domain.MediaKey) (Outcome, error)
	// Schedule queues a best-effort repair. Failures are logged, never returned.
	Schedule(key domain.MediaKey)
	// Close waits for queued repairs and stops the workers
	Close()
}

// Config holds the repairer settings
type Config struct {
	Workers int
	// QueueSize is the soft bound on waiting repairs; beyond it new ones are dropped
	QueueSize int
	// Timeout bounds each scheduled repair
	Timeout time.Duration
}

type repairer struct {
	config Config
	store  store.Store
	clock  adapter.Clock
	pool   pond.Pool

	mu      sync.Mutex
	pending map[string]*pendingRepair
}

// pendingRepair tracks a key that is queued or being repaired.
// rerun is set when the key is scheduled again after its pass started.
type pendingRepair struct {
	started bool
	rerun   bool
}

// New creates a repairer with its own worker pool
func New(config Config, st store.Store, clock adapter.Clock) Repairer {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1000
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &repairer{
		config:  config,
		store:   st,
		clock:   clock,
		pool:    pond.NewPool(config.Workers),
		pending: make(map[string]*pendingRepair),
	}
}

func (r *repairer) Repair(ctx context.Context, key domain.MediaKey) (Outcome, error) {
	if key.Empty() {
		return OutcomeNoop, domain.ErrInvalidIdentity
	}

	likers, err := r.store.Query(ctx, store.Query{Collection: store.LikesGroup}.
		Where(store.FieldMediaKey, store.OpEqual, key.String()))
	if err != nil {
		return OutcomeNoop, fmt.Errorf("failed to count likers: %w", err)
	}

	aggregatePath := store.GlobalLikePath(key)
	aggregate, err := r.store.Get(ctx, aggregatePath)
	if err != nil {
		return OutcomeNoop, fmt.Errorf("failed to get like aggregate: %w", err)
	}

	count := int64(len(likers))
	now := domain.UnixMilli(r.clock.Now())

	switch {
	case aggregate != nil && count == 0:
		if err := r.store.CommitBatch(ctx, []store.Op{store.DeleteOp(aggregatePath)}); err != nil {
			return OutcomeNoop, fmt.Errorf("failed to delete orphan aggregate: %w", err)
		}
		return OutcomeDeleted, nil

	case aggregate == nil && count > 0:
		var record domain.LikeRecord
		if err := store.Decode(likers[0].Data, &record); err != nil {
			return OutcomeNoop, err
		}

		fields, err := store.Encode(domain.GlobalLikeAggregate{
			MediaKey:  key,
			LikeCount: count,
			NFT:       record.NFT,
			UpdatedAt: now,
		})
		if err != nil {
			return OutcomeNoop, err
		}
		if err := r.store.CommitBatch(ctx, []store.Op{store.SetOp(aggregatePath, fields, false)}); err != nil {
			return OutcomeNoop, fmt.Errorf("failed to recreate aggregate: %w", err)
		}
		return OutcomeRecreated, nil

	case aggregate != nil:
		var current domain.GlobalLikeAggregate
		if err := store.Decode(aggregate.Data, &current); err != nil {
			return OutcomeNoop, err
		}
		if current.LikeCount == count {
			return OutcomeNoop, nil
		}

		err := r.store.CommitBatch(ctx, []store.Op{store.SetOp(aggregatePath, store.Fields{
			store.FieldLikeCount: count,
			store.FieldUpdatedAt: now,
		}, true)})
		if err != nil {
			return OutcomeNoop, fmt.Errorf("failed to correct like count: %w", err)
		}
		return OutcomeCorrected, nil

	default:
		return OutcomeNoop, nil
	}
}

// Schedule coalesces repairs of one key. A key scheduled while its pass is
// running gets exactly one more pass afterwards, so a repair requested after
// a commit always reads that commit.
func (r *repairer) Schedule(key domain.MediaKey) {
	if key.Empty() {
		return
	}
	id := key.DocumentID()

	r.mu.Lock()
	if p, ok := r.pending[id]; ok {
		if p.started {
			p.rerun = true
		}
		r.mu.Unlock()
		return
	}
	if r.pool.WaitingTasks() >= uint64(r.config.QueueSize) {
		r.mu.Unlock()
		logger.Warn("Repair queue full, dropping repair", zap.String("media_key", key.String()))
		return
	}
	p := &pendingRepair{}
	r.pending[id] = p
	r.mu.Unlock()

	r.pool.Submit(func() {
		for {
			r.mu.Lock()
			p.started = true
			p.rerun = false
			r.mu.Unlock()

			r.runScheduled(key)

			r.mu.Lock()
			if !p.rerun {
				delete(r.pending, id)
				r.mu.Unlock()
				return
			}
			r.mu.Unlock()
		}
	})
}

func (r *repairer) runScheduled(key domain.MediaKey) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout)
	defer cancel()

	outcome, err := r.Repair(ctx, key)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to repair like aggregate: %w", err), zap.String("media_key", key.String()))
		return
	}
	if outcome != OutcomeNoop {
		logger.InfoCtx(ctx, "Repaired like aggregate",
			zap.String("media_key", key.String()),
			zap.String("outcome", string(outcome)))
	}
}

func (r *repairer) Close() {
	r.pool.StopAndWait()
}
