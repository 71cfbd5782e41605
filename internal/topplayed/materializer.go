package topplayed

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/store"
)

// DefaultRefreshProbability is the chance that a play of already known content refreshes the ranking
const DefaultRefreshProbability = 0.1

// Materializer maintains the small ranked set of the most played content
//
//go:generate mockgen -source=materializer.go -destination=../mocks/materializer.go -package=mocks -mock_names=Materializer=MockMaterializer
type Materializer interface {
	// GetTopPlayed reads the materialized ranking, rank 1 first
	GetTopPlayed(ctx context.Context) ([]domain.TopPlayedEntry, error)
	// Refresh recomputes the ranking from the play aggregates in one atomic batch
	Refresh(ctx context.Context) error
	// AfterPlayRecorded refreshes always for brand-new content and otherwise with the configured probability
	AfterPlayRecorded(ctx context.Context, created bool)
}

// Config holds the materializer settings
type Config struct {
	// Size of the ranking; 0 means domain.TOP_PLAYED_SIZE
	Size int
	// RefreshProbability of 0 means DefaultRefreshProbability; a negative value disables sampled refreshes
	RefreshProbability float64
}

type materializer struct {
	config Config
	store  store.Store
	rand   adapter.Rand
	clock  adapter.Clock

	// refreshes of this process are serialized so they never interleave their diffs
	mu sync.Mutex
}

// New creates a top-played materializer
func New(config Config, st store.Store, rnd adapter.Rand, clock adapter.Clock) Materializer {
	if config.Size <= 0 {
		config.Size = domain.TOP_PLAYED_SIZE
	}
	if config.RefreshProbability == 0 {
		config.RefreshProbability = DefaultRefreshProbability
	}
	return &materializer{config: config, store: st, rand: rnd, clock: clock}
}

func (m *materializer) GetTopPlayed(ctx context.Context) ([]domain.TopPlayedEntry, error) {
	docs, err := m.store.Query(ctx, store.Query{Collection: store.CollectionTopPlayed}.
		Order(store.FieldRank, false).
		WithLimit(m.config.Size))
	if err != nil {
		return nil, fmt.Errorf("failed to get top played: %w", err)
	}

	entries := make([]domain.TopPlayedEntry, 0, len(docs))
	for _, doc := range docs {
		var entry domain.TopPlayedEntry
		if err := store.Decode(doc.Data, &entry); err != nil {
			logger.WarnCtx(ctx, "Skipping unreadable top played entry", zap.Error(err), zap.String("path", doc.Path))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *materializer) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	top, err := m.store.Query(ctx, store.Query{Collection: store.CollectionGlobalPlays}.
		Order(store.FieldPlayCount, true).
		WithLimit(m.config.Size))
	if err != nil {
		return fmt.Errorf("failed to query play aggregates: %w", err)
	}

	current, err := m.store.Query(ctx, store.Query{Collection: store.CollectionTopPlayed})
	if err != nil {
		return fmt.Errorf("failed to query top played: %w", err)
	}

	existing := make(map[string]domain.TopPlayedEntry, len(current))
	for _, doc := range current {
		var entry domain.TopPlayedEntry
		if err := store.Decode(doc.Data, &entry); err != nil {
			// Unreadable entries are replaced or evicted below
			logger.WarnCtx(ctx, "Unreadable top played entry", zap.Error(err), zap.String("path", doc.Path))
		}
		existing[doc.Path] = entry
	}

	now := domain.UnixMilli(m.clock.Now())
	keep := make(map[string]struct{}, len(top))
	var ops []store.Op

	for i, doc := range top {
		var aggregate domain.GlobalPlayAggregate
		if err := store.Decode(doc.Data, &aggregate); err != nil {
			return fmt.Errorf("failed to decode play aggregate %s: %w", doc.Path, err)
		}

		path := store.CollectionTopPlayed + "/" + doc.ID()
		keep[path] = struct{}{}

		rank := i + 1
		if entry, ok := existing[path]; ok &&
			entry.Rank == rank &&
			entry.PlayCount == aggregate.PlayCount &&
			entry.MediaKey == aggregate.MediaKey &&
			entry.NFT == aggregate.NFT {
			continue
		}

		fields, err := store.Encode(domain.TopPlayedEntry{
			MediaKey:  aggregate.MediaKey,
			Rank:      rank,
			PlayCount: aggregate.PlayCount,
			NFT:       aggregate.NFT,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		ops = append(ops, store.SetOp(path, fields, false))
	}

	for path := range existing {
		if _, ok := keep[path]; !ok {
			ops = append(ops, store.DeleteOp(path))
		}
	}

	if len(ops) == 0 {
		return nil
	}

	if err := m.store.CommitBatch(ctx, ops); err != nil {
		return fmt.Errorf("failed to commit top played: %w", err)
	}

	logger.InfoCtx(ctx, "Refreshed top played", zap.Int("writes", len(ops)), zap.Int("entries", len(top)))
	return nil
}

func (m *materializer) AfterPlayRecorded(ctx context.Context, created bool) {
	if !created && (m.config.RefreshProbability < 0 || m.rand.Float64() >= m.config.RefreshProbability) {
		return
	}

	if err := m.Refresh(ctx); err != nil {
		logger.WarnCtx(ctx, "Failed to refresh top played", zap.Error(err), zap.Bool("created", created))
	}
}
