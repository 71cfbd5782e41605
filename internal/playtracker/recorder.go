package playtracker

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/store"
)

// DefaultRecentLimit is the number of recently played items returned when no limit is given
const DefaultRecentLimit = 20

// recentPageSize is the number of play events read per page of the recently played scan
const recentPageSize = 200

// RefreshTrigger is told about every recorded play
type RefreshTrigger interface {
	AfterPlayRecorded(ctx context.Context, created bool)
}

// PlayRecorder persists counted plays
//
//go:generate mockgen -source=recorder.go -destination=../mocks/play_recorder.go -package=mocks -mock_names=PlayRecorder=MockPlayRecorder,RefreshTrigger=MockRefreshTrigger
type PlayRecorder interface {
	// RecordPlay increments the play count of the key and appends a PlayEvent in one atomic batch.
	// created reports whether this was the first play ever recorded for the key.
	RecordPlay(ctx context.Context, fid domain.FID, key domain.MediaKey, snapshot domain.NFTSnapshot) (created bool, err error)
	// GetRecentlyPlayed returns the user's played content, newest first, one entry per key
	GetRecentlyPlayed(ctx context.Context, fid domain.FID, limit int) ([]domain.NFTSnapshot, error)
}

type recorder struct {
	store   store.Store
	trigger RefreshTrigger
	clock   adapter.Clock
}

// NewRecorder creates a play recorder; trigger may be nil
func NewRecorder(st store.Store, trigger RefreshTrigger, clock adapter.Clock) PlayRecorder {
	return &recorder{store: st, trigger: trigger, clock: clock}
}

func (r *recorder) RecordPlay(ctx context.Context, fid domain.FID, key domain.MediaKey, snapshot domain.NFTSnapshot) (bool, error) {
	if !fid.Valid() {
		return false, domain.ErrInvalidUser
	}
	if key.Empty() {
		return false, domain.ErrInvalidIdentity
	}

	aggregatePath := store.GlobalPlayPath(key)
	existing, err := r.store.Get(ctx, aggregatePath)
	if err != nil {
		return false, fmt.Errorf("failed to get play aggregate: %w", err)
	}
	created := existing == nil

	now := r.clock.Now()
	playedAt := domain.UnixMilli(now)

	aggregate := store.Fields{
		store.FieldMediaKey:     key.String(),
		store.FieldLastPlayedAt: playedAt,
	}
	// Plays tracked without a snapshot keep the one already stored
	if snapshot != (domain.NFTSnapshot{}) {
		fields, err := store.Encode(snapshot)
		if err != nil {
			return false, err
		}
		aggregate[store.FieldNFT] = map[string]interface{}(fields)
	}

	id := ulid.MustNewDefault(now).String()
	event, err := store.Encode(domain.PlayEvent{
		ID:       id,
		FID:      fid,
		MediaKey: key,
		NFT:      snapshot,
		PlayedAt: playedAt,
	})
	if err != nil {
		return false, err
	}

	ops := []store.Op{
		store.SetOp(aggregatePath, aggregate, true),
		store.IncrementOp(aggregatePath, store.FieldPlayCount, 1, false),
		store.SetOp(store.PlayEventPath(fid, id), event, false),
	}
	if err := r.store.CommitBatch(ctx, ops); err != nil {
		return false, fmt.Errorf("failed to record play: %w", err)
	}

	logger.DebugCtx(ctx, "Recorded play",
		zap.Int64("fid", int64(fid)),
		zap.String("mediaKey", key.String()),
		zap.Bool("created", created))

	if r.trigger != nil {
		r.trigger.AfterPlayRecorded(ctx, created)
	}

	return created, nil
}

func (r *recorder) GetRecentlyPlayed(ctx context.Context, fid domain.FID, limit int) ([]domain.NFTSnapshot, error) {
	if !fid.Valid() {
		return nil, domain.ErrInvalidUser
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	seen := make(map[domain.MediaKey]struct{}, limit)
	snapshots := make([]domain.NFTSnapshot, 0, limit)

	// Pages continue strictly below the last timestamp read, so each page
	// takes every event sharing its last timestamp
	events := store.Query{Collection: store.PlaysCollection(fid)}
	var before *int64
	for {
		page := events.Order(store.FieldPlayedAt, true).WithLimit(recentPageSize)
		if before != nil {
			page = page.Where(store.FieldPlayedAt, store.OpLess, *before)
		}
		docs, err := r.store.Query(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to list plays: %w", err)
		}
		if len(docs) == 0 {
			return snapshots, nil
		}

		last, err := playedAt(docs[len(docs)-1])
		if err != nil {
			return nil, err
		}
		full := len(docs) == recentPageSize
		if full {
			docs, err = r.withTies(ctx, events, docs, last)
			if err != nil {
				return nil, err
			}
		}

		for _, doc := range docs {
			var event domain.PlayEvent
			if err := store.Decode(doc.Data, &event); err != nil {
				logger.WarnCtx(ctx, "Skipping unreadable play event", zap.Error(err), zap.String("path", doc.Path))
				continue
			}
			if _, ok := seen[event.MediaKey]; ok {
				continue
			}
			seen[event.MediaKey] = struct{}{}

			snapshot := event.NFT
			if snapshot == (domain.NFTSnapshot{}) {
				snapshot = r.aggregateSnapshot(ctx, event.MediaKey)
			}
			snapshots = append(snapshots, snapshot)
			if len(snapshots) == limit {
				return snapshots, nil
			}
		}

		if !full {
			return snapshots, nil
		}
		before = &last
	}
}

// withTies appends the events at the page's last timestamp that fell past the page limit
func (r *recorder) withTies(ctx context.Context, events store.Query, docs []store.Document, at int64) ([]store.Document, error) {
	ties, err := r.store.Query(ctx, events.Where(store.FieldPlayedAt, store.OpEqual, at))
	if err != nil {
		return nil, fmt.Errorf("failed to list plays: %w", err)
	}

	inPage := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		inPage[doc.Path] = struct{}{}
	}
	for _, doc := range ties {
		if _, ok := inPage[doc.Path]; !ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func playedAt(doc store.Document) (int64, error) {
	var event struct {
		PlayedAt int64 `json:"playedAt"`
	}
	if err := store.Decode(doc.Data, &event); err != nil {
		return 0, fmt.Errorf("failed to read play event %s: %w", doc.Path, err)
	}
	return event.PlayedAt, nil
}

// aggregateSnapshot falls back to the snapshot on the play aggregate
func (r *recorder) aggregateSnapshot(ctx context.Context, key domain.MediaKey) domain.NFTSnapshot {
	doc, err := r.store.Get(ctx, store.GlobalPlayPath(key))
	if err != nil || doc == nil {
		return domain.NFTSnapshot{MediaURL: firstURL(key)}
	}

	var aggregate domain.GlobalPlayAggregate
	if err := store.Decode(doc.Data, &aggregate); err != nil || aggregate.NFT == (domain.NFTSnapshot{}) {
		return domain.NFTSnapshot{MediaURL: firstURL(key)}
	}
	return aggregate.NFT
}

func firstURL(key domain.MediaKey) string {
	urls := key.URLs()
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}
