package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/migrator"
	"github.com/feral-file/ff-media-ledger/internal/repairer"
	"github.com/feral-file/ff-media-ledger/internal/store"
)

// Ledger records which users like which content and keeps the global like counts
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Ledger=MockLedger
type Ledger interface {
	// ToggleLike flips the like state of the user for the NFT's content and returns the new state
	ToggleLike(ctx context.Context, fid domain.FID, nft domain.NFT) (bool, error)
	// GetLikedMedia returns the user's liked content, newest first
	GetLikedMedia(ctx context.Context, fid domain.FID) ([]domain.NFTSnapshot, error)
	// SubscribeLikedMedia delivers the user's liked content now and after every change
	SubscribeLikedMedia(ctx context.Context, fid domain.FID, onChange func([]domain.NFTSnapshot)) (func(), error)
	// IsLiked reports whether the user currently likes the content
	IsLiked(ctx context.Context, fid domain.FID, key domain.MediaKey) (bool, error)
	// GetLikeCount returns the global like count of the content
	GetLikeCount(ctx context.Context, key domain.MediaKey) (int64, error)
	// Observe registers a listener for toggles of the content committed through this Ledger.
	// Toggles made by other processes or other Ledger instances are not delivered;
	// use SubscribeLikedMedia to follow changes made elsewhere.
	Observe(key domain.MediaKey, fn LikeObserver) func()
}

type ledger struct {
	store     store.Store
	migrator  migrator.Migrator
	repairer  repairer.Repairer
	clock     adapter.Clock
	observers *observers
}

// New creates a like ledger
func New(st store.Store, mig migrator.Migrator, rep repairer.Repairer, clock adapter.Clock) Ledger {
	return &ledger{
		store:     st,
		migrator:  mig,
		repairer:  rep,
		clock:     clock,
		observers: newObservers(),
	}
}

func (l *ledger) ToggleLike(ctx context.Context, fid domain.FID, nft domain.NFT) (bool, error) {
	if !fid.Valid() {
		return false, domain.ErrInvalidUser
	}
	key := nft.MediaKey()
	if key.Empty() {
		return false, domain.ErrInvalidIdentity
	}

	likePath := store.LikePath(fid, key)
	aggregatePath := store.GlobalLikePath(key)

	existing, err := l.store.Get(ctx, likePath)
	if err != nil {
		return false, fmt.Errorf("failed to get like: %w", err)
	}

	liked := existing == nil
	var ops []store.Op
	if liked {
		now := domain.UnixMilli(l.clock.Now())
		record, err := store.Encode(domain.LikeRecord{
			FID:      fid,
			MediaKey: key,
			NFT:      nft.Snapshot(),
			LikedAt:  now,
		})
		if err != nil {
			return false, err
		}
		snapshot, err := store.Encode(nft.Snapshot())
		if err != nil {
			return false, err
		}

		ops = []store.Op{
			store.SetOp(likePath, record, false),
			store.SetOp(aggregatePath, store.Fields{
				store.FieldMediaKey:  key.String(),
				store.FieldNFT:       map[string]interface{}(snapshot),
				store.FieldUpdatedAt: now,
			}, true),
			store.IncrementOp(aggregatePath, store.FieldLikeCount, 1, true),
		}
	} else {
		ops = []store.Op{
			store.DeleteOp(likePath),
			store.IncrementOp(aggregatePath, store.FieldLikeCount, -1, true),
		}
	}

	if err := l.store.CommitBatch(ctx, ops); err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}

	logger.DebugCtx(ctx, "Toggled like",
		zap.Int64("fid", int64(fid)),
		zap.String("mediaKey", key.String()),
		zap.Bool("liked", liked))

	l.observers.broadcast(key, liked)
	l.repairer.Schedule(key)

	return liked, nil
}

func (l *ledger) GetLikedMedia(ctx context.Context, fid domain.FID) ([]domain.NFTSnapshot, error) {
	if !fid.Valid() {
		return nil, domain.ErrInvalidUser
	}

	l.migrate(ctx, fid)

	docs, err := l.store.Query(ctx, likedMediaQuery(fid))
	if err != nil {
		return nil, fmt.Errorf("failed to list liked media: %w", err)
	}
	return toSnapshots(ctx, docs), nil
}

func (l *ledger) SubscribeLikedMedia(ctx context.Context, fid domain.FID, onChange func([]domain.NFTSnapshot)) (func(), error) {
	if !fid.Valid() {
		return nil, domain.ErrInvalidUser
	}

	l.migrate(ctx, fid)

	unsubscribe, err := l.store.Subscribe(ctx, likedMediaQuery(fid), func(docs []store.Document) {
		onChange(toSnapshots(ctx, docs))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to liked media: %w", err)
	}
	return unsubscribe, nil
}

func (l *ledger) IsLiked(ctx context.Context, fid domain.FID, key domain.MediaKey) (bool, error) {
	if !fid.Valid() {
		return false, domain.ErrInvalidUser
	}
	if key.Empty() {
		return false, domain.ErrInvalidIdentity
	}

	doc, err := l.store.Get(ctx, store.LikePath(fid, key))
	if err != nil {
		return false, fmt.Errorf("failed to get like: %w", err)
	}
	return doc != nil, nil
}

func (l *ledger) GetLikeCount(ctx context.Context, key domain.MediaKey) (int64, error) {
	if key.Empty() {
		return 0, domain.ErrInvalidIdentity
	}

	doc, err := l.store.Get(ctx, store.GlobalLikePath(key))
	if err != nil {
		return 0, fmt.Errorf("failed to get like count: %w", err)
	}
	if doc == nil {
		return 0, nil
	}

	var aggregate domain.GlobalLikeAggregate
	if err := store.Decode(doc.Data, &aggregate); err != nil {
		return 0, err
	}
	return aggregate.LikeCount, nil
}

func (l *ledger) Observe(key domain.MediaKey, fn LikeObserver) func() {
	return l.observers.add(key, fn)
}

// migrate folds the user's legacy likes in before a read. It never fails the read.
func (l *ledger) migrate(ctx context.Context, fid domain.FID) {
	if l.migrator == nil {
		return
	}
	if _, err := l.migrator.CleanupLikes(ctx, fid); err != nil {
		logger.WarnCtx(ctx, "Failed to migrate legacy likes", zap.Error(err), zap.Int64("fid", int64(fid)))
	}
}

func likedMediaQuery(fid domain.FID) store.Query {
	return store.Query{Collection: store.LikesCollection(fid)}.Order(store.FieldLikedAt, true)
}

func toSnapshots(ctx context.Context, docs []store.Document) []domain.NFTSnapshot {
	snapshots := make([]domain.NFTSnapshot, 0, len(docs))
	for _, doc := range docs {
		var record domain.LikeRecord
		if err := store.Decode(doc.Data, &record); err != nil {
			logger.WarnCtx(ctx, "Skipping unreadable like", zap.Error(err), zap.String("path", doc.Path))
			continue
		}
		snapshots = append(snapshots, record.NFT)
	}
	return snapshots
}
