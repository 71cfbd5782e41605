package migrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/repairer"
	"github.com/feral-file/ff-media-ledger/internal/store"
)

// Report summarizes one cleanup pass
type Report struct {
	// Migrated counts legacy records removed from their old location
	Migrated int `json:"migrated"`
	// Created counts LikeRecords created; a legacy like of already-liked content creates none
	Created int `json:"created"`
	// Backfilled counts canonical records that were missing fields
	Backfilled int `json:"backfilled"`
	// Skipped counts records left untouched because they have no media url
	Skipped int `json:"skipped"`
	// Failed counts records that could not be parsed
	Failed int `json:"failed"`
}

// Writes reports whether the pass changed anything
func (r Report) Writes() bool {
	return r.Migrated > 0 || r.Created > 0 || r.Backfilled > 0
}

// Migrator folds legacy like shapes into canonical LikeRecords
//
//go:generate mockgen -source=migrator.go -destination=../mocks/migrator.go -package=mocks -mock_names=Migrator=MockMigrator
type Migrator interface {
	// CleanupLikes migrates every legacy like of the user. It is idempotent:
	// a second run over migrated data performs no writes.
	CleanupLikes(ctx context.Context, fid domain.FID) (Report, error)
}

type migrator struct {
	store    store.Store
	repairer repairer.Repairer
	clock    adapter.Clock
}

// New creates a migrator
func New(st store.Store, rep repairer.Repairer, clock adapter.Clock) Migrator {
	return &migrator{store: st, repairer: rep, clock: clock}
}

// v2Document is the stored form of a flat legacy like
type v2Document struct {
	UserID  int64      `json:"userId"`
	NFT     domain.NFT `json:"nft"`
	LikedAt int64      `json:"likedAt"`
}

// cleanupPass accumulates the writes of one CleanupLikes call
type cleanupPass struct {
	fid     domain.FID
	now     int64
	ops     []store.Op
	seen    map[domain.MediaKey]struct{}
	touched []domain.MediaKey
	report  Report
}

func (m *migrator) CleanupLikes(ctx context.Context, fid domain.FID) (Report, error) {
	if !fid.Valid() {
		return Report{}, domain.ErrInvalidUser
	}

	pass := &cleanupPass{
		fid:  fid,
		now:  domain.UnixMilli(m.clock.Now()),
		seen: make(map[domain.MediaKey]struct{}),
	}

	if err := m.backfillCanonical(ctx, pass); err != nil {
		return pass.report, err
	}
	if err := m.migrateV1(ctx, pass); err != nil {
		return pass.report, err
	}
	if err := m.migrateV2(ctx, pass); err != nil {
		return pass.report, err
	}

	if len(pass.ops) == 0 {
		return pass.report, nil
	}

	if err := m.store.CommitBatch(ctx, pass.ops); err != nil {
		return Report{Skipped: pass.report.Skipped, Failed: pass.report.Failed},
			fmt.Errorf("failed to commit migration: %w", err)
	}

	logger.InfoCtx(ctx, "Migrated legacy likes",
		zap.Int64("fid", int64(fid)),
		zap.Int("migrated", pass.report.Migrated),
		zap.Int("created", pass.report.Created),
		zap.Int("backfilled", pass.report.Backfilled),
		zap.Int("skipped", pass.report.Skipped),
		zap.Int("failed", pass.report.Failed))

	for _, key := range pass.touched {
		m.repairer.Schedule(key)
	}

	return pass.report, nil
}

// backfillCanonical fixes canonical records written before every field existed
func (m *migrator) backfillCanonical(ctx context.Context, pass *cleanupPass) error {
	docs, err := m.store.Query(ctx, store.Query{Collection: store.LikesCollection(pass.fid)})
	if err != nil {
		return fmt.Errorf("failed to list likes: %w", err)
	}

	for _, doc := range docs {
		_, hasKey := doc.Data[store.FieldMediaKey]
		_, hasLikedAt := doc.Data[store.FieldLikedAt]
		if hasKey && hasLikedAt {
			continue
		}

		var record domain.LikeRecord
		if err := store.Decode(doc.Data, &record); err != nil {
			pass.fail(ctx, doc.Path, fmt.Errorf("%w: %w", domain.ErrPartialMigrationFailure, err))
			continue
		}
		if record.FID == 0 {
			record.FID = pass.fid
		}

		record, err := ConvertCanonical(Canonical{DocID: doc.ID(), Record: record}, pass.now)
		if err != nil {
			pass.skipOrFail(ctx, doc.Path, err)
			continue
		}

		pass.ops = append(pass.ops, store.SetOp(doc.Path, store.Fields{
			store.FieldFID:      int64(record.FID),
			store.FieldMediaKey: record.MediaKey.String(),
			store.FieldLikedAt:  record.LikedAt,
		}, true))
		pass.seen[record.MediaKey] = struct{}{}
		pass.touched = append(pass.touched, record.MediaKey)
		pass.report.Backfilled++
	}
	return nil
}

// migrateV1 moves entries out of the likedNfts array on the user profile
func (m *migrator) migrateV1(ctx context.Context, pass *cleanupPass) error {
	profilePath := store.UserProfilePath(pass.fid)
	profile, err := m.store.Get(ctx, profilePath)
	if err != nil {
		return fmt.Errorf("failed to get user profile: %w", err)
	}
	if profile == nil {
		return nil
	}

	entries, ok := profile.Data[store.FieldLegacyLikedNFTs].([]interface{})
	if !ok || len(entries) == 0 {
		return nil
	}

	remaining := make([]interface{}, 0, len(entries))
	migrated := 0
	for i, item := range entries {
		source := fmt.Sprintf("%s#%s[%d]", profilePath, store.FieldLegacyLikedNFTs, i)

		record, err := convertV1Item(pass.fid, item, pass.now)
		if err != nil {
			pass.skipOrFail(ctx, source, err)
			remaining = append(remaining, item)
			continue
		}

		if err := m.addCanonical(ctx, pass, record); err != nil {
			return err
		}
		migrated++
	}

	if migrated > 0 {
		pass.ops = append(pass.ops, store.SetOp(profilePath, store.Fields{
			store.FieldLegacyLikedNFTs: remaining,
		}, true))
		pass.report.Migrated += migrated
	}
	return nil
}

func convertV1Item(fid domain.FID, item interface{}, now int64) (domain.LikeRecord, error) {
	raw, ok := item.(map[string]interface{})
	if !ok {
		return domain.LikeRecord{}, fmt.Errorf("%w: entry is %T, not an object", domain.ErrPartialMigrationFailure, item)
	}

	var entry V1Entry
	if err := store.Decode(raw, &entry); err != nil {
		return domain.LikeRecord{}, fmt.Errorf("%w: %w", domain.ErrPartialMigrationFailure, err)
	}

	return ConvertV1Embedded(V1Embedded{FID: fid, Entry: entry}, now)
}

// migrateV2 moves the user's records out of the flat user_likes collection.
// Records are found by the "{fid}-" key prefix, since userId is optional, and by userId.
func (m *migrator) migrateV2(ctx context.Context, pass *cleanupPass) error {
	legacy := store.Query{Collection: store.CollectionLegacyUserLikes}
	byKey, err := m.store.Query(ctx, legacy.WithIDPrefix(fmt.Sprintf("%d-", pass.fid)))
	if err != nil {
		return fmt.Errorf("failed to list legacy likes: %w", err)
	}
	byUserID, err := m.store.Query(ctx, legacy.Where(store.FieldLegacyUserID, store.OpEqual, int64(pass.fid)))
	if err != nil {
		return fmt.Errorf("failed to list legacy likes: %w", err)
	}

	docs := byKey
	found := make(map[string]struct{}, len(byKey))
	for _, doc := range byKey {
		found[doc.Path] = struct{}{}
	}
	for _, doc := range byUserID {
		if _, ok := found[doc.Path]; !ok {
			docs = append(docs, doc)
		}
	}

	for _, doc := range docs {
		var stored v2Document
		if err := store.Decode(doc.Data, &stored); err != nil {
			pass.fail(ctx, doc.Path, fmt.Errorf("%w: %w", domain.ErrPartialMigrationFailure, err))
			continue
		}

		record, err := ConvertV2FlatGlobal(V2FlatGlobal{
			DocID:   doc.ID(),
			UserID:  domain.FID(stored.UserID),
			NFT:     stored.NFT,
			LikedAt: stored.LikedAt,
		}, pass.now)
		if err != nil {
			pass.skipOrFail(ctx, doc.Path, err)
			continue
		}

		if err := m.addCanonical(ctx, pass, record); err != nil {
			return err
		}
		pass.ops = append(pass.ops, store.DeleteOp(doc.Path))
		pass.report.Migrated++
	}
	return nil
}

// addCanonical queues the LikeRecord and its aggregate increment unless the user already likes the content
func (m *migrator) addCanonical(ctx context.Context, pass *cleanupPass, record domain.LikeRecord) error {
	if _, ok := pass.seen[record.MediaKey]; ok {
		return nil
	}
	pass.seen[record.MediaKey] = struct{}{}
	pass.touched = append(pass.touched, record.MediaKey)

	likePath := store.LikePath(pass.fid, record.MediaKey)
	existing, err := m.store.Get(ctx, likePath)
	if err != nil {
		return fmt.Errorf("failed to get like: %w", err)
	}
	if existing != nil {
		return nil
	}

	fields, err := store.Encode(record)
	if err != nil {
		return err
	}
	snapshot, err := store.Encode(record.NFT)
	if err != nil {
		return err
	}

	aggregatePath := store.GlobalLikePath(record.MediaKey)
	pass.ops = append(pass.ops,
		store.SetOp(likePath, fields, false),
		store.SetOp(aggregatePath, store.Fields{
			store.FieldMediaKey:  record.MediaKey.String(),
			store.FieldNFT:       map[string]interface{}(snapshot),
			store.FieldUpdatedAt: pass.now,
		}, true),
		store.IncrementOp(aggregatePath, store.FieldLikeCount, 1, true),
	)
	pass.report.Created++
	return nil
}

func (p *cleanupPass) skipOrFail(ctx context.Context, source string, err error) {
	if errors.Is(err, ErrMissingMediaKey) {
		p.report.Skipped++
		logger.DebugCtx(ctx, "Leaving legacy like without media url", zap.String("source", source))
		return
	}
	p.fail(ctx, source, err)
}

func (p *cleanupPass) fail(ctx context.Context, source string, err error) {
	p.report.Failed++
	logger.WarnCtx(ctx, "Skipping unparseable legacy like",
		zap.Error(err),
		zap.Int64("fid", int64(p.fid)),
		zap.String("source", source))
}
