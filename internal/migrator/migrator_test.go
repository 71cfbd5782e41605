package migrator_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/migrator"
	"github.com/feral-file/ff-media-ledger/internal/mocks"
	"github.com/feral-file/ff-media-ledger/internal/store"
)

// countingStore counts committed batches
type countingStore struct {
	store.Store
	commits atomic.Int32
}

func (s *countingStore) CommitBatch(ctx context.Context, ops []store.Op) error {
	s.commits.Add(1)
	return s.Store.CommitBatch(ctx, ops)
}

type testMigratorMocks struct {
	ctrl     *gomock.Controller
	clock    *mocks.MockClock
	repairer *mocks.MockRepairer
	store    *countingStore
}

func setupTestMigrator(t *testing.T) (*testMigratorMocks, migrator.Migrator) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	tm := &testMigratorMocks{
		ctrl:     ctrl,
		clock:    mocks.NewMockClock(ctrl),
		repairer: mocks.NewMockRepairer(ctrl),
		store:    &countingStore{Store: store.NewMemoryStore(nil)},
	}
	tm.clock.EXPECT().Now().Return(time.UnixMilli(testNow)).AnyTimes()

	return tm, migrator.New(tm.store, tm.repairer, tm.clock)
}

var (
	nightDrive = domain.NFT{
		ContractAddress: "0x396343362be2A4dA1cE0C1C210945346fb82Aa49",
		TokenID:         "7",
		Name:            "Night Drive",
		MediaURL:        "ipfs://QmAudio",
		ImageURL:        "ipfs://QmCover",
	}
	dawn = domain.NFT{
		ContractAddress: "KT1BvXTW1XqhE1GHTRKRvz8w3a7X5f5NqEZr",
		TokenID:         "12",
		Name:            "Dawn",
		MediaURL:        "ar://dawn",
	}
)

func v1Entry(nft domain.NFT, likedAt int64) map[string]interface{} {
	return map[string]interface{}{
		"contractAddress": nft.ContractAddress,
		"tokenId":         nft.TokenID,
		"name":            nft.Name,
		"mediaUrl":        nft.MediaURL,
		"imageUrl":        nft.ImageURL,
		"likedAt":         likedAt,
	}
}

func seedProfile(t *testing.T, st store.Store, fid domain.FID, entries ...interface{}) {
	require.NoError(t, st.Set(context.Background(), store.UserProfilePath(fid), store.Fields{
		"username":                 "alice",
		store.FieldLegacyLikedNFTs: entries,
	}, false))
}

func seedV2(t *testing.T, st store.Store, docID string, userID int64, nft domain.NFT) {
	fields, err := store.Encode(nft)
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), store.LegacyUserLikePath(docID), store.Fields{
		store.FieldLegacyUserID: userID,
		store.FieldNFT:          map[string]interface{}(fields),
		store.FieldLikedAt:      int64(1_650_000_000_000),
	}, false))
}

func seedLike(t *testing.T, st store.Store, fid domain.FID, nft domain.NFT) {
	fields, err := store.Encode(domain.LikeRecord{
		FID:      fid,
		MediaKey: nft.MediaKey(),
		NFT:      nft.Snapshot(),
		LikedAt:  1_600_000_000_000,
	})
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), store.LikePath(fid, nft.MediaKey()), fields, false))
}

func likeCount(t *testing.T, st store.Store, key domain.MediaKey) int64 {
	doc, err := st.Get(context.Background(), store.GlobalLikePath(key))
	require.NoError(t, err)
	if doc == nil {
		return 0
	}
	var agg domain.GlobalLikeAggregate
	require.NoError(t, store.Decode(doc.Data, &agg))
	return agg.LikeCount
}

func getLike(t *testing.T, st store.Store, fid domain.FID, key domain.MediaKey) *domain.LikeRecord {
	doc, err := st.Get(context.Background(), store.LikePath(fid, key))
	require.NoError(t, err)
	if doc == nil {
		return nil
	}
	var record domain.LikeRecord
	require.NoError(t, store.Decode(doc.Data, &record))
	return &record
}

func TestCleanupLikes_V1(t *testing.T) {
	tm, m := setupTestMigrator(t)
	ctx := context.Background()

	noMedia := map[string]interface{}{"name": "Untitled", "tokenId": "1"}
	seedProfile(t, tm.store, 3,
		v1Entry(nightDrive, 1_600_000_000_000),
		noMedia,
		"not an entry",
	)

	tm.repairer.EXPECT().Schedule(nightDrive.MediaKey()).Times(1)

	report, err := m.CleanupLikes(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{Migrated: 1, Created: 1, Skipped: 1, Failed: 1}, report)

	record := getLike(t, tm.store, 3, nightDrive.MediaKey())
	require.NotNil(t, record)
	assert.Equal(t, domain.FID(3), record.FID)
	assert.Equal(t, "Night Drive", record.NFT.Name)
	assert.Equal(t, int64(1_600_000_000_000), record.LikedAt)
	assert.Equal(t, int64(1), likeCount(t, tm.store, nightDrive.MediaKey()))

	// Entries that could not be migrated stay on the profile with the rest of it
	profile, err := tm.store.Get(ctx, store.UserProfilePath(3))
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Data["username"])
	remaining, ok := profile.Data[store.FieldLegacyLikedNFTs].([]interface{})
	require.True(t, ok)
	require.Len(t, remaining, 2)
	assert.Equal(t, "Untitled", remaining[0].(map[string]interface{})["name"])
	assert.Equal(t, "not an entry", remaining[1])
}

func TestCleanupLikes_V2(t *testing.T) {
	tm, m := setupTestMigrator(t)
	ctx := context.Background()

	mine := "3-0x396343362be2a4da1ce0c1c210945346fb82aa49-7"
	theirs := "4-KT1BvXTW1XqhE1GHTRKRvz8w3a7X5f5NqEZr-12"
	seedV2(t, tm.store, mine, 3, domain.NFT{Name: "Night Drive", MediaURL: nightDrive.MediaURL, ImageURL: nightDrive.ImageURL})
	seedV2(t, tm.store, theirs, 4, dawn)

	tm.repairer.EXPECT().Schedule(nightDrive.MediaKey()).Times(1)

	report, err := m.CleanupLikes(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{Migrated: 1, Created: 1}, report)

	record := getLike(t, tm.store, 3, nightDrive.MediaKey())
	require.NotNil(t, record)
	assert.Equal(t, "0x396343362be2A4dA1cE0C1C210945346fb82Aa49", record.NFT.ContractAddress)
	assert.Equal(t, "7", record.NFT.TokenID)
	assert.Equal(t, int64(1_650_000_000_000), record.LikedAt)

	doc, err := tm.store.Get(ctx, store.LegacyUserLikePath(mine))
	require.NoError(t, err)
	assert.Nil(t, doc)

	// Other users' legacy records are not touched
	doc, err = tm.store.Get(ctx, store.LegacyUserLikePath(theirs))
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Nil(t, getLike(t, tm.store, 4, dawn.MediaKey()))
}

func TestCleanupLikes_V2WithoutUserID(t *testing.T) {
	tm, m := setupTestMigrator(t)
	ctx := context.Background()

	docID := "5-0x396343362be2A4dA1cE0C1C210945346fb82Aa49-7"
	fields, err := store.Encode(domain.NFT{Name: "Night Drive", MediaURL: nightDrive.MediaURL, ImageURL: nightDrive.ImageURL})
	require.NoError(t, err)
	require.NoError(t, tm.store.Set(ctx, store.LegacyUserLikePath(docID), store.Fields{
		store.FieldNFT: map[string]interface{}(fields),
	}, false))
	// A longer fid sharing the leading digit is not the user's
	seedV2(t, tm.store, "55-KT1BvXTW1XqhE1GHTRKRvz8w3a7X5f5NqEZr-12", 55, dawn)

	tm.repairer.EXPECT().Schedule(nightDrive.MediaKey()).Times(1)

	report, err := m.CleanupLikes(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{Migrated: 1, Created: 1}, report)

	record := getLike(t, tm.store, 5, nightDrive.MediaKey())
	require.NotNil(t, record)
	assert.Equal(t, domain.FID(5), record.FID)
	assert.Equal(t, "7", record.NFT.TokenID)
	assert.Equal(t, int64(testNow), record.LikedAt)
	assert.Equal(t, int64(1), likeCount(t, tm.store, nightDrive.MediaKey()))

	doc, err := tm.store.Get(ctx, store.LegacyUserLikePath(docID))
	require.NoError(t, err)
	assert.Nil(t, doc)

	doc, err = tm.store.Get(ctx, store.LegacyUserLikePath("55-KT1BvXTW1XqhE1GHTRKRvz8w3a7X5f5NqEZr-12"))
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestCleanupLikes_Idempotent(t *testing.T) {
	tm, m := setupTestMigrator(t)
	ctx := context.Background()

	seedProfile(t, tm.store, 3, v1Entry(nightDrive, 0), map[string]interface{}{"name": "Untitled"})
	seedV2(t, tm.store, "3-KT1BvXTW1XqhE1GHTRKRvz8w3a7X5f5NqEZr-12", 3, dawn)

	tm.repairer.EXPECT().Schedule(nightDrive.MediaKey()).Times(1)
	tm.repairer.EXPECT().Schedule(dawn.MediaKey()).Times(1)

	report, err := m.CleanupLikes(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{Migrated: 2, Created: 2, Skipped: 1}, report)
	assert.Equal(t, int32(1), tm.store.commits.Load())

	report, err = m.CleanupLikes(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{Skipped: 1}, report)
	assert.False(t, report.Writes())
	assert.Equal(t, int32(1), tm.store.commits.Load())

	assert.Equal(t, int64(1), likeCount(t, tm.store, nightDrive.MediaKey()))
	assert.Equal(t, int64(1), likeCount(t, tm.store, dawn.MediaKey()))
}

func TestCleanupLikes_AlreadyLiked(t *testing.T) {
	tm, m := setupTestMigrator(t)
	ctx := context.Background()

	seedLike(t, tm.store, 3, nightDrive)
	require.NoError(t, tm.store.AtomicIncrement(ctx, store.GlobalLikePath(nightDrive.MediaKey()), store.FieldLikeCount, 1))

	// The same content in both legacy shapes
	seedProfile(t, tm.store, 3, v1Entry(nightDrive, 1_500_000_000_000))
	seedV2(t, tm.store, "3-0x396343362be2a4da1ce0c1c210945346fb82aa49-7", 3, nightDrive)

	tm.repairer.EXPECT().Schedule(nightDrive.MediaKey()).Times(1)

	report, err := m.CleanupLikes(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{Migrated: 2}, report)

	// Existing record and count are kept
	record := getLike(t, tm.store, 3, nightDrive.MediaKey())
	require.NotNil(t, record)
	assert.Equal(t, int64(1_600_000_000_000), record.LikedAt)
	assert.Equal(t, int64(1), likeCount(t, tm.store, nightDrive.MediaKey()))
}

func TestCleanupLikes_DuplicateLegacyShapes(t *testing.T) {
	tm, m := setupTestMigrator(t)
	ctx := context.Background()

	seedProfile(t, tm.store, 3, v1Entry(nightDrive, 1_500_000_000_000))
	seedV2(t, tm.store, "3-0x396343362be2a4da1ce0c1c210945346fb82aa49-7", 3, nightDrive)

	tm.repairer.EXPECT().Schedule(nightDrive.MediaKey()).Times(1)

	report, err := m.CleanupLikes(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{Migrated: 2, Created: 1}, report)
	assert.Equal(t, int64(1), likeCount(t, tm.store, nightDrive.MediaKey()))
}

func TestCleanupLikes_BackfillCanonical(t *testing.T) {
	tm, m := setupTestMigrator(t)
	ctx := context.Background()

	snapshot, err := store.Encode(nightDrive.Snapshot())
	require.NoError(t, err)
	require.NoError(t, tm.store.Set(ctx, store.LikePath(3, nightDrive.MediaKey()), store.Fields{
		store.FieldNFT: map[string]interface{}(snapshot),
	}, false))

	tm.repairer.EXPECT().Schedule(nightDrive.MediaKey()).Times(1)

	report, err := m.CleanupLikes(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{Backfilled: 1}, report)

	record := getLike(t, tm.store, 3, nightDrive.MediaKey())
	require.NotNil(t, record)
	assert.Equal(t, nightDrive.MediaKey(), record.MediaKey)
	assert.Equal(t, domain.FID(3), record.FID)
	assert.Equal(t, testNow, record.LikedAt)
	assert.Equal(t, "Night Drive", record.NFT.Name)

	// Backfilled records are found by media key
	docs, err := tm.store.Query(ctx, store.Query{Collection: store.LikesGroup}.
		Where(store.FieldMediaKey, store.OpEqual, nightDrive.MediaKey().String()))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCleanupLikes_NothingToDo(t *testing.T) {
	tm, m := setupTestMigrator(t)

	seedLike(t, tm.store, 3, nightDrive)

	report, err := m.CleanupLikes(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, migrator.Report{}, report)
	assert.Equal(t, int32(0), tm.store.commits.Load())
}

func TestCleanupLikes_InvalidUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	m := migrator.New(st, mocks.NewMockRepairer(ctrl), mocks.NewMockClock(ctrl))

	_, err := m.CleanupLikes(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestCleanupLikes_StoreUnavailable(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.UnixMilli(testNow)).AnyTimes()

	st.EXPECT().Query(gomock.Any(), gomock.Any()).
		Return(nil, errors.Join(domain.ErrStoreUnavailable, errors.New("connection refused")))

	m := migrator.New(st, mocks.NewMockRepairer(ctrl), clock)
	_, err := m.CleanupLikes(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
