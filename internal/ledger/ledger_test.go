package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/ledger"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/migrator"
	"github.com/feral-file/ff-media-ledger/internal/mocks"
	"github.com/feral-file/ff-media-ledger/internal/repairer"
	"github.com/feral-file/ff-media-ledger/internal/store"
)

type testLedgerMocks struct {
	ctrl     *gomock.Controller
	clock    *mocks.MockClock
	migrator *mocks.MockMigrator
	repairer *mocks.MockRepairer
	store    store.Store
}

func setupTestLedger(t *testing.T) (*testLedgerMocks, ledger.Ledger) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	tm := &testLedgerMocks{
		ctrl:     ctrl,
		clock:    mocks.NewMockClock(ctrl),
		migrator: mocks.NewMockMigrator(ctrl),
		repairer: mocks.NewMockRepairer(ctrl),
		store:    store.NewMemoryStore(nil),
	}

	// Every call to Now is one second later than the previous one
	var mu sync.Mutex
	now := time.UnixMilli(1_700_000_000_000)
	tm.clock.EXPECT().Now().DoAndReturn(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}).AnyTimes()
	tm.repairer.EXPECT().Schedule(gomock.Any()).AnyTimes()
	tm.migrator.EXPECT().CleanupLikes(gomock.Any(), gomock.Any()).Return(migrator.Report{}, nil).AnyTimes()

	return tm, ledger.New(tm.store, tm.migrator, tm.repairer, tm.clock)
}

func testNFT(n int) domain.NFT {
	return domain.NFT{
		ContractAddress: "0x396343362be2A4dA1cE0C1C210945346fb82Aa49",
		TokenID:         fmt.Sprint(n),
		Name:            fmt.Sprintf("Track %d", n),
		MediaURL:        fmt.Sprintf("ipfs://QmAudio%d", n),
		ImageURL:        fmt.Sprintf("ipfs://QmCover%d", n),
	}
}

func TestToggleLike(t *testing.T) {
	_, l := setupTestLedger(t)
	ctx := context.Background()
	nft := testNFT(1)
	key := nft.MediaKey()

	liked, err := l.ToggleLike(ctx, 3, nft)
	require.NoError(t, err)
	assert.True(t, liked)

	isLiked, err := l.IsLiked(ctx, 3, key)
	require.NoError(t, err)
	assert.True(t, isLiked)

	count, err := l.GetLikeCount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	liked, err = l.ToggleLike(ctx, 3, nft)
	require.NoError(t, err)
	assert.False(t, liked)

	isLiked, err = l.IsLiked(ctx, 3, key)
	require.NoError(t, err)
	assert.False(t, isLiked)

	count, err = l.GetLikeCount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestToggleLike_AggregateLifecycle(t *testing.T) {
	tm, l := setupTestLedger(t)
	ctx := context.Background()
	nft := testNFT(1)
	key := nft.MediaKey()

	for _, fid := range []domain.FID{3, 4, 5} {
		liked, err := l.ToggleLike(ctx, fid, nft)
		require.NoError(t, err)
		require.True(t, liked)
	}

	doc, err := tm.store.Get(ctx, store.GlobalLikePath(key))
	require.NoError(t, err)
	require.NotNil(t, doc)
	var aggregate domain.GlobalLikeAggregate
	require.NoError(t, store.Decode(doc.Data, &aggregate))
	assert.Equal(t, int64(3), aggregate.LikeCount)
	assert.Equal(t, key, aggregate.MediaKey)
	assert.Equal(t, "Track 1", aggregate.NFT.Name)

	for _, fid := range []domain.FID{3, 4, 5} {
		liked, err := l.ToggleLike(ctx, fid, nft)
		require.NoError(t, err)
		require.False(t, liked)
	}

	// The aggregate is removed when nobody likes the content
	doc, err = tm.store.Get(ctx, store.GlobalLikePath(key))
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestToggleLike_ReMintSharesState(t *testing.T) {
	_, l := setupTestLedger(t)
	ctx := context.Background()

	original := testNFT(1)
	remint := original
	remint.ContractAddress = "KT1BvXTW1XqhE1GHTRKRvz8w3a7X5f5NqEZr"
	remint.TokenID = "99"
	remint.MediaURL, remint.ImageURL = original.ImageURL, original.MediaURL

	liked, err := l.ToggleLike(ctx, 3, original)
	require.NoError(t, err)
	assert.True(t, liked)

	// Toggling the re-mint unlikes the same content
	liked, err = l.ToggleLike(ctx, 3, remint)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestToggleLike_RelikeAfterUnlike(t *testing.T) {
	_, l := setupTestLedger(t)
	ctx := context.Background()
	nft := testNFT(1)

	for _, expected := range []bool{true, false, true} {
		liked, err := l.ToggleLike(ctx, 3, nft)
		require.NoError(t, err)
		assert.Equal(t, expected, liked)
	}

	media, err := l.GetLikedMedia(ctx, 3)
	require.NoError(t, err)
	require.Len(t, media, 1)
	assert.Equal(t, "Track 1", media[0].Name)
}

func TestToggleLike_SchedulesRepair(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	rep := mocks.NewMockRepairer(ctrl)
	clock.EXPECT().Now().Return(time.UnixMilli(1_700_000_000_000)).AnyTimes()

	nft := testNFT(1)
	rep.EXPECT().Schedule(nft.MediaKey()).Times(2)

	l := ledger.New(store.NewMemoryStore(nil), nil, rep, clock)
	_, err := l.ToggleLike(context.Background(), 3, nft)
	require.NoError(t, err)
	_, err = l.ToggleLike(context.Background(), 3, nft)
	require.NoError(t, err)
}

// barrierStore holds the first n reads of path until all n have arrived,
// so concurrent toggles both observe the same prior state
type barrierStore struct {
	store.Store
	path    string
	n       int32
	calls   atomic.Int32
	arrived sync.WaitGroup
}

func newBarrierStore(inner store.Store, path string, n int) *barrierStore {
	s := &barrierStore{Store: inner, path: path, n: int32(n)}
	s.arrived.Add(n)
	return s
}

func (s *barrierStore) Get(ctx context.Context, path string) (*store.Document, error) {
	doc, err := s.Store.Get(ctx, path)
	if path == s.path && s.calls.Add(1) <= s.n {
		s.arrived.Done()
		s.arrived.Wait()
	}
	return doc, err
}

func TestToggleLike_ConcurrentFirstLikesConvergeAfterRepair(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.UnixMilli(1_700_000_000_000)).AnyTimes()

	nft := testNFT(1)
	key := nft.MediaKey()
	mem := store.NewMemoryStore(nil)
	rep := repairer.New(repairer.Config{Workers: 2, Timeout: time.Second}, mem, clock)
	l := ledger.New(newBarrierStore(mem, store.LikePath(1, key), 2), nil, rep, clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			liked, err := l.ToggleLike(ctx, 1, nft)
			assert.NoError(t, err)
			results[i] = liked
		}(i)
	}
	wg.Wait()
	rep.Close()

	// Both toggles read the unliked state, so both report a like
	assert.Equal(t, []bool{true, true}, results)

	_, err := rep.Repair(ctx, key)
	require.NoError(t, err)

	likes, err := mem.Query(ctx, store.Query{Collection: store.LikesGroup}.Where(store.FieldMediaKey, store.OpEqual, key.String()))
	require.NoError(t, err)
	assert.Len(t, likes, 1)

	count, err := l.GetLikeCount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	isLiked, err := l.IsLiked(ctx, 1, key)
	require.NoError(t, err)
	assert.True(t, isLiked)
}

func TestToggleLike_Observe(t *testing.T) {
	_, l := setupTestLedger(t)
	ctx := context.Background()
	nft := testNFT(1)
	other := testNFT(2)

	var states []bool
	unsubscribe := l.Observe(nft.MediaKey(), func(liked bool) {
		states = append(states, liked)
	})

	_, err := l.ToggleLike(ctx, 3, nft)
	require.NoError(t, err)
	_, err = l.ToggleLike(ctx, 3, other)
	require.NoError(t, err)
	_, err = l.ToggleLike(ctx, 4, nft)
	require.NoError(t, err)
	_, err = l.ToggleLike(ctx, 3, nft)
	require.NoError(t, err)

	unsubscribe()
	_, err = l.ToggleLike(ctx, 3, nft)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, false}, states)
}

func TestObserve_OnlyToggledThroughSameLedger(t *testing.T) {
	tm, l := setupTestLedger(t)
	other := ledger.New(tm.store, tm.migrator, tm.repairer, tm.clock)
	ctx := context.Background()
	nft := testNFT(1)

	var states []bool
	unsubscribe := l.Observe(nft.MediaKey(), func(liked bool) {
		states = append(states, liked)
	})
	defer unsubscribe()

	_, err := other.ToggleLike(ctx, 3, nft)
	require.NoError(t, err)
	assert.Empty(t, states)

	// The shared store still reflects the toggle
	isLiked, err := l.IsLiked(ctx, 3, nft.MediaKey())
	require.NoError(t, err)
	assert.True(t, isLiked)

	_, err = l.ToggleLike(ctx, 3, nft)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, states)
}

func TestToggleLike_InvalidInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No expectations: invalid input never reaches the store
	st := mocks.NewMockStore(ctrl)
	l := ledger.New(st, mocks.NewMockMigrator(ctrl), mocks.NewMockRepairer(ctrl), mocks.NewMockClock(ctrl))
	ctx := context.Background()

	_, err := l.ToggleLike(ctx, 0, testNFT(1))
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = l.ToggleLike(ctx, -1, testNFT(1))
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = l.ToggleLike(ctx, 3, domain.NFT{ContractAddress: "0x396343362be2A4dA1cE0C1C210945346fb82Aa49", TokenID: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)

	_, err = l.IsLiked(ctx, 0, testNFT(1).MediaKey())
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = l.IsLiked(ctx, 3, "")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)

	_, err = l.GetLikeCount(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)

	_, err = l.GetLikedMedia(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = l.SubscribeLikedMedia(ctx, 0, func([]domain.NFTSnapshot) {})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestToggleLike_StoreUnavailable(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	unavailable := fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)

	tests := []struct {
		name  string
		setup func(st *mocks.MockStore)
	}{
		{
			name: "read fails",
			setup: func(st *mocks.MockStore) {
				st.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, unavailable)
			},
		},
		{
			name: "commit fails",
			setup: func(st *mocks.MockStore) {
				st.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
				st.EXPECT().CommitBatch(gomock.Any(), gomock.Any()).Return(unavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			st := mocks.NewMockStore(ctrl)
			clock := mocks.NewMockClock(ctrl)
			clock.EXPECT().Now().Return(time.UnixMilli(1_700_000_000_000)).AnyTimes()
			tt.setup(st)

			// The repairer has no expectations: nothing is scheduled on failure
			l := ledger.New(st, nil, mocks.NewMockRepairer(ctrl), clock)

			nft := testNFT(1)
			notified := false
			l.Observe(nft.MediaKey(), func(bool) { notified = true })

			_, err := l.ToggleLike(context.Background(), 3, nft)
			assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
			assert.False(t, notified)
		})
	}
}

func TestGetLikedMedia(t *testing.T) {
	_, l := setupTestLedger(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := l.ToggleLike(ctx, 3, testNFT(i))
		require.NoError(t, err)
	}
	_, err := l.ToggleLike(ctx, 4, testNFT(4))
	require.NoError(t, err)

	media, err := l.GetLikedMedia(ctx, 3)
	require.NoError(t, err)
	require.Len(t, media, 3)
	assert.Equal(t, "Track 3", media[0].Name)
	assert.Equal(t, "Track 2", media[1].Name)
	assert.Equal(t, "Track 1", media[2].Name)
	assert.Equal(t, "ipfs://QmAudio3", media[0].MediaURL)
	assert.Equal(t, "ipfs://QmCover3", media[0].Image)

	media, err = l.GetLikedMedia(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, media)
}

func TestGetLikedMedia_MigrationFailureDoesNotFailRead(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	mig := mocks.NewMockMigrator(ctrl)
	clock := mocks.NewMockClock(ctrl)
	rep := mocks.NewMockRepairer(ctrl)
	clock.EXPECT().Now().Return(time.UnixMilli(1_700_000_000_000)).AnyTimes()
	rep.EXPECT().Schedule(gomock.Any()).AnyTimes()

	mig.EXPECT().CleanupLikes(gomock.Any(), domain.FID(3)).
		Return(migrator.Report{Failed: 1}, errors.New("commit failed")).
		Times(1)

	l := ledger.New(store.NewMemoryStore(nil), mig, rep, clock)
	_, err := l.ToggleLike(context.Background(), 3, testNFT(1))
	require.NoError(t, err)

	media, err := l.GetLikedMedia(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, media, 1)
}

func TestGetLikedMedia_RunsMigrationFirst(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))

	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	rep := mocks.NewMockRepairer(ctrl)
	clock.EXPECT().Now().Return(time.UnixMilli(1_700_000_000_000)).AnyTimes()
	rep.EXPECT().Schedule(gomock.Any()).AnyTimes()

	st := store.NewMemoryStore(nil)
	require.NoError(t, st.Set(context.Background(), store.UserProfilePath(3), store.Fields{
		store.FieldLegacyLikedNFTs: []interface{}{
			map[string]interface{}{"name": "Legacy", "mediaUrl": "ipfs://QmLegacy", "likedAt": 1_600_000_000_000},
		},
	}, false))

	l := ledger.New(st, migrator.New(st, rep, clock), rep, clock)

	media, err := l.GetLikedMedia(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, media, 1)
	assert.Equal(t, "Legacy", media[0].Name)
}

func TestSubscribeLikedMedia(t *testing.T) {
	_, l := setupTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := l.ToggleLike(ctx, 3, testNFT(1))
	require.NoError(t, err)

	updates := make(chan []domain.NFTSnapshot, 10)
	unsubscribe, err := l.SubscribeLikedMedia(ctx, 3, func(media []domain.NFTSnapshot) {
		updates <- media
	})
	require.NoError(t, err)
	defer unsubscribe()

	// The current state arrives first
	select {
	case media := <-updates:
		require.Len(t, media, 1)
		assert.Equal(t, "Track 1", media[0].Name)
	case <-time.After(time.Second):
		t.Fatal("no initial delivery")
	}

	_, err = l.ToggleLike(ctx, 3, testNFT(2))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for {
			select {
			case media := <-updates:
				if len(media) == 2 && media[0].Name == "Track 2" {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
}
