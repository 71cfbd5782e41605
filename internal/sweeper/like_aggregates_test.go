package sweeper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/mocks"
	"github.com/feral-file/ff-media-ledger/internal/repairer"
	"github.com/feral-file/ff-media-ledger/internal/store"
	"github.com/feral-file/ff-media-ledger/internal/sweeper"
)

// testSweeperMocks contains all the mocks needed for testing the sweeper
type testSweeperMocks struct {
	ctrl         *gomock.Controller
	store        store.Store
	repairer     *mocks.MockRepairer
	materializer *mocks.MockMaterializer
	clock        *mocks.MockClock
	sweeper      sweeper.Sweeper
}

// setupTestSweeper creates all the mocks and sweeper for testing
func setupTestSweeper(t *testing.T) *testSweeperMocks {
	err := logger.Initialize(logger.Config{
		Debug: true,
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	ctrl := gomock.NewController(t)

	tm := &testSweeperMocks{
		ctrl:         ctrl,
		store:        store.NewMemoryStore(nil),
		repairer:     mocks.NewMockRepairer(ctrl),
		materializer: mocks.NewMockMaterializer(ctrl),
		clock:        mocks.NewMockClock(ctrl),
	}

	config := &sweeper.LikeAggregateSweeperConfig{
		WorkerPoolSize:         2,
		BatchSize:              2,
		Interval:               time.Minute,
		RefreshInitialInterval: time.Millisecond,
		RefreshMaxElapsedTime:  100 * time.Millisecond,
	}

	tm.sweeper = sweeper.NewLikeAggregateSweeper(config, tm.store, tm.repairer, tm.materializer, tm.clock)

	return tm
}

func expectClock(tm *testSweeperMocks) {
	now := time.Now()
	tm.clock.EXPECT().Now().Return(now).AnyTimes()
	tm.clock.EXPECT().Since(now).Return(time.Second).AnyTimes()
	// Make After return a channel that fires after a brief delay to allow Stop to execute
	tm.clock.EXPECT().After(gomock.Any()).DoAndReturn(func(d time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		go func() {
			time.Sleep(50 * time.Millisecond)
			ch <- time.Now()
		}()
		return ch
	}).AnyTimes()
}

func seedDoc(t *testing.T, st store.Store, path string, key domain.MediaKey) {
	require.NoError(t, st.Set(context.Background(), path, store.Fields{store.FieldMediaKey: key.String()}, false))
}

func runFor(t *testing.T, s sweeper.Sweeper, d time.Duration) {
	ctx := context.Background()
	go func() {
		time.Sleep(d)
		_ = s.Stop(ctx)
	}()

	err := s.Start(ctx)
	require.NoError(t, err)
}

func TestLikeAggregateSweeper_Name(t *testing.T) {
	tm := setupTestSweeper(t)

	assert.Equal(t, "like-aggregate-sweeper", tm.sweeper.Name())
}

func TestLikeAggregateSweeper_RepairsEveryKey(t *testing.T) {
	tm := setupTestSweeper(t)
	expectClock(tm)

	orphan := domain.MediaKey("ipfs://QmOrphan")
	liked := domain.MediaKey("ipfs://QmLiked")
	both := domain.MediaKey("ipfs://QmBoth")
	extra := domain.MediaKey("ipfs://QmExtra")

	// An aggregate nobody likes, likes without an aggregate, and consistent pairs
	seedDoc(t, tm.store, store.GlobalLikePath(orphan), orphan)
	seedDoc(t, tm.store, store.LikePath(3, liked), liked)
	seedDoc(t, tm.store, store.LikePath(4, liked), liked)
	seedDoc(t, tm.store, store.GlobalLikePath(both), both)
	seedDoc(t, tm.store, store.LikePath(3, both), both)
	seedDoc(t, tm.store, store.LikePath(5, extra), extra)
	// Records without a key are ignored
	require.NoError(t, tm.store.Set(context.Background(), "users/6/likes/broken", store.Fields{"nft": map[string]interface{}{}}, false))

	tm.repairer.EXPECT().Repair(gomock.Any(), orphan).Return(repairer.OutcomeDeleted, nil).MinTimes(1)
	tm.repairer.EXPECT().Repair(gomock.Any(), liked).Return(repairer.OutcomeRecreated, nil).MinTimes(1)
	tm.repairer.EXPECT().Repair(gomock.Any(), both).Return(repairer.OutcomeNoop, nil).MinTimes(1)
	tm.repairer.EXPECT().Repair(gomock.Any(), extra).Return(repairer.OutcomeNoop, errors.New("timeout")).MinTimes(1)
	tm.materializer.EXPECT().Refresh(gomock.Any()).Return(nil).MinTimes(1)

	runFor(t, tm.sweeper, 30*time.Millisecond)
}

func TestLikeAggregateSweeper_RefreshRetried(t *testing.T) {
	tm := setupTestSweeper(t)
	expectClock(tm)

	gomock.InOrder(
		tm.materializer.EXPECT().Refresh(gomock.Any()).Return(errors.New("store unavailable")).Times(2),
		tm.materializer.EXPECT().Refresh(gomock.Any()).Return(nil).MinTimes(1),
	)

	runFor(t, tm.sweeper, 30*time.Millisecond)
}

func TestLikeAggregateSweeper_QueryError_HandledGracefully(t *testing.T) {
	err := logger.Initialize(logger.Config{Debug: true})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	clock := mocks.NewMockClock(ctrl)
	tm := &testSweeperMocks{ctrl: ctrl, clock: clock}
	expectClock(tm)

	st.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, errors.New("database error")).MinTimes(1)

	// Neither repairs nor refreshes run without keys
	s := sweeper.NewLikeAggregateSweeper(&sweeper.LikeAggregateSweeperConfig{}, st,
		mocks.NewMockRepairer(ctrl), mocks.NewMockMaterializer(ctrl), clock)

	runFor(t, s, 30*time.Millisecond)
}

func TestLikeAggregateSweeper_StopBeforeStart(t *testing.T) {
	tm := setupTestSweeper(t)

	err := tm.sweeper.Stop(context.Background())
	assert.NoError(t, err)
}

func TestLikeAggregateSweeper_DoubleStart(t *testing.T) {
	tm := setupTestSweeper(t)
	expectClock(tm)

	tm.materializer.EXPECT().Refresh(gomock.Any()).Return(nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan error, 1)
	go func() {
		started <- tm.sweeper.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	err := tm.sweeper.Start(ctx)
	assert.Error(t, err)

	cancel()
	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
