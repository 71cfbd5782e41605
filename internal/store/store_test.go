package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-media-ledger/internal/domain"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func buildLikeFields(fid int64, key string, likedAt int64) Fields {
	return Fields{
		FieldFID:      fid,
		FieldMediaKey: key,
		FieldLikedAt:  likedAt,
		FieldNFT:      map[string]interface{}{"name": "track " + key},
	}
}

func paths(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Path
	}
	return out
}

// =============================================================================
// Test: Get / Set / Delete
// =============================================================================

func testGetSetDelete(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing document returns nil", func(t *testing.T) {
		doc, err := store.Get(ctx, "global_likes/missing")
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("set replaces and merge keeps other fields", func(t *testing.T) {
		path := "global_likes/a"
		require.NoError(t, store.Set(ctx, path, Fields{"likeCount": 1, "mediaKey": "a"}, false))

		doc, err := store.Get(ctx, path)
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, path, doc.Path)
		assert.Equal(t, "a", doc.ID())
		assert.Equal(t, float64(1), doc.Data["likeCount"])

		require.NoError(t, store.Set(ctx, path, Fields{"updatedAt": 10}, true))
		doc, err = store.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, float64(1), doc.Data["likeCount"])
		assert.Equal(t, float64(10), doc.Data["updatedAt"])

		require.NoError(t, store.Set(ctx, path, Fields{"mediaKey": "a"}, false))
		doc, err = store.Get(ctx, path)
		require.NoError(t, err)
		assert.NotContains(t, doc.Data, "likeCount")
	})

	t.Run("nested values round trip", func(t *testing.T) {
		path := "users/1/likes/k"
		require.NoError(t, store.Set(ctx, path, buildLikeFields(1, "k", 5), false))

		doc, err := store.Get(ctx, path)
		require.NoError(t, err)
		nft, ok := doc.Data[FieldNFT].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "track k", nft["name"])
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		path := "global_likes/b"
		require.NoError(t, store.Set(ctx, path, Fields{"likeCount": 1}, false))
		require.NoError(t, store.Delete(ctx, path))
		require.NoError(t, store.Delete(ctx, path))

		doc, err := store.Get(ctx, path)
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("invalid paths are rejected", func(t *testing.T) {
		_, err := store.Get(ctx, "global_likes")
		assert.ErrorIs(t, err, ErrInvalidPath)
		assert.ErrorIs(t, store.Set(ctx, "users//likes/x", Fields{}, false), ErrInvalidPath)
		assert.ErrorIs(t, store.Delete(ctx, "users/*/likes/x"), ErrInvalidPath)
	})
}

// =============================================================================
// Test: AtomicIncrement
// =============================================================================

func testAtomicIncrement(t *testing.T, store Store) {
	ctx := context.Background()
	path := "global_plays/x"

	require.NoError(t, store.AtomicIncrement(ctx, path, FieldPlayCount, 1))
	require.NoError(t, store.AtomicIncrement(ctx, path, FieldPlayCount, 2))

	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, float64(3), doc.Data[FieldPlayCount])

	// Floored at zero
	require.NoError(t, store.AtomicIncrement(ctx, path, FieldPlayCount, -10))
	doc, err = store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, float64(0), doc.Data[FieldPlayCount])
}

func testConcurrentIncrements(t *testing.T, store Store) {
	ctx := context.Background()
	path := "global_likes/concurrent"

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.CommitBatch(ctx, []Op{
				IncrementOp(path, FieldLikeCount, 1, true),
				SetOp(path, Fields{FieldMediaKey: "concurrent"}, true),
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, float64(20), doc.Data[FieldLikeCount])
}

// =============================================================================
// Test: CommitBatch
// =============================================================================

func testCommitBatch(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("all ops are applied", func(t *testing.T) {
		err := store.CommitBatch(ctx, []Op{
			SetOp("users/1/likes/m1", buildLikeFields(1, "m1", 100), false),
			SetOp("global_likes/m1", Fields{FieldMediaKey: "m1"}, true),
			IncrementOp("global_likes/m1", FieldLikeCount, 1, true),
		})
		require.NoError(t, err)

		like, err := store.Get(ctx, "users/1/likes/m1")
		require.NoError(t, err)
		require.NotNil(t, like)

		agg, err := store.Get(ctx, "global_likes/m1")
		require.NoError(t, err)
		require.NotNil(t, agg)
		assert.Equal(t, float64(1), agg.Data[FieldLikeCount])
		assert.Equal(t, "m1", agg.Data[FieldMediaKey])
	})

	t.Run("decrement to zero deletes when requested", func(t *testing.T) {
		err := store.CommitBatch(ctx, []Op{
			DeleteOp("users/1/likes/m1"),
			IncrementOp("global_likes/m1", FieldLikeCount, -1, true),
		})
		require.NoError(t, err)

		agg, err := store.Get(ctx, "global_likes/m1")
		require.NoError(t, err)
		assert.Nil(t, agg)

		// A decrement on a missing aggregate creates nothing
		require.NoError(t, store.CommitBatch(ctx, []Op{IncrementOp("global_likes/m1", FieldLikeCount, -1, true)}))
		agg, err = store.Get(ctx, "global_likes/m1")
		require.NoError(t, err)
		assert.Nil(t, agg)
	})

	t.Run("failed batch leaves no partial writes", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "global_likes/text", Fields{FieldLikeCount: "many"}, false))

		err := store.CommitBatch(ctx, []Op{
			SetOp("users/2/likes/text", buildLikeFields(2, "text", 1), false),
			IncrementOp("global_likes/text", FieldLikeCount, 1, true),
		})
		require.ErrorIs(t, err, ErrInvalidOp)

		like, err := store.Get(ctx, "users/2/likes/text")
		require.NoError(t, err)
		assert.Nil(t, like)
	})

	t.Run("invalid op is rejected before any write", func(t *testing.T) {
		err := store.CommitBatch(ctx, []Op{
			SetOp("users/3/likes/z", buildLikeFields(3, "z", 1), false),
			{Kind: "rename", Path: "users/3/likes/z"},
		})
		require.ErrorIs(t, err, ErrInvalidOp)

		like, err := store.Get(ctx, "users/3/likes/z")
		require.NoError(t, err)
		assert.Nil(t, like)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, store.CommitBatch(ctx, nil))
	})
}

// =============================================================================
// Test: Query
// =============================================================================

func testQuery(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.CommitBatch(ctx, []Op{
		SetOp("users/1/likes/a", buildLikeFields(1, "a", 300), false),
		SetOp("users/1/likes/b", buildLikeFields(1, "b", 100), false),
		SetOp("users/1/likes/c", buildLikeFields(1, "c", 200), false),
		SetOp("users/2/likes/a", buildLikeFields(2, "a", 50), false),
		SetOp("users/2/plays/p1", Fields{FieldMediaKey: "a", FieldPlayedAt: 1}, false),
		SetOp("global_plays/a", Fields{FieldPlayCount: 10}, false),
		SetOp("global_plays/b", Fields{FieldPlayCount: 7}, false),
		SetOp("global_plays/c", Fields{FieldPlayCount: 7}, false),
		SetOp("global_plays/d", Fields{FieldPlayCount: 5}, false),
		SetOp("global_plays/e", Fields{FieldMediaKey: "e"}, false),
	}))

	t.Run("collection scope", func(t *testing.T) {
		docs, err := store.Query(ctx, Query{Collection: "users/1/likes"})
		require.NoError(t, err)
		assert.Equal(t, []string{"users/1/likes/a", "users/1/likes/b", "users/1/likes/c"}, paths(docs))
	})

	t.Run("order by descending", func(t *testing.T) {
		docs, err := store.Query(ctx, Query{Collection: "users/1/likes"}.Order(FieldLikedAt, true))
		require.NoError(t, err)
		assert.Equal(t, []string{"users/1/likes/a", "users/1/likes/c", "users/1/likes/b"}, paths(docs))
	})

	t.Run("collection group with filter", func(t *testing.T) {
		docs, err := store.Query(ctx, Query{Collection: LikesGroup}.Where(FieldMediaKey, OpEqual, "a"))
		require.NoError(t, err)
		assert.Equal(t, []string{"users/1/likes/a", "users/2/likes/a"}, paths(docs))
	})

	t.Run("filter with named numeric type", func(t *testing.T) {
		docs, err := store.Query(ctx, Query{Collection: LikesGroup}.Where(FieldFID, OpEqual, domain.FID(2)))
		require.NoError(t, err)
		assert.Equal(t, []string{"users/2/likes/a"}, paths(docs))
	})

	t.Run("range filters", func(t *testing.T) {
		docs, err := store.Query(ctx, Query{Collection: "users/1/likes"}.
			Where(FieldLikedAt, OpGreater, 100).
			Where(FieldLikedAt, OpLessOrEqual, 300))
		require.NoError(t, err)
		assert.Equal(t, []string{"users/1/likes/a", "users/1/likes/c"}, paths(docs))

		docs, err = store.Query(ctx, Query{Collection: "users/1/likes"}.Where(FieldMediaKey, OpNotEqual, "a"))
		require.NoError(t, err)
		assert.Equal(t, []string{"users/1/likes/b", "users/1/likes/c"}, paths(docs))
	})

	t.Run("top n with ties broken by path and missing fields excluded", func(t *testing.T) {
		docs, err := store.Query(ctx, Query{Collection: CollectionGlobalPlays}.Order(FieldPlayCount, true).WithLimit(3))
		require.NoError(t, err)
		assert.Equal(t, []string{"global_plays/a", "global_plays/b", "global_plays/c"}, paths(docs))

		docs, err = store.Query(ctx, Query{Collection: CollectionGlobalPlays}.Order(FieldPlayCount, false))
		require.NoError(t, err)
		assert.Len(t, docs, 4)
	})

	t.Run("id prefix", func(t *testing.T) {
		require.NoError(t, store.CommitBatch(ctx, []Op{
			SetOp("user_likes/5-0xabc-1", Fields{FieldNFT: map[string]interface{}{"tokenId": "1"}}, false),
			SetOp("user_likes/5-0xabc-2", Fields{FieldLegacyUserID: 5}, false),
			SetOp("user_likes/51-0xabc-1", Fields{FieldLegacyUserID: 51}, false),
		}))

		docs, err := store.Query(ctx, Query{Collection: CollectionLegacyUserLikes}.WithIDPrefix("5-"))
		require.NoError(t, err)
		assert.Equal(t, []string{"user_likes/5-0xabc-1", "user_likes/5-0xabc-2"}, paths(docs))

		docs, err = store.Query(ctx, Query{Collection: LikesGroup}.WithIDPrefix("b"))
		require.NoError(t, err)
		assert.Equal(t, []string{"users/1/likes/b"}, paths(docs))
	})

	t.Run("invalid queries", func(t *testing.T) {
		_, err := store.Query(ctx, Query{Collection: "users/1"})
		assert.ErrorIs(t, err, ErrInvalidPath)
		_, err = store.Query(ctx, Query{Collection: "users/1/likes"}.WithIDPrefix("a/b"))
		assert.ErrorIs(t, err, ErrInvalidQuery)
		_, err = store.Query(ctx, Query{Collection: "*/1/likes"})
		assert.ErrorIs(t, err, ErrInvalidPath)
		_, err = store.Query(ctx, Query{Collection: "users/1/likes"}.Where("bad field", OpEqual, 1))
		assert.ErrorIs(t, err, ErrInvalidQuery)
		_, err = store.Query(ctx, Query{Collection: "users/1/likes"}.Where(FieldFID, "~", 1))
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}

// =============================================================================
// Test: Subscribe
// =============================================================================

func testSubscribe(t *testing.T, store Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var deliveries [][]string
	latest := func() []string {
		mu.Lock()
		defer mu.Unlock()
		if len(deliveries) == 0 {
			return nil
		}
		return deliveries[len(deliveries)-1]
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(deliveries)
	}

	require.NoError(t, store.Set(ctx, "users/5/likes/x", buildLikeFields(5, "x", 1), false))

	unsubscribe, err := store.Subscribe(ctx, Query{Collection: "users/5/likes"}.Order(FieldLikedAt, true), func(docs []Document) {
		mu.Lock()
		deliveries = append(deliveries, paths(docs))
		mu.Unlock()
	})
	require.NoError(t, err)

	// The current state is delivered before Subscribe returns
	require.Equal(t, 1, count())
	assert.Equal(t, []string{"users/5/likes/x"}, latest())

	require.NoError(t, store.Set(ctx, "users/5/likes/y", buildLikeFields(5, "y", 2), false))
	require.Eventually(t, func() bool {
		return fmt.Sprint(latest()) == fmt.Sprint([]string{"users/5/likes/y", "users/5/likes/x"})
	}, 5*time.Second, 10*time.Millisecond)

	// Changes elsewhere do not trigger a delivery
	before := count()
	require.NoError(t, store.Set(ctx, "users/6/likes/x", buildLikeFields(6, "x", 1), false))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, count())

	unsubscribe()
	unsubscribe()

	before = count()
	require.NoError(t, store.Delete(ctx, "users/5/likes/x"))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, count())
}

func testSubscribeCollectionGroup(t *testing.T, store Store) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var last []Document
	_, err := store.Subscribe(ctx, Query{Collection: LikesGroup}.Where(FieldMediaKey, OpEqual, "g"), func(docs []Document) {
		mu.Lock()
		last = docs
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "users/7/likes/g", buildLikeFields(7, "g", 1), false))
	require.NoError(t, store.Set(ctx, "users/8/likes/g", buildLikeFields(8, "g", 2), false))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 2
	}, 5*time.Second, 10*time.Millisecond)

	// Cancelling the context ends the subscription
	cancel()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, store.Delete(context.Background(), "users/8/likes/g"))
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, last, 2)
}

// RunStoreTests runs the conformance suite every backend must pass
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"GetSetDelete", testGetSetDelete},
		{"AtomicIncrement", testAtomicIncrement},
		{"ConcurrentIncrements", testConcurrentIncrements},
		{"CommitBatch", testCommitBatch},
		{"Query", testQuery},
		{"Subscribe", testSubscribe},
		{"SubscribeCollectionGroup", testSubscribeCollectionGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
