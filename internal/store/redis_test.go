//go:build integration

package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/messaging"
)

var (
	testRedis      redis.UniversalClient
	redisContainer testcontainers.Container
)

// setupRedis starts a Redis container unless TEST_REDIS_ADDR points at an external server
func setupRedis(ctx context.Context) error {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		var err error
		redisContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
			Started: true,
		})
		if err != nil {
			return fmt.Errorf("failed to start Redis container: %w", err)
		}

		host, err := redisContainer.Host(ctx)
		if err != nil {
			return fmt.Errorf("failed to get Redis host: %w", err)
		}
		port, err := redisContainer.MappedPort(ctx, "6379/tcp")
		if err != nil {
			return fmt.Errorf("failed to get Redis port: %w", err)
		}
		addr = fmt.Sprintf("%s:%s", host, port.Port())

		fmt.Printf("Started Redis container\n")
	}

	testRedis = redis.NewClient(&redis.Options{Addr: addr})
	return testRedis.Ping(ctx).Err()
}

func teardownRedis(ctx context.Context) {
	if testRedis != nil {
		_ = testRedis.Close()
	}
	if redisContainer != nil {
		if err := redisContainer.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate Redis container: %v\n", err)
		}
	}
}

func initRedisTestDB(t *testing.T) Store {
	require.NoError(t, testRedis.FlushDB(context.Background()).Err())
	return NewRedisStore(testRedis, "", messaging.NewLocalNotifier())
}

func cleanupRedisTestDB(t *testing.T) {
	require.NoError(t, testRedis.FlushDB(context.Background()).Err())
}

// TestRedisStore runs all store tests against Redis
func TestRedisStore(t *testing.T) {
	if testRedis == nil {
		t.Fatal("Test redis not initialized")
	}

	RunStoreTests(t, initRedisTestDB, cleanupRedisTestDB)
}

// TestRedisStore_CrossProcessSubscription checks that a write through one process reaches
// subscribers of another through Redis pub/sub
func TestRedisStore_CrossProcessSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, testRedis.FlushDB(ctx).Err())

	notifierA, err := messaging.NewRedisNotifier(ctx, testRedis, "ledger.test", adapter.NewJSON())
	require.NoError(t, err)
	defer func() { _ = notifierA.Close() }()
	notifierB, err := messaging.NewRedisNotifier(ctx, testRedis, "ledger.test", adapter.NewJSON())
	require.NoError(t, err)
	defer func() { _ = notifierB.Close() }()

	writer := NewRedisStore(testRedis, "", notifierA)
	reader := NewRedisStore(testRedis, "", notifierB)

	updates := make(chan []Document, 10)
	unsubscribe, err := reader.Subscribe(ctx, Query{Collection: "global_likes"}, func(docs []Document) {
		updates <- docs
	})
	require.NoError(t, err)
	defer unsubscribe()

	initial := <-updates
	require.Empty(t, initial)

	require.NoError(t, writer.Set(ctx, "global_likes/abc", Fields{"likeCount": int64(1)}, false))

	select {
	case docs := <-updates:
		require.Len(t, docs, 1)
		require.Equal(t, "global_likes/abc", docs[0].Path)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not receive the change")
	}
}
