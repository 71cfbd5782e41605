package playtracker_test

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-media-ledger/internal/mocks"
	"github.com/feral-file/ff-media-ledger/internal/playtracker"
)

func TestSessionRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	recorder := mocks.NewMockPlayRecorder(ctrl)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	registry := playtracker.NewSessionRegistry(recorder, clock, 10*time.Minute)

	id, tracker := registry.Create()
	require.NotEmpty(t, id)
	assert.Equal(t, playtracker.Idle, tracker.State())

	got, err := registry.Get(id)
	require.NoError(t, err)
	assert.Same(t, tracker, got)

	_, err = registry.Get("unknown")
	assert.ErrorIs(t, err, playtracker.ErrSessionNotFound)

	// Activity extends the lifetime
	now = now.Add(8 * time.Minute)
	_, err = registry.Get(id)
	require.NoError(t, err)
	now = now.Add(8 * time.Minute)
	_, err = registry.Get(id)
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	_, err = registry.Get(id)
	assert.ErrorIs(t, err, playtracker.ErrSessionNotFound)
	assert.Equal(t, 0, registry.Len())
}

func TestSessionRegistry_Prune(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().DoAndReturn(func() time.Time { return now }).AnyTimes()

	registry := playtracker.NewSessionRegistry(mocks.NewMockPlayRecorder(ctrl), clock, 0)

	first, _ := registry.Create()
	second, _ := registry.Create()
	assert.NotEqual(t, first, second)

	now = now.Add(playtracker.DefaultSessionTTL / 2)
	third, _ := registry.Create()

	now = now.Add(playtracker.DefaultSessionTTL/2 + time.Second)
	assert.Equal(t, 2, registry.Prune())
	assert.Equal(t, 1, registry.Len())

	_, err := registry.Get(third)
	require.NoError(t, err)

	registry.Delete(third)
	assert.Equal(t, 0, registry.Len())
}
