package playtracker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/logger"
)

// Tracker gates play counts for one client play session. It is safe for concurrent use;
// updates of the same session are applied one at a time.
type Tracker struct {
	mu       sync.Mutex
	session  Session
	recorder PlayRecorder
}

// NewTracker creates an idle tracker that records counted plays through the recorder
func NewTracker(recorder PlayRecorder) *Tracker {
	return &Tracker{recorder: recorder}
}

// Start arms the session for the NFT. Starting the media the session already holds is a no-op,
// so a looping player cannot re-arm itself.
func (t *Tracker) Start(fid domain.FID, nft domain.NFT) error {
	if !fid.Valid() {
		return domain.ErrInvalidUser
	}
	key := nft.MediaKey()
	if key.Empty() {
		return domain.ErrInvalidIdentity
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session.Holds(key, fid) {
		return nil
	}
	t.session = Arm(t.session, key, fid, nft.Snapshot())
	return nil
}

// TrackProgress applies a progress update. A session that is idle or holds other media
// is re-armed for the key first. When the threshold is crossed the play is recorded;
// if recording fails the session stays armed and the error is returned.
func (t *Tracker) TrackProgress(ctx context.Context, key domain.MediaKey, fid domain.FID, currentTime, duration float64) error {
	if !fid.Valid() {
		return domain.ErrInvalidUser
	}
	if key.Empty() {
		return domain.ErrInvalidIdentity
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.session.Holds(key, fid) {
		t.session = Arm(t.session, key, fid, domain.NFTSnapshot{})
	}

	next, fire := Advance(t.session, currentTime, duration)
	if !fire {
		t.session = next
		return nil
	}

	if _, err := t.recorder.RecordPlay(ctx, fid, key, next.NFT); err != nil {
		logger.WarnCtx(ctx, "Failed to record play",
			zap.Error(err),
			zap.Int64("fid", int64(fid)),
			zap.String("mediaKey", key.String()))
		return fmt.Errorf("failed to record play: %w", err)
	}

	t.session = next
	return nil
}

// ResetForMedia returns the session to Idle when it holds the key
func (t *Tracker) ResetForMedia(key domain.MediaKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session.State != Idle && t.session.MediaKey == key {
		t.session = Reset(t.session)
	}
}

// State returns the current state of the session
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.State
}

// Session returns a copy of the session
func (t *Tracker) Session() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}
