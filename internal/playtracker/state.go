package playtracker

import (
	"github.com/feral-file/ff-media-ledger/internal/domain"
)

// State is the position of a play session in the counting state machine
type State int

const (
	// Idle holds no media
	Idle State = iota
	// Armed waits for progress to cross the threshold
	Armed
	// Counted has recorded its play; further progress is ignored until a reset
	Counted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Counted:
		return "counted"
	default:
		return "unknown"
	}
}

// Session is the value the transition functions operate on
type Session struct {
	State    State
	MediaKey domain.MediaKey
	FID      domain.FID
	NFT      domain.NFTSnapshot
}

// Holds reports whether the session is tracking the key for the user
func (s Session) Holds(key domain.MediaKey, fid domain.FID) bool {
	return s.State != Idle && s.MediaKey == key && s.FID == fid
}

// Arm starts a new arming for the key
func Arm(s Session, key domain.MediaKey, fid domain.FID, snapshot domain.NFTSnapshot) Session {
	return Session{State: Armed, MediaKey: key, FID: fid, NFT: snapshot}
}

// Advance applies a progress update. fire is true exactly once per arming,
// on the update that moves the session from Armed to Counted.
func Advance(s Session, currentTime, duration float64) (Session, bool) {
	if s.State != Armed {
		return s, false
	}
	if !ReachedThreshold(currentTime, duration) {
		return s, false
	}
	s.State = Counted
	return s, true
}

// Reset returns the session to Idle
func Reset(Session) Session {
	return Session{State: Idle}
}

// ReachedThreshold reports whether playback progressed far enough to count.
// A non-positive or unknown duration never counts.
func ReachedThreshold(currentTime, duration float64) bool {
	if !(duration > 0) {
		return false
	}
	return currentTime/duration >= domain.PLAY_COUNT_THRESHOLD
}
