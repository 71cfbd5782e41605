package playtracker

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
)

// ErrSessionNotFound is returned for unknown or expired play sessions
var ErrSessionNotFound = errors.New("play session not found")

// DefaultSessionTTL is how long an untouched play session is kept
const DefaultSessionTTL = 30 * time.Minute

type registryEntry struct {
	tracker  *Tracker
	lastSeen time.Time
}

// SessionRegistry hands out play-session handles to remote clients.
// Sessions live in memory and expire after the TTL without activity.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	recorder PlayRecorder
	clock    adapter.Clock
	ttl      time.Duration
}

// NewSessionRegistry creates a registry whose trackers record through the recorder
func NewSessionRegistry(recorder PlayRecorder, clock adapter.Clock, ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRegistry{
		sessions: make(map[string]*registryEntry),
		recorder: recorder,
		clock:    clock,
		ttl:      ttl,
	}
}

// Create opens a new idle session and returns its id
func (r *SessionRegistry) Create() (string, *Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.pruneLocked(now)

	id := uuid.NewString()
	tracker := NewTracker(r.recorder)
	r.sessions[id] = &registryEntry{tracker: tracker, lastSeen: now}
	return id, tracker
}

// Get returns the tracker of a live session and extends its lifetime
func (r *SessionRegistry) Get(id string) (*Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if now.Sub(entry.lastSeen) > r.ttl {
		delete(r.sessions, id)
		return nil, ErrSessionNotFound
	}

	entry.lastSeen = now
	return entry.tracker, nil
}

// Delete closes a session
func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Prune drops expired sessions and returns how many were removed
func (r *SessionRegistry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked(r.clock.Now())
}

// Len returns the number of sessions held, expired or not
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) pruneLocked(now time.Time) int {
	removed := 0
	for id, entry := range r.sessions {
		if now.Sub(entry.lastSeen) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
