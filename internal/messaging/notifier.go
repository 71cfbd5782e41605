package messaging

import (
	"context"
	"sync"
)

// DefaultSubject is the NATS subject and Redis channel change events travel on
const DefaultSubject = "ff-media-ledger.changes"

// ChangeEvent announces that documents in the listed collections were committed
type ChangeEvent struct {
	// Collections are concrete collection paths, e.g. "users/3/likes"
	Collections []string `json:"collections"`
	// Origin identifies the publishing process
	Origin string `json:"origin,omitempty"`
}

// ChangeHandler is called for every change event received
type ChangeHandler func(event ChangeEvent)

// Notifier fans change events out to every subscriber, locally or across processes
//
//go:generate mockgen -source=notifier.go -destination=../mocks/notifier.go -package=mocks -mock_names=Notifier=MockNotifier
type Notifier interface {
	// Publish announces a committed change
	Publish(ctx context.Context, event ChangeEvent) error
	// Subscribe registers a handler and returns a func that removes it
	Subscribe(handler ChangeHandler) (func(), error)
	// Close releases the underlying connection; handlers receive nothing afterwards
	Close() error
}

// handlerSet is the registry of local handlers shared by every notifier implementation
type handlerSet struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]ChangeHandler
	closed   bool
}

func newHandlerSet() *handlerSet {
	return &handlerSet{handlers: make(map[uint64]ChangeHandler)}
}

func (s *handlerSet) add(handler ChangeHandler) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrNotifierClosed
	}

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}, nil
}

func (s *handlerSet) dispatch(event ChangeEvent) {
	s.mu.RLock()
	handlers := make([]ChangeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

func (s *handlerSet) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handlers = make(map[uint64]ChangeHandler)
}

func (s *handlerSet) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
