package ledger

import (
	"sync"

	"github.com/feral-file/ff-media-ledger/internal/domain"
)

// LikeObserver is told the new like state of a MediaKey after a committed toggle
type LikeObserver func(liked bool)

// observers broadcasts like state changes to in-process listeners, keyed by MediaKey
type observers struct {
	mu     sync.RWMutex
	nextID uint64
	byKey  map[domain.MediaKey]map[uint64]LikeObserver
}

func newObservers() *observers {
	return &observers{byKey: make(map[domain.MediaKey]map[uint64]LikeObserver)}
}

func (o *observers) add(key domain.MediaKey, fn LikeObserver) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	if o.byKey[key] == nil {
		o.byKey[key] = make(map[uint64]LikeObserver)
	}
	o.byKey[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.byKey[key], id)
			if len(o.byKey[key]) == 0 {
				delete(o.byKey, key)
			}
		})
	}
}

// broadcast calls the observers outside the lock so they may unsubscribe themselves
func (o *observers) broadcast(key domain.MediaKey, liked bool) {
	o.mu.RLock()
	fns := make([]LikeObserver, 0, len(o.byKey[key]))
	for _, fn := range o.byKey[key] {
		fns = append(fns, fn)
	}
	o.mu.RUnlock()

	for _, fn := range fns {
		fn(liked)
	}
}
