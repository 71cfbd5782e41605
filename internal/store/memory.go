package store

import (
	"context"
	"sync"

	"github.com/feral-file/ff-media-ledger/internal/messaging"
)

type memoryStore struct {
	mu       sync.RWMutex
	docs     map[string]Fields
	notifier messaging.Notifier
}

// NewMemoryStore creates a store held in process memory.
// Batches are serialized by one mutex. A nil notifier means a private local one.
func NewMemoryStore(notifier messaging.Notifier) Store {
	if notifier == nil {
		notifier = messaging.NewLocalNotifier()
	}
	return &memoryStore{
		docs:     make(map[string]Fields),
		notifier: notifier,
	}
}

func (s *memoryStore) Get(_ context.Context, path string) (*Document, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	return &Document{Path: path, Data: deepCopyFields(data)}, nil
}

func (s *memoryStore) Set(ctx context.Context, path string, fields Fields, merge bool) error {
	return s.CommitBatch(ctx, []Op{SetOp(path, fields, merge)})
}

func (s *memoryStore) Delete(ctx context.Context, path string) error {
	return s.CommitBatch(ctx, []Op{DeleteOp(path)})
}

func (s *memoryStore) AtomicIncrement(ctx context.Context, path, field string, delta int64) error {
	return s.CommitBatch(ctx, []Op{IncrementOp(path, field, delta, false)})
}

func (s *memoryStore) CommitBatch(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if err := validateOps(ops); err != nil {
		return err
	}

	s.mu.Lock()
	writes, err := applyOps(ops, func(path string) (Fields, bool, error) {
		data, ok := s.docs[path]
		return data, ok, nil
	})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for _, w := range writes {
		if w.Deleted {
			delete(s.docs, w.Path)
			continue
		}
		s.docs[w.Path] = w.Data
	}
	s.mu.Unlock()

	publishChanges(ctx, s.notifier, writes)
	return nil
}

func (s *memoryStore) Query(_ context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	s.mu.RLock()
	docs := make([]Document, 0)
	for path, data := range s.docs {
		if CollectionMatches(q.Collection, CollectionOf(path)) {
			docs = append(docs, Document{Path: path, Data: deepCopyFields(data)})
		}
	}
	s.mu.RUnlock()

	return applyQuery(docs, q), nil
}

func (s *memoryStore) Subscribe(ctx context.Context, q Query, onChange func([]Document)) (func(), error) {
	return watch(ctx, s.notifier, q, s.Query, onChange)
}

func (s *memoryStore) Close() error {
	return nil
}

func deepCopyFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return map[string]interface{}(deepCopyFields(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = deepCopyValue(t[i])
		}
		return out
	default:
		return v
	}
}
