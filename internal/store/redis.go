package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/messaging"
)

// DefaultRedisPrefix keeps every key in one hash slot so batches can WATCH them together on a cluster
const DefaultRedisPrefix = "{ff-media-ledger}:"

const maxRedisTxRetries = 50

type redisStore struct {
	client   redis.UniversalClient
	prefix   string
	notifier messaging.Notifier
}

// NewRedisStore creates a store on Redis. Documents are JSON strings and
// collections are sets of paths. The client is owned by the caller.
func NewRedisStore(client redis.UniversalClient, prefix string, notifier messaging.Notifier) Store {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if notifier == nil {
		notifier = messaging.NewLocalNotifier()
	}
	return &redisStore{client: client, prefix: prefix, notifier: notifier}
}

func (s *redisStore) docKey(path string) string {
	return s.prefix + "doc:" + path
}

func (s *redisStore) collectionKey(collection string) string {
	return s.prefix + "col:" + collection
}

func (s *redisStore) groupKey(group string) string {
	return s.prefix + "grp:" + group
}

func (s *redisStore) Get(ctx context.Context, path string) (*Document, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, s.docKey(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, unavailable("get document", err)
	}

	data, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Data: data}, nil
}

func (s *redisStore) Set(ctx context.Context, path string, fields Fields, merge bool) error {
	return s.CommitBatch(ctx, []Op{SetOp(path, fields, merge)})
}

func (s *redisStore) Delete(ctx context.Context, path string) error {
	return s.CommitBatch(ctx, []Op{DeleteOp(path)})
}

func (s *redisStore) AtomicIncrement(ctx context.Context, path, field string, delta int64) error {
	return s.CommitBatch(ctx, []Op{IncrementOp(path, field, delta, false)})
}

// CommitBatch runs the batch as an optimistic WATCH/MULTI transaction, retried when a watched key changes
func (s *redisStore) CommitBatch(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if err := validateOps(ops); err != nil {
		return err
	}

	paths := uniquePaths(ops)
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = s.docKey(p)
	}

	var writes []write
	txf := func(tx *redis.Tx) error {
		values, err := tx.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}

		current := make(map[string]Fields, len(paths))
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			data, err := decodeFields([]byte(raw))
			if err != nil {
				return backoff.Permanent(err)
			}
			current[paths[i]] = data
		}

		writes, err = applyOps(ops, func(path string) (Fields, bool, error) {
			data, ok := current[path]
			return data, ok, nil
		})
		if err != nil {
			return backoff.Permanent(err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range writes {
				collection := CollectionOf(w.Path)
				if w.Deleted {
					pipe.Del(ctx, s.docKey(w.Path))
					pipe.SRem(ctx, s.collectionKey(collection), w.Path)
					pipe.SRem(ctx, s.groupKey(GroupOf(collection)), w.Path)
					continue
				}

				raw, err := json.Marshal(w.Data)
				if err != nil {
					return backoff.Permanent(fmt.Errorf("%w: %w", ErrInvalidOp, err))
				}
				pipe.Set(ctx, s.docKey(w.Path), raw, 0)
				pipe.SAdd(ctx, s.collectionKey(collection), w.Path)
				pipe.SAdd(ctx, s.groupKey(GroupOf(collection)), w.Path)
			}
			return nil
		})
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	err := backoff.RetryNotify(
		func() error {
			err := s.client.Watch(ctx, txf, keys...)
			if err == nil || errors.Is(err, redis.TxFailedErr) {
				return err
			}
			var permanent *backoff.PermanentError
			if errors.As(err, &permanent) {
				return err
			}
			return backoff.Permanent(unavailable("commit batch", err))
		},
		backoff.WithContext(backoff.WithMaxRetries(b, maxRedisTxRetries), ctx),
		func(err error, d time.Duration) {
			logger.DebugCtx(ctx, "Retrying conflicted redis batch", zap.Error(err), zap.Duration("backoff", d))
		},
	)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return unavailable("commit batch", err)
		}
		return err
	}

	publishChanges(ctx, s.notifier, writes)
	return nil
}

func (s *redisStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	setKey := s.collectionKey(q.Collection)
	if strings.Contains(q.Collection, "*") {
		setKey = s.groupKey(GroupOf(q.Collection))
	}

	paths, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, unavailable("list collection", err)
	}

	candidates := make([]string, 0, len(paths))
	for _, p := range paths {
		if CollectionMatches(q.Collection, CollectionOf(p)) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return []Document{}, nil
	}

	keys := make([]string, len(candidates))
	for i, p := range candidates {
		keys[i] = s.docKey(p)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("read documents", err)
	}

	docs := make([]Document, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Removed between SMEMBERS and MGET
			continue
		}
		data, err := decodeFields([]byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Path: candidates[i], Data: data})
	}

	return applyQuery(docs, q), nil
}

func (s *redisStore) Subscribe(ctx context.Context, q Query, onChange func([]Document)) (func(), error) {
	return watch(ctx, s.notifier, q, s.Query, onChange)
}

func (s *redisStore) Close() error {
	return nil
}
