package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/logger"
	"github.com/feral-file/ff-media-ledger/internal/messaging"
)

type queryFunc func(ctx context.Context, q Query) ([]Document, error)

// watch runs the query now and again whenever the notifier reports a change in a matching collection.
// Deliveries are sequential; bursts of changes collapse into one re-run.
func watch(ctx context.Context, notifier messaging.Notifier, q Query, run queryFunc, onChange func([]Document)) (func(), error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	signal := make(chan struct{}, 1)
	done := make(chan struct{})

	unsubscribe, err := notifier.Subscribe(func(event messaging.ChangeEvent) {
		for _, c := range event.Collections {
			if CollectionMatches(q.Collection, c) {
				select {
				case signal <- struct{}{}:
				default:
				}
				return
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			unsubscribe()
			close(done)
		})
	}

	docs, err := run(ctx, q)
	if err != nil {
		stop()
		return nil, err
	}
	onChange(docs)

	go func() {
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case <-done:
				return
			case <-signal:
			}

			docs, err := run(ctx, q)
			if err != nil {
				logger.WarnCtx(ctx, "Failed to refresh subscription", zap.Error(err), zap.String("collection", q.Collection))
				continue
			}

			select {
			case <-done:
				return
			default:
				onChange(docs)
			}
		}
	}()

	return stop, nil
}

// publishChanges announces committed writes. The commit already succeeded, so failures are only logged.
func publishChanges(ctx context.Context, notifier messaging.Notifier, writes []write) {
	if notifier == nil || len(writes) == 0 {
		return
	}

	event := messaging.ChangeEvent{Collections: touchedCollections(writes)}
	if err := notifier.Publish(ctx, event); err != nil {
		logger.WarnCtx(ctx, "Failed to publish change event", zap.Error(err), zap.Strings("collections", event.Collections))
	}
}
