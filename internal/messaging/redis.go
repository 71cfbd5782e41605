package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/logger"
)

type redisNotifier struct {
	client   redis.UniversalClient
	pubsub   *redis.PubSub
	channel  string
	json     adapter.JSON
	handlers *handlerSet
	wg       sync.WaitGroup
}

// NewRedisNotifier relays change events over Redis pub/sub
func NewRedisNotifier(ctx context.Context, client redis.UniversalClient, channel string, jsonAdapter adapter.JSON) (Notifier, error) {
	if channel == "" {
		channel = DefaultSubject
	}

	pubsub := client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so events published right after are not missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	n := &redisNotifier{
		client:   client,
		pubsub:   pubsub,
		channel:  channel,
		json:     jsonAdapter,
		handlers: newHandlerSet(),
	}

	n.wg.Add(1)
	go n.loop(pubsub.Channel())

	return n, nil
}

func (n *redisNotifier) loop(messages <-chan *redis.Message) {
	defer n.wg.Done()

	for msg := range messages {
		var event ChangeEvent
		if err := n.json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logger.Warn("Dropping malformed change event", zap.Error(err), zap.String("channel", n.channel))
			continue
		}
		n.handlers.dispatch(event)
	}
}

func (n *redisNotifier) Publish(ctx context.Context, event ChangeEvent) error {
	if n.handlers.isClosed() {
		return ErrNotifierClosed
	}

	data, err := n.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (n *redisNotifier) Subscribe(handler ChangeHandler) (func(), error) {
	return n.handlers.add(handler)
}

// Close unsubscribes and waits for the receive loop to exit. The client is owned by the caller.
func (n *redisNotifier) Close() error {
	if n.handlers.isClosed() {
		return nil
	}
	n.handlers.close()

	err := n.pubsub.Close()
	n.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close redis subscription: %w", err)
	}
	return nil
}
