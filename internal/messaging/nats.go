package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/feral-file/ff-media-ledger/internal/adapter"
	"github.com/feral-file/ff-media-ledger/internal/logger"
)

// NATSConfig holds the configuration for the NATS connection
type NATSConfig struct {
	URL            string
	Subject        string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type natsNotifier struct {
	nc       adapter.NatsConn
	sub      adapter.NatsSubscription
	subject  string
	json     adapter.JSON
	handlers *handlerSet
}

// NewNATSNotifier connects to NATS and relays change events over core pub/sub
func NewNATSNotifier(cfg NATSConfig, connector adapter.NatsConnector, jsonAdapter adapter.JSON) (Notifier, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := connector.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return newNATSNotifier(nc, cfg.Subject, jsonAdapter)
}

func newNATSNotifier(nc adapter.NatsConn, subject string, jsonAdapter adapter.JSON) (Notifier, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	n := &natsNotifier{
		nc:       nc,
		subject:  subject,
		json:     jsonAdapter,
		handlers: newHandlerSet(),
	}

	sub, err := nc.Subscribe(subject, n.receive)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	n.sub = sub

	return n, nil
}

// NewNATSNotifierFromConn wraps an established connection, mainly for tests
func NewNATSNotifierFromConn(nc adapter.NatsConn, subject string, jsonAdapter adapter.JSON) (Notifier, error) {
	return newNATSNotifier(nc, subject, jsonAdapter)
}

func (n *natsNotifier) receive(data []byte) {
	var event ChangeEvent
	if err := n.json.Unmarshal(data, &event); err != nil {
		logger.Warn("Dropping malformed change event", zap.Error(err), zap.String("subject", n.subject))
		return
	}
	n.handlers.dispatch(event)
}

// Publish sends the event to the subject; this process receives it back like any other subscriber
func (n *natsNotifier) Publish(_ context.Context, event ChangeEvent) error {
	if n.handlers.isClosed() {
		return ErrNotifierClosed
	}

	data, err := n.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	return nil
}

func (n *natsNotifier) Subscribe(handler ChangeHandler) (func(), error) {
	return n.handlers.add(handler)
}

// Close drains the connection so in-flight events are delivered before it closes
func (n *natsNotifier) Close() error {
	if n.handlers.isClosed() {
		return nil
	}
	n.handlers.close()

	if n.sub != nil {
		if err := n.sub.Unsubscribe(); err != nil {
			logger.Warn("Failed to unsubscribe from NATS", zap.Error(err))
		}
	}
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
