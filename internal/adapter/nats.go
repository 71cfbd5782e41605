package adapter

import (
	"github.com/nats-io/nats.go"
)

//go:generate mockgen -source=nats.go -destination=../mocks/nats.go -package=mocks -mock_names=NatsConn=MockNatsConn,NatsSubscription=MockNatsSubscription,NatsConnector=MockNatsConnector

// NatsConn defines an interface for NATS connection operations to enable mocking
type NatsConn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte)) (NatsSubscription, error)
	Drain() error
	Close()
	LastError() error
	ConnectedUrl() string
}

// NatsSubscription defines an interface for a NATS subscription to enable mocking
type NatsSubscription interface {
	Unsubscribe() error
}

// NatsConnector defines an interface for creating NATS connections
type NatsConnector interface {
	Connect(url string, options ...nats.Option) (NatsConn, error)
}

// RealNatsConnector implements NatsConnector using the standard nats package
type RealNatsConnector struct{}

// NewNatsConnector creates a new real NATS connector
func NewNatsConnector() NatsConnector {
	return &RealNatsConnector{}
}

func (n *RealNatsConnector) Connect(url string, options ...nats.Option) (NatsConn, error) {
	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, err
	}
	return &natsConnAdapter{nc: nc}, nil
}

// natsConnAdapter adapts *nats.Conn to our NatsConn interface
// The handler only receives the payload so callers never depend on *nats.Msg
type natsConnAdapter struct {
	nc *nats.Conn
}

func (a *natsConnAdapter) Publish(subject string, data []byte) error {
	return a.nc.Publish(subject, data)
}

func (a *natsConnAdapter) Subscribe(subject string, handler func(data []byte)) (NatsSubscription, error) {
	sub, err := a.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (a *natsConnAdapter) Drain() error {
	return a.nc.Drain()
}

func (a *natsConnAdapter) Close() {
	a.nc.Close()
}

func (a *natsConnAdapter) LastError() error {
	return a.nc.LastError()
}

func (a *natsConnAdapter) ConnectedUrl() string {
	return a.nc.ConnectedUrl()
}
