package messaging

import "context"

type localNotifier struct {
	handlers *handlerSet
}

// NewLocalNotifier creates a notifier that only reaches subscribers in this process
func NewLocalNotifier() Notifier {
	return &localNotifier{handlers: newHandlerSet()}
}

// Publish delivers the event synchronously to every handler
func (n *localNotifier) Publish(_ context.Context, event ChangeEvent) error {
	if n.handlers.isClosed() {
		return ErrNotifierClosed
	}
	n.handlers.dispatch(event)
	return nil
}

func (n *localNotifier) Subscribe(handler ChangeHandler) (func(), error) {
	return n.handlers.add(handler)
}

func (n *localNotifier) Close() error {
	n.handlers.close()
	return nil
}
