package messaging

import "errors"

// ErrNotifierClosed is returned when publishing or subscribing on a closed notifier
var ErrNotifierClosed = errors.New("notifier closed")
