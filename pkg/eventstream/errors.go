package eventstream

import "errors"

// ErrNilEvent indicates a nil recorded event was provided to a publisher.
var ErrNilEvent = errors.New("nil recorded event")

// ErrClosed is returned when publishing to a publisher that has been closed.
var ErrClosed = errors.New("publisher closed")
