package linestream

import "errors"

// ErrLineTooLong is returned by Reader.Next when WithMaxLineSize is set and a
// line grows past the limit before its newline arrives.
var ErrLineTooLong = errors.New("linestream: line exceeds maximum size")
