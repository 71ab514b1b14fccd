package chatapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoBody is matched by the StreamChat error for a successful response that
// cannot carry a body, such as 204 No Content.
var ErrNoBody = errors.New("chat response has no body")

// StatusError is returned for any non-success HTTP response. It is produced
// before a single event is decoded.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string

	// msg is the caller specific rendering of the failure.
	msg string
	err error
}

func (e *StatusError) Error() string {
	return e.msg
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// statusText returns the reason phrase without the numeric code, e.g. "Bad Gateway".
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// newStreamStatusError renders "HTTP <code>: <body or status text>".
func newStreamStatusError(resp *http.Response, body string) *StatusError {
	detail := body
	if detail == "" {
		detail = statusText(resp)
	}

	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
		msg:        fmt.Sprintf("HTTP %d: %s", resp.StatusCode, detail),
	}
}

// newNoBodyError renders a bodiless success like a stream failure, e.g.
// "HTTP 204: No Content", and matches ErrNoBody.
func newNoBodyError(resp *http.Response) *StatusError {
	e := newStreamStatusError(resp, "")
	e.err = ErrNoBody
	return e
}

// newCallStatusError renders "<code> <status text> - <body>".
func newCallStatusError(resp *http.Response, body string) *StatusError {
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
		msg:        fmt.Sprintf("%d %s - %s", resp.StatusCode, statusText(resp), body),
	}
}

// newHealthStatusError renders "health check failed: <code>".
func newHealthStatusError(resp *http.Response, body string) *StatusError {
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
		msg:        fmt.Sprintf("health check failed: %d", resp.StatusCode),
	}
}
