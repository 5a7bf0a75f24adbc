package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned for calls issued without a live
	// connection, and delivered to calls stranded by a disconnect.
	ErrNotConnected = errors.New("client: not connected")
	// ErrTimeout is returned when no acknowledgment arrives within the
	// call deadline.
	ErrTimeout = errors.New("client: call timed out")
	// ErrConnectFailed is returned when the dial (including backoff
	// retries) could not establish a connection.
	ErrConnectFailed = errors.New("client: connection failed")
)

// APIError is a domain error returned by the server for one call. It is
// never retried automatically; it reports a stale or invalid intent.
type APIError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}
