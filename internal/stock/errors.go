package stock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// TransportError reports that a page could not be reached at all: DNS,
// connection, timeout or cancellation failures.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or network timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// StatusError reports a response with a non-2xx HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// ErrorKind classifies a fetch error for logs and metric labels.
func ErrorKind(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return "status"
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Timeout() {
			return "timeout"
		}
		return "transport"
	}
	return "other"
}
