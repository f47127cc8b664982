package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// statusCoder is implemented by HTTP client errors that carry a status.
type statusCoder interface {
	HTTPStatus() int
}

// IsUpstreamFailure reports whether err means the upstream service is
// unhealthy: a 429 or 5xx answer, a server-side runtime error, a network
// failure or a query timeout. Caller cancellation and bad requests do not
// count.
func IsUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return IsUpstreamStatus(sc.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"runtime error",
		"connection reset by peer",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsUpstreamStatus reports whether an HTTP status indicates an overloaded
// or failing server.
func IsUpstreamStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
