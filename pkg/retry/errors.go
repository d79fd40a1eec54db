package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// StatusError carries the HTTP status of a failed response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status code.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// statusCoder matches StatusError and SDK errors that expose a status code.
type statusCoder interface {
	StatusCode() int
}

// httpStatusCoder matches Azure SDK response errors.
type httpStatusCoder interface {
	HTTPStatusCode() int
}

// IsTransient reports whether err is worth retrying: 408, 429, and 5xx
// statuses, network timeouts, and refused or reset connections.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return transientStatus(sc.StatusCode())
	}
	var hc httpStatusCoder
	if errors.As(err, &hc) {
		return transientStatus(hc.HTTPStatusCode())
	}

	return transientNetwork(err)
}

func transientStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500 && code < 600:
		return code != http.StatusNotImplemented
	default:
		return false
	}
}

func transientNetwork(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection reset", "connection refused", "too many requests", "service unavailable"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
