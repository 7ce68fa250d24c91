// Package httperr classifies provider HTTP failures so that rate limits and
// server errors surface as *domain.TransientError.
package httperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// maxBodyInError bounds how much of a response body is quoted in an error.
const maxBodyInError = 512

// FromResponse returns nil for a 2xx status. 429 and 5xx become transient
// errors carrying any Retry-After hint; other statuses are permanent.
func FromResponse(op string, status int, header http.Header, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBodyInError {
		msg = msg[:maxBodyInError] + "..."
	}
	cause := fmt.Errorf("status %d: %s", status, msg)

	if status == http.StatusTooManyRequests || status >= 500 {
		return &domain.TransientError{
			Op:         op,
			StatusCode: status,
			RetryAfter: ParseRetryAfter(header.Get("Retry-After"), time.Now()),
			Err:        cause,
		}
	}
	return fmt.Errorf("%s: %w", op, cause)
}

// FromTransport wraps a request error, marking timeouts and connection
// failures as transient. Context cancellation passes through unchanged.
func FromTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.TransientError{Op: op, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &domain.TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ParseRetryAfter reads a Retry-After value given in seconds or as an HTTP date.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
