package httperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// FromGoogle classifies an error returned by a Google API client library.
// HTTP 429 and 5xx become transient, as do transport failures.
func FromGoogle(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if code := googleStatus(err); code != 0 {
		if code == http.StatusTooManyRequests || code >= 500 {
			return &domain.TransientError{Op: op, StatusCode: code, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return FromTransport(op, err)
}

// googleStatus extracts the HTTP status from a Google API error, or 0.
func googleStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	if ae, ok := apierror.FromError(err); ok {
		if code := ae.HTTPCode(); code > 0 {
			return code
		}
	}
	return 0
}
