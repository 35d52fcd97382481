package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited is returned when a provider throttles the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthorized is returned on 401/403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformed is returned when a response body cannot be decoded.
	ErrMalformed = errors.New("malformed response")
)

// HTTPError carries a non-2xx status that has no dedicated sentinel.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Body)
}

// CheckResponse maps a non-2xx response onto the error taxonomy. It reads at
// most 2KiB of the body for diagnostics.
func CheckResponse(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	switch res.StatusCode {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
	return &HTTPError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(b))}
}
