// Package client contains the HTTP clients for the two services this
// service depends on, the room catalog and the customer directory, along
// with their fallback variants and the circuit breaker that chooses
// between them.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/lodging-reservation/internal/apperror"
)

// StatusError is returned when a downstream service answers with an
// unexpected HTTP status.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.Code, e.Body)
}

// NewHTTPClient returns the client used by the live service clients.  The
// timeout is a backstop; each call is also bounded by the breaker's
// per-call deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// doJSON performs a request and decodes a JSON answer into out when out is
// not nil.  404 maps to apperror.ErrNotFound; any other non-2xx status is a
// *StatusError.
func doJSON(ctx context.Context, hc *http.Client, service, method, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return apperror.NotFound("%s: resource not found", service)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Service: service, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", service, err)
	}
	return nil
}

// isFailure reports whether err says something about the health of the
// downstream service.  Missing resources and client-side statuses are
// answers, not failures.
func isFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code < 500 {
		return false
	}
	return true
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}

// classify turns a downstream answer into an apperror kind.  404 becomes a
// NotFound naming the resource, 400 and 422 a Validation carrying the
// downstream message, and any other status an Unavailable.  The
// *StatusError stays reachable as the cause so the breaker still sees the
// code.
func classify(err error, service, format string, args ...any) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotFound(format, args...)
	}
	var se *StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		msg := se.Body
		if msg == "" {
			msg = http.StatusText(se.Code)
		}
		return &apperror.Error{Kind: apperror.ErrValidation, Message: service + " rejected the request: " + msg, Cause: se}
	default:
		return apperror.Unavailable(service, se)
	}
}
