// Package providers holds the plumbing shared by every third-party
// provider client: an instrumented HTTP client and a typed error that the
// dialogue and synthesis layers recover from.
package providers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultTimeout = 20 * time.Second

// ErrProvider matches every *Error through errors.Is.
var ErrProvider = errors.New("provider error")

// NewHTTPClient returns a client whose transport records a span per
// request. A zero timeout falls back to DefaultTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

type Error struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrProvider }

func Wrap(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Provider: provider, Op: op, Err: err}
}

// StatusError builds an *Error from a non-2xx response, keeping at most
// 8KiB of the body for diagnostics.
func StatusError(provider, op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	return &Error{
		Provider:   provider,
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
