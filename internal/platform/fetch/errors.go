package fetch

import (
	"errors"
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrTimeout  = crerr.New("request timed out")
	ErrNetwork  = crerr.New("network failure")
	ErrUpstream = crerr.New("upstream returned non-success status")
)

// StatusError carries the status of a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status=%d url=%s body=%s", e.StatusCode, e.URL, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUpstream
}

// IsTransport reports whether err is one of the classes that justify trying
// another endpoint.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrUpstream)
}

// StatusCode extracts the upstream status from err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func abbreviate(raw []byte) string {
	const limit = 256
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
