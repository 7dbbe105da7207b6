package source

import (
	"errors"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/platform/fetch"
	"github.com/riskibarqy/pickboard/internal/platform/resilience"
)

var (
	ErrParse          = crerr.New("malformed upstream payload")
	ErrInvalidDateKey = crerr.New("invalid date key")
	ErrUnknownSport   = crerr.New("unknown sport")
	ErrNoEndpoint     = crerr.New("no endpoint configured")
)

// Failure kinds reported per sport.
const (
	KindTimeout      = "timeout"
	KindNetwork      = "network"
	KindUpstream     = "upstream"
	KindParse        = "parse"
	KindCircuitOpen  = "circuit_open"
	KindUnknownSport = "unknown_sport"
	KindUnknown      = "unknown"
)

// Attempt is one hop of the primary -> fallback -> recovery chain.
type Attempt struct {
	Tier pick.Tier
	URL  string
	Err  error
}

// FetchError is the single aggregated failure a fetcher surfaces once every
// hop of its chain has failed, or a hop returned an unparseable payload.
type FetchError struct {
	Sport    string
	DateKey  string
	Attempts []Attempt
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fetch %s picks for %s failed", e.Sport, e.DateKey)
	for i, a := range e.Attempts {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %v", a.Tier, a.Err)
	}
	return b.String()
}

// Unwrap exposes the terminal attempt's error.
func (e *FetchError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

func (e *FetchError) Kind() string {
	return Kind(e.Unwrap())
}

// Kind classifies err into one of the failure kinds.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrUnknownSport):
		return KindUnknownSport
	case errors.Is(err, fetch.ErrTimeout):
		return KindTimeout
	case errors.Is(err, fetch.ErrUpstream):
		return KindUpstream
	case errors.Is(err, fetch.ErrNetwork):
		return KindNetwork
	case errors.Is(err, resilience.ErrCircuitOpen):
		return KindCircuitOpen
	default:
		return KindUnknown
	}
}

// canFallThrough reports whether the chain may move on to the next hop.
func canFallThrough(err error) bool {
	return fetch.IsTransport(err) || errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, ErrNoEndpoint)
}
