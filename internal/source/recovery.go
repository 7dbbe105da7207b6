package source

import (
	"bytes"
	"context"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
)

// RecoveryRequest describes the fetch that both network hops failed.
type RecoveryRequest struct {
	Sport     string
	SportPath string
	DateKey   string
	Endpoints Endpoints
	Timeout   time.Duration
}

// RecoveryHook is the last hop of the chain. It returns a JSON payload the
// Normalizer can read, plus the URL it came from.
type RecoveryHook interface {
	Name() string
	Recover(ctx context.Context, req RecoveryRequest) ([]byte, string, error)
}

// EmbeddedJSONHook pulls the HTML lineup report and lifts the pick data out
// of the JSON blob embedded in the page.
type EmbeddedJSONHook struct {
	client Getter
}

func NewEmbeddedJSONHook(client Getter) *EmbeddedJSONHook {
	return &EmbeddedJSONHook{client: client}
}

func (h *EmbeddedJSONHook) Name() string { return "embedded_json" }

func (h *EmbeddedJSONHook) Recover(ctx context.Context, req RecoveryRequest) ([]byte, string, error) {
	base := req.Endpoints.Primary
	if base == "" {
		base = req.Endpoints.Fallback
	}
	if base == "" {
		return nil, "", ErrNoEndpoint
	}
	target := base + "/weekly-lineup/" + req.SportPath + "/report?date=" + url.QueryEscape(req.DateKey)

	resp, err := h.client.Get(ctx, target, req.Timeout)
	if err != nil {
		return nil, target, err
	}
	if err := resp.Err(); err != nil {
		return nil, target, err
	}

	blob, ok := ExtractEmbeddedJSON(resp.Body)
	if !ok {
		return nil, target, crerr.Wrapf(ErrParse, "no embedded pick data in %s", target)
	}
	return blob, target, nil
}

// ExtractEmbeddedJSON returns the first balanced JSON object or array in doc
// that mentions picks, else the first balanced JSON value at all.
func ExtractEmbeddedJSON(doc []byte) ([]byte, bool) {
	var fallback []byte
	for i := 0; i < len(doc); i++ {
		if doc[i] != '{' && doc[i] != '[' {
			continue
		}
		end, ok := balancedEnd(doc, i)
		if !ok {
			continue
		}
		candidate := doc[i : end+1]
		if len(candidate) > 2 && sonic.Valid(candidate) {
			if bytes.Contains(bytes.ToLower(candidate), []byte(`"pick`)) {
				return candidate, true
			}
			if fallback == nil {
				fallback = candidate
			}
			i = end
		}
	}
	return fallback, fallback != nil
}

// balancedEnd finds the index closing the bracket at start, honouring string
// literals and escapes.
func balancedEnd(doc []byte, start int) (int, bool) {
	stack := make([]byte, 0, 16)
	inString := false
	escaped := false

	for i := start; i < len(doc); i++ {
		c := doc[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
