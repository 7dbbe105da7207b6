package pickstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/riskibarqy/pickboard/internal/platform/resilience"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 4 << 20

var ErrNotFound = errors.New("remote pick not found")

type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the remote pick persistence service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

func NewClient(httpClient *http.Client, cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		breaker:    resilience.NewFromConfig(cfg.CircuitBreaker),
		logger:     logger.Named("pickstore"),
	}
}

// Create sends the batch in one request. A conflict means the store already
// holds those ids and counts as success.
func (c *Client) Create(ctx context.Context, picks []pick.Pick) error {
	if len(picks) == 0 {
		return nil
	}
	status, _, err := c.send(ctx, http.MethodPost, "/picks", createRequest{Picks: picks})
	if err != nil {
		return fmt.Errorf("create picks: %w", err)
	}
	switch {
	case status == http.StatusConflict:
		c.logger.DebugContext(ctx, "pick store reported existing ids", "count", len(picks))
		return nil
	case status >= 200 && status < 300:
		return nil
	default:
		return fmt.Errorf("create picks: unexpected status %d", status)
	}
}

func (c *Client) Update(ctx context.Context, pickID string, patch pick.LockPatch) error {
	pickID = strings.TrimSpace(pickID)
	if pickID == "" {
		return fmt.Errorf("update pick: id is required")
	}
	status, _, err := c.send(ctx, http.MethodPatch, "/picks/"+url.PathEscape(pickID), patch)
	if err != nil {
		return fmt.Errorf("update pick %s: %w", pickID, err)
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("update pick %s: %w", pickID, ErrNotFound)
	case status >= 200 && status < 300:
		return nil
	default:
		return fmt.Errorf("update pick %s: unexpected status %d", pickID, status)
	}
}

func (c *Client) List(ctx context.Context) ([]pick.Pick, error) {
	status, body, err := c.send(ctx, http.MethodGet, "/picks", nil)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list picks: unexpected status %d", status)
	}

	picks, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}
	return picks, nil
}

// send performs one request through the breaker. Transport failures and 5xx
// responses trip it; 4xx answers do not.
func (c *Client) send(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	if c.baseURL == "" {
		return 0, nil, fmt.Errorf("pick store base url is not configured")
	}
	if err := c.breaker.Allow(); err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := sonic.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return 0, nil, fmt.Errorf("request pick store: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.breaker.RecordFailure()
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	c.breaker.Record(resp.StatusCode >= http.StatusInternalServerError)
	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.WarnContext(ctx, "pick store server error",
			"method", method,
			"path", path,
			"status_code", resp.StatusCode,
		)
	}
	return resp.StatusCode, body, nil
}

type createRequest struct {
	Picks []pick.Pick `json:"picks"`
}

type listEnvelope struct {
	Picks []pick.Pick `json:"picks"`
	Data  []pick.Pick `json:"data"`
}

// decodeList accepts a bare array or an object carrying picks/data.
func decodeList(body []byte) ([]pick.Pick, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []pick.Pick{}, nil
	}
	if trimmed[0] == '[' {
		var out []pick.Pick
		if err := sonic.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("decode picks: %w", err)
		}
		return out, nil
	}

	var env listEnvelope
	if err := sonic.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode picks: %w", err)
	}
	if env.Picks != nil {
		return env.Picks, nil
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return []pick.Pick{}, nil
}
