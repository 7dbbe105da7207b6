package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout         = 30 * time.Second
	defaultMaxBodySize     = 8 << 20
	defaultMaxConnsPerHost = 64
)

type ClientConfig struct {
	Name            string
	DefaultTimeout  time.Duration
	MaxBodySize     int
	MaxConnsPerHost int
	Logger          *logging.Logger
}

type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Latency     time.Duration
}

func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err turns a non-2xx response into an ErrUpstream-classified error.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{URL: r.URL, StatusCode: r.StatusCode, Body: abbreviate(r.Body)}
}

// CheckStatus is Response.Err for call sites holding a response value.
func CheckStatus(resp Response) error {
	return resp.Err()
}

// Client issues single requests with an enforced deadline. It never retries.
type Client struct {
	http           *fasthttp.Client
	defaultTimeout time.Duration
	logger         *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	maxConns := cfg.MaxConnsPerHost
	if maxConns <= 0 {
		maxConns = defaultMaxConnsPerHost
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "pickboard"
	}

	return &Client{
		http: &fasthttp.Client{
			Name:                name,
			MaxConnsPerHost:     maxConns,
			MaxResponseBodySize: maxBody,
		},
		defaultTimeout: timeout,
		logger:         logger,
	}
}

func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url}, timeout)
}

// Do sends one request. The effective timeout is the explicit one (or the
// client default when <= 0), shortened by the context deadline if that is
// sooner. Non-2xx responses are returned as-is; see Response.Err.
func (c *Client) Do(ctx context.Context, in Request, timeout time.Duration) (Response, error) {
	if strings.TrimSpace(in.URL) == "" {
		return Response{}, crerr.Wrap(ErrNetwork, "request url is empty")
	}

	effective, err := c.effectiveTimeout(ctx, timeout)
	if err != nil {
		return Response{}, crerr.Wrapf(err, "%s %s", methodOf(in), in.URL)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(in.URL)
	req.Header.SetMethod(methodOf(in))
	req.Header.Set("Accept", "application/json")
	for key, value := range in.Header {
		req.Header.Set(key, value)
	}
	if len(in.Body) > 0 {
		req.SetBody(in.Body)
	}

	started := time.Now()
	if err := c.http.DoTimeout(req, resp, effective); err != nil {
		classified := classify(err, methodOf(in), in.URL, effective)
		c.logger.DebugContext(ctx, "fetch failed",
			"method", methodOf(in),
			"url", in.URL,
			"timeout", effective,
			"error", classified,
		)
		return Response{}, classified
	}

	out := Response{
		URL:         in.URL,
		StatusCode:  resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		// resp is pooled; the body must outlive it.
		Body:    append([]byte(nil), resp.Body()...),
		Latency: time.Since(started),
	}
	c.logger.DebugContext(ctx, "fetch completed",
		"method", methodOf(in),
		"url", in.URL,
		"status", out.StatusCode,
		"latency_ms", out.Latency.Milliseconds(),
	)

	return out, nil
}

func (c *Client) effectiveTimeout(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	if ctx == nil {
		return timeout, nil
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, ErrTimeout
		}
		return 0, crerr.Wrap(ErrNetwork, err.Error())
	}
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, ErrTimeout
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}

func classify(err error, method, url string, timeout time.Duration) error {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) {
		return crerr.Wrapf(ErrTimeout, "%s %s after %s", method, url, timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return crerr.Wrapf(ErrTimeout, "%s %s after %s", method, url, timeout)
	}
	return crerr.Wrapf(ErrNetwork, "%s %s: %v", method, url, err)
}

func methodOf(req Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(req.Method)
}
