package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/pickboard/internal/platform/logging"
)

const defaultRegistryTimeout = 5 * time.Second

var (
	registryContainerKeys = []string{"sports", "endpoints", "registry", "sources"}
	primaryKeys           = []string{"primary", "primaryUrl", "primary_url", "url", "base"}
	fallbackKeys          = []string{"fallback", "fallbackUrl", "fallback_url", "secondary"}
)

type RegistryLoaderConfig struct {
	URL     string
	Timeout time.Duration
	Client  Getter
	Live    *LiveRegistry
	Logger  *logging.Logger
	Now     func() time.Time
}

// RegistryLoader pulls the endpoint table from the registry service into a
// LiveRegistry. A failed load keeps whatever the registry already holds.
type RegistryLoader struct {
	url     string
	timeout time.Duration
	client  Getter
	live    *LiveRegistry
	logger  *logging.Logger
	now     func() time.Time
}

func NewRegistryLoader(cfg RegistryLoaderConfig) *RegistryLoader {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRegistryTimeout
	}
	return &RegistryLoader{
		url:     strings.TrimSpace(cfg.URL),
		timeout: timeout,
		client:  cfg.Client,
		live:    cfg.Live,
		logger:  logger.Named("registry"),
		now:     now,
	}
}

// Load fetches and applies the registry once. The error is informational;
// callers are expected to carry on with the previous table.
func (l *RegistryLoader) Load(ctx context.Context) error {
	if l.url == "" || l.client == nil || l.live == nil {
		return nil
	}

	resp, err := l.client.Get(ctx, l.url, l.timeout)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		l.logger.WarnContext(ctx, "endpoint registry unavailable", "url", l.url, "error", err)
		return err
	}

	entries, err := parseRegistry(resp.Body)
	if err != nil {
		l.logger.WarnContext(ctx, "endpoint registry unreadable", "url", l.url, "error", err)
		return err
	}
	if len(entries) == 0 {
		l.logger.WarnContext(ctx, "endpoint registry is empty, keeping previous entries", "url", l.url)
		return nil
	}

	l.live.Replace(entries, l.now())
	l.logger.InfoContext(ctx, "endpoint registry loaded", "url", l.url, "sports", len(entries))
	return nil
}

// Watch reloads the registry every interval until ctx is done.
func (l *RegistryLoader) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 || l.url == "" {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = l.Load(ctx)
		}
	}
}

func parseRegistry(raw []byte) (map[string]Endpoints, error) {
	var doc any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	root, ok := doc.(map[string]any)
	if !ok {
		if list, isList := doc.([]any); isList {
			return registryFromList(list), nil
		}
		return nil, fmt.Errorf("decode registry: unexpected %T payload", doc)
	}

	for _, key := range registryContainerKeys {
		switch container := root[key].(type) {
		case map[string]any:
			return registryFromMap(container), nil
		case []any:
			return registryFromList(container), nil
		}
	}
	return registryFromMap(root), nil
}

func registryFromMap(m map[string]any) map[string]Endpoints {
	out := make(map[string]Endpoints, len(m))
	for sport, value := range m {
		if endpoints, ok := registryEntry(value); ok {
			out[sport] = endpoints
		}
	}
	return out
}

func registryFromList(list []any) map[string]Endpoints {
	out := make(map[string]Endpoints, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sport := stringOf(firstPresent(obj, []string{"sport", "league", "code"}))
		if sport == "" {
			continue
		}
		if endpoints, ok := registryEntry(obj); ok {
			out[sport] = endpoints
		}
	}
	return out
}

func registryEntry(value any) (Endpoints, bool) {
	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		return Endpoints{Primary: v}, v != ""
	case map[string]any:
		endpoints := Endpoints{
			Primary:  stringOf(firstPresent(v, primaryKeys)),
			Fallback: stringOf(firstPresent(v, fallbackKeys)),
		}
		return endpoints, endpoints.Primary != ""
	default:
		return Endpoints{}, false
	}
}

func firstPresent(obj map[string]any, keys []string) any {
	for _, key := range keys {
		if v, ok := obj[key]; ok && v != nil {
			if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}
