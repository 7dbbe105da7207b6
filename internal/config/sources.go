package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/riskibarqy/pickboard/internal/domain/pick"
)

// SourceOverride is the static per-sport configuration read from
// SOURCES_CONFIG_FILE. Empty fields defer to the env defaults.
type SourceOverride struct {
	Primary  string
	Fallback string
	Timeout  time.Duration
	Recovery *bool
}

type sourceEntry struct {
	Primary  string `koanf:"primary"`
	Fallback string `koanf:"fallback"`
	Timeout  string `koanf:"timeout"`
	Recovery *bool  `koanf:"recovery"`
}

type sourcesFile struct {
	Sources map[string]sourceEntry `koanf:"sources"`
}

// LoadSourceOverrides reads a YAML document shaped like
//
//	sources:
//	  nba:
//	    primary: https://picks.example.com/nba
//	    fallback: https://mirror.example.com/nba
//	    timeout: 20s
//	    recovery: true
//
// An empty path yields no overrides.
func LoadSourceOverrides(path string) (map[string]SourceOverride, error) {
	out := make(map[string]SourceOverride)
	path = strings.TrimSpace(path)
	if path == "" {
		return out, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load SOURCES_CONFIG_FILE %s: %w", path, err)
	}

	var doc sourcesFile
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decode SOURCES_CONFIG_FILE %s: %w", path, err)
	}

	for rawSport, entry := range doc.Sources {
		sport := pick.NormalizeSport(rawSport)
		if sport == "" {
			return nil, fmt.Errorf("SOURCES_CONFIG_FILE: empty sport key")
		}
		override := SourceOverride{
			Primary:  strings.TrimSuffix(strings.TrimSpace(entry.Primary), "/"),
			Fallback: strings.TrimSuffix(strings.TrimSpace(entry.Fallback), "/"),
			Recovery: entry.Recovery,
		}
		if raw := strings.TrimSpace(entry.Timeout); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("SOURCES_CONFIG_FILE: %s timeout: %w", sport, err)
			}
			if d <= 0 {
				return nil, fmt.Errorf("SOURCES_CONFIG_FILE: %s timeout must be > 0", sport)
			}
			override.Timeout = d
		}
		out[sport] = override
	}
	return out, nil
}
