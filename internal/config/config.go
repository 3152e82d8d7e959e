package config

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

type Config struct {
	DefinitionsDir          string   `json:"definitions_dir"`
	CompanionExtension      string   `json:"companion_extension"`
	FilePatterns            []string `json:"file_patterns"`
	VirtualDocumentCapacity int      `json:"virtual_document_capacity"`
	ForwardTimeoutMS        int      `json:"forward_timeout_ms"`
	MetadataRefreshSeconds  int      `json:"metadata_refresh_seconds"`
	TagEvents               []string `json:"tag_events"`
}

var defaultConfig = Config{
	DefinitionsDir:          "_build/dev/definitions",
	CompanionExtension:      ".ex",
	FilePatterns:            []string{"**/*.sface"},
	VirtualDocumentCapacity: 64,
	ForwardTimeoutMS:        2000,
	MetadataRefreshSeconds:  30,
	TagEvents:               []string{":on-click", ":on-focus", ":on-blur"},
}

func Default() Config {
	return defaultConfig.clone()
}

func Load(v any) (Config, error) {
	cfg := defaultConfig.clone()
	if v == nil {
		return cfg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, errors.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Errorf("failed to unmarshal into Config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromJSON reads JSON from r into a Config.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := defaultConfig.clone()

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, errors.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	for _, pattern := range c.FilePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.WithDetails(errors.New("invalid file pattern"), "pattern", pattern)
		}
	}
	if c.VirtualDocumentCapacity < 1 {
		return errors.WithDetails(errors.New("virtual_document_capacity must be positive"),
			"value", c.VirtualDocumentCapacity)
	}
	return nil
}

// Matches reports whether a document path is handled.
func (c Config) Matches(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range c.FilePatterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		if rel := strings.TrimPrefix(path, "/"); rel != path {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return true
			}
		}
	}
	return false
}

func (c Config) ForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeoutMS) * time.Millisecond
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.MetadataRefreshSeconds) * time.Second
}

func (c Config) clone() Config {
	c.FilePatterns = append([]string(nil), c.FilePatterns...)
	c.TagEvents = append([]string(nil), c.TagEvents...)
	return c
}
