// Package config loads rv defaults from a .redvelvet.yaml or .redvelvet.toml
// file. Command-line flags override every value read here.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileNames are the config file names searched for, in order of preference.
var FileNames = []string{".redvelvet.yaml", ".redvelvet.yml", ".redvelvet.toml"}

// Config holds the settings a config file may provide.
type Config struct {
	LogLevel  string `yaml:"log_level" toml:"log_level"`   // debug, info, warn, error
	LogFormat string `yaml:"log_format" toml:"log_format"` // auto, text, json
	Color     string `yaml:"color" toml:"color"`           // auto, always, never
	Jobs      int    `yaml:"jobs" toml:"jobs"`             // 0 means one per CPU
	Strict    bool   `yaml:"strict" toml:"strict"`
}

// Default returns the settings used when no config file is found.
func Default() Config {
	return Config{LogLevel: "warn", LogFormat: "auto", Color: "auto"}
}

// Find looks for a config file in startDir and its parents. It reports false
// when none exists.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads the config file at path over the defaults. The format follows the
// file extension: .toml is TOML, anything else YAML.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the config file found from startDir, or the defaults when
// there is none. The returned path is empty in the latter case.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate checks that every enumerated setting holds a known value.
func (c Config) Validate() error {
	if !oneOf(c.LogLevel, "debug", "info", "warn", "error") {
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel)
	}
	if !oneOf(c.LogFormat, "auto", "text", "json") {
		return fmt.Errorf("log_format %q must be one of auto, text, json", c.LogFormat)
	}
	if !oneOf(c.Color, "auto", "always", "never") {
		return fmt.Errorf("color %q must be one of auto, always, never", c.Color)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, v)
}
