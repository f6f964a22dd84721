// Package config provides run configuration for namespacefinder.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/feco93/Namespacefinder/namespace"
)

// Config represents the complete namespacefinder configuration
type Config struct {
	Filter   FilterConfig `yaml:"filter"`
	LogLevel string       `yaml:"log_level"`
}

// FilterConfig selects which assembly namespaces are audited
type FilterConfig struct {
	// Root keeps only namespaces beneath it (empty = keep all)
	Root string `yaml:"root"`
	// Exclude drops namespaces starting with any entry; glob entries are allowed
	Exclude []string `yaml:"exclude"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Filter: FilterConfig{
			Root:    "", // No root restriction
			Exclude: nil,
		},
		LogLevel: "info",
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Filter.Root != "" {
		for _, seg := range strings.Split(c.Filter.Root, ".") {
			if seg == "" {
				return fmt.Errorf("filter.root %q has an empty segment", c.Filter.Root)
			}
		}
	}
	for _, ex := range c.Filter.Exclude {
		if ex == "" {
			return fmt.Errorf("filter.exclude entries must not be empty")
		}
		if !namespace.ValidPattern(ex) {
			return fmt.Errorf("filter.exclude %q is not a valid pattern", ex)
		}
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Filter.Root != "" {
		c.Filter.Root = other.Filter.Root
	}
	if len(other.Filter.Exclude) > 0 {
		c.Filter.Exclude = other.Filter.Exclude
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// NamespaceFilter returns the filter applied to assembly namespaces.
func (c *Config) NamespaceFilter() namespace.Filter {
	return namespace.Filter{
		Root:    c.Filter.Root,
		Exclude: c.Filter.Exclude,
	}
}

// Dump renders the configuration as YAML for diagnostics.
func (c *Config) Dump() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ParseLevel maps a log level name onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
}
