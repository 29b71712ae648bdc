// Package config loads the optional server configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a field unset.
const (
	DefaultScriptTimeout     = 120 * time.Second
	DefaultExpressionTimeout = 60 * time.Second
)

// Config carries server-level settings. Every field is optional.
type Config struct {
	// Interpreter overrides the PATH search for the R executable.
	Interpreter string `yaml:"interpreter"`

	// Workdir pre-selects a working directory at startup.
	Workdir string `yaml:"workdir"`

	// ScriptTimeoutSec and ExprTimeoutSec override the default
	// per-invocation timeouts.
	ScriptTimeoutSec int `yaml:"script_timeout_sec"`
	ExprTimeoutSec   int `yaml:"expr_timeout_sec"`
}

// Load reads a YAML config file. An empty path yields the zero config; a
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ScriptTimeout returns the configured script timeout or the default.
func (c *Config) ScriptTimeout() time.Duration {
	if c.ScriptTimeoutSec > 0 {
		return time.Duration(c.ScriptTimeoutSec) * time.Second
	}
	return DefaultScriptTimeout
}

// ExprTimeout returns the configured expression timeout or the default.
func (c *Config) ExprTimeout() time.Duration {
	if c.ExprTimeoutSec > 0 {
		return time.Duration(c.ExprTimeoutSec) * time.Second
	}
	return DefaultExpressionTimeout
}
