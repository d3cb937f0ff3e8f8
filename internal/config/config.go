/*
PURPOSE:
  Defines the configuration structure and loading logic for eval-runner.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of the service address, folders, batch size,
    data directory and timeouts.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - CLI flags override whatever the file provided (handled in internal/cli).

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config file is not an error; defaults apply.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should match the deployed service (port 8000, batch 10).
  - Config is passed explicitly; never read from ambient global state.

USAGE:
  cfg, err := config.Load("eval_runner.yaml")

RELATED FILES:
  - internal/cli/run.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for eval-runner.
type Config struct {
	// APIHost is the service host. With a scheme it is used as-is;
	// without one the base URL becomes http://host:port.
	APIHost string `yaml:"api_host"`
	APIPort string `yaml:"api_port"`

	// Folders are the collections to process, in order.
	Folders []string `yaml:"folders"`
	DataDir string   `yaml:"data_dir"`

	BatchSize int `yaml:"batch_size"`

	// Combine controls the cross-folder merge after all folders finish.
	Combine bool `yaml:"combine"`
	// HealthCheck controls the pre-flight readiness probe.
	HealthCheck bool `yaml:"health_check"`

	SubmitTimeout time.Duration `yaml:"submit_timeout"`
	StreamTimeout time.Duration `yaml:"stream_timeout"`
	HealthTimeout time.Duration `yaml:"health_timeout"`

	// BatchPause is the mandatory delay between consecutive batch
	// submissions within a folder. Crude backpressure for the service.
	BatchPause time.Duration `yaml:"batch_pause"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIPort:       "8000",
		Folders:       []string{"PRE", "POS1", "POS2"},
		DataDir:       "data",
		BatchSize:     10,
		Combine:       true,
		HealthCheck:   true,
		SubmitTimeout: 30 * time.Second,
		StreamTimeout: 300 * time.Second,
		HealthTimeout: 10 * time.Second,
		BatchPause:    1 * time.Second,
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		defaults := []string{"eval_runner.yaml", "runner.yaml"}
		found := false
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name // record which file we loaded
				found = true
				break
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// BaseURL assembles the service base URL from host and port.
func (c *Config) BaseURL() string {
	host := strings.TrimRight(c.APIHost, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return fmt.Sprintf("http://%s:%s", host, c.APIPort)
}

// Validate checks the fields the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.APIHost == "" {
		return fmt.Errorf("api host is required (--api-host or api_host in config)")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	if len(c.Folders) == 0 {
		return fmt.Errorf("at least one folder is required")
	}
	return nil
}
