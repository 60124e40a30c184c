package litepool

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jirevwe/litepool/accesslog"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// address the server listens on
	Addr string

	// number of pool workers, fixed for the life of the server
	Workers uint

	// directory static files are served from
	Root string

	// how long the slow route sleeps before answering
	SleepDelay time.Duration

	// deadline for reading the request buffer, zero disables it
	ReadTimeout time.Duration

	// sqlite file for the access log, empty disables it
	DBPath string

	// address of the /metrics endpoint, empty disables it
	MetricsAddr string

	LogLevel string

	mux       *Mux
	accessLog accesslog.Store
	logger    *slog.Logger
}

// fileConfig is the on-disk shape of Config
type fileConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	Workers     uint   `yaml:"workers" json:"workers"`
	Root        string `yaml:"root" json:"root"`
	SleepDelay  string `yaml:"sleep_delay" json:"sleep_delay"`
	ReadTimeout string `yaml:"read_timeout" json:"read_timeout"`
	DBPath      string `yaml:"db_path" json:"db_path"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Addr:        "127.0.0.1:8080",
		Workers:     4,
		Root:        "www",
		SleepDelay:  5 * time.Second,
		ReadTimeout: 5 * time.Second,
		LogLevel:    "info",
	}
}

// LoadConfig reads a YAML or JSON file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}

	cfg := DefaultConfig()
	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.Workers > 0 {
		cfg.Workers = fc.Workers
	}
	if fc.Root != "" {
		cfg.Root = fc.Root
	}
	if fc.SleepDelay != "" {
		d, err := time.ParseDuration(fc.SleepDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid sleep_delay: %w", err)
		}
		cfg.SleepDelay = d
	}
	if fc.ReadTimeout != "" {
		d, err := time.ParseDuration(fc.ReadTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	cfg.DBPath = fc.DBPath
	cfg.MetricsAddr = fc.MetricsAddr

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	}
	if c.Workers == 0 {
		return fmt.Errorf("%w: workers must be greater than zero", ErrInvalidConfig)
	}
	if c.SleepDelay < 0 || c.ReadTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Level parses LogLevel, defaulting to info when it is empty
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}
