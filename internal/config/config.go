package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the gate engine. The policy
// document itself lives in a separate file referenced here.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Policy     PolicyConfig     `yaml:"policy"`
	Batch      BatchConfig      `yaml:"batch"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PrometheusConfig configures the metrics source the fetcher queries.
type PrometheusConfig struct {
	BaseURL   string        `yaml:"baseURL"`
	LabelKey  string        `yaml:"labelKey"`
	Timeout   time.Duration `yaml:"timeout"`
	TimeRange string        `yaml:"timeRange"`
}

// PolicyConfig points at the hierarchical policy document.
type PolicyConfig struct {
	Path    string `yaml:"path"`
	Service string `yaml:"service"`
}

// BatchConfig tunes batch execution defaults.
type BatchConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	RetryCount      int           `yaml:"retryCount"`
	RetryDelay      time.Duration `yaml:"retryDelay"`
	ContinueOnError bool          `yaml:"continueOnError"`
}

// MetricsConfig controls the optional self-metrics listener.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PERFGATE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", JSON: false},
		Prometheus: PrometheusConfig{
			LabelKey:  "deployment",
			Timeout:   10 * time.Second,
			TimeRange: "5m",
		},
		Policy: PolicyConfig{Path: "configs/policy.yaml"},
		Batch: BatchConfig{
			Concurrency:     5,
			RetryCount:      2,
			RetryDelay:      time.Second,
			ContinueOnError: true,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PERFGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PERFGATE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("PERFGATE_PROMETHEUS_URL"); v != "" {
		cfg.Prometheus.BaseURL = v
	}
	if v := os.Getenv("PERFGATE_PROMETHEUS_LABEL_KEY"); v != "" {
		cfg.Prometheus.LabelKey = v
	}
	if v := os.Getenv("PERFGATE_PROMETHEUS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Prometheus.Timeout = d
		}
	}
	if v := os.Getenv("PERFGATE_TIME_RANGE"); v != "" {
		cfg.Prometheus.TimeRange = v
	}
	if v := os.Getenv("PERFGATE_POLICY_PATH"); v != "" {
		cfg.Policy.Path = v
	}
	if v := os.Getenv("PERFGATE_SERVICE"); v != "" {
		cfg.Policy.Service = v
	}
	if v := os.Getenv("PERFGATE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Batch.Concurrency = n
		}
	}
	if v := os.Getenv("PERFGATE_RETRY_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Batch.RetryCount = n
		}
	}
	if v := os.Getenv("PERFGATE_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Batch.RetryDelay = d
		}
	}
	if v := os.Getenv("PERFGATE_CONTINUE_ON_ERROR"); v != "" {
		cfg.Batch.ContinueOnError = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("PERFGATE_METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
}
