// Package config loads service configuration from defaults, an optional
// YAML file, and FINCH_-prefixed environment variables, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the finch service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Browser BrowserConfig `mapstructure:"browser"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Debug   bool          `mapstructure:"debug"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// BrowserConfig controls browser binary resolution and launch identity.
type BrowserConfig struct {
	Binary        string   `mapstructure:"binary"`
	AllowDownload bool     `mapstructure:"allow_download"`
	UserAgents    []string `mapstructure:"user_agents"`
	ProxyFile     string   `mapstructure:"proxy_file"`
}

// ScrapeConfig controls the suggestion scrape itself.
type ScrapeConfig struct {
	TargetURL     string        `mapstructure:"target_url"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	InputTimeout  time.Duration `mapstructure:"input_timeout"`
	FallbackLimit int           `mapstructure:"fallback_limit"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// ProbeConfig controls the /ready reachability check.
type ProbeConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Profile string        `mapstructure:"profile"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuditConfig selects the audit storage backend.
// Backend is one of: none, sqlite, postgres, jsonl, csv.
type AuditConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

// Load reads configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("browser.binary", "")
	v.SetDefault("browser.allow_download", false)
	v.SetDefault("browser.proxy_file", "")

	v.SetDefault("scrape.target_url", "https://grokipedia.com")
	v.SetDefault("scrape.settle_delay", 2*time.Second)
	v.SetDefault("scrape.input_timeout", 10*time.Second)
	v.SetDefault("scrape.fallback_limit", 10)
	v.SetDefault("scrape.respect_robots", false)

	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.profile", "chrome")
	v.SetDefault("probe.timeout", 10*time.Second)

	v.SetDefault("audit.backend", "sqlite")
	v.SetDefault("audit.path", "finch_audit.db")
	v.SetDefault("audit.dsn", "")

	v.SetDefault("debug", false)

	v.SetEnvPrefix("FINCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port %d", c.Metrics.Port)
	}
	if c.Scrape.TargetURL == "" {
		return fmt.Errorf("scrape.target_url must not be empty")
	}
	switch c.Audit.Backend {
	case "none", "sqlite", "postgres", "jsonl", "csv":
	default:
		return fmt.Errorf("unknown audit backend %q", c.Audit.Backend)
	}
	if c.Audit.Backend == "postgres" && c.Audit.DSN == "" {
		return fmt.Errorf("audit.dsn is required for the postgres backend")
	}
	switch c.Probe.Profile {
	case "chrome", "go":
	default:
		return fmt.Errorf("unknown probe profile %q", c.Probe.Profile)
	}
	return nil
}
