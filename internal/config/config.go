// Package config loads application configuration from environment variables
// and an optional config file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GITPULSE"

// Config holds the application configuration.
type Config struct {
	GitHubToken       string        `mapstructure:"GITHUB_TOKEN"`
	GitHubBaseURL     string        `mapstructure:"GITHUB_BASE_URL"`
	DBPath            string        `mapstructure:"DB_PATH"`
	ListenAddr        string        `mapstructure:"LISTEN_ADDR"`
	SyncInterval      time.Duration `mapstructure:"SYNC_INTERVAL"`
	RetentionDays     int           `mapstructure:"RETENTION_DAYS"`
	RequestsPerSecond float64       `mapstructure:"REQUESTS_PER_SECOND"`
	LowQuotaThreshold int           `mapstructure:"LOW_QUOTA_THRESHOLD"`
	RawRepositories   string        `mapstructure:"REPOSITORIES"`
	RawLogLevel       string        `mapstructure:"LOG_LEVEL"`

	// Derived from the raw fields above.
	Repositories []string   `mapstructure:"-"`
	LogLevel     slog.Level `mapstructure:"-"`
}

// HasGitHubToken reports whether a token is configured. Without one the
// server still serves stored activity but cannot sync.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Retention returns how long activity is kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_BASE_URL", "")
	v.SetDefault("DB_PATH", "gitpulse.db")
	v.SetDefault("LISTEN_ADDR", "127.0.0.1:8080")
	v.SetDefault("SYNC_INTERVAL", "1h")
	v.SetDefault("RETENTION_DAYS", 30)
	v.SetDefault("REQUESTS_PER_SECOND", 0)
	v.SetDefault("LOW_QUOTA_THRESHOLD", 20)
	v.SetDefault("REPOSITORIES", "")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads configuration from GITPULSE_* environment variables.
// All variables are optional:
//
//	GITPULSE_GITHUB_TOKEN        (empty; syncing is disabled without it)
//	GITPULSE_GITHUB_BASE_URL     (empty; GitHub Enterprise API root)
//	GITPULSE_DB_PATH             (gitpulse.db)
//	GITPULSE_LISTEN_ADDR         (127.0.0.1:8080)
//	GITPULSE_SYNC_INTERVAL       (1h; 0 disables the scheduler)
//	GITPULSE_RETENTION_DAYS      (30)
//	GITPULSE_REQUESTS_PER_SECOND (0; unpaced)
//	GITPULSE_LOW_QUOTA_THRESHOLD (20)
//	GITPULSE_REPOSITORIES        (comma-separated owner/repo list to seed)
//	GITPULSE_LOG_LEVEL           (info)
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an additional config file. Environment variables
// take precedence over values in the file. An empty path reads no file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s_* configuration: %w", EnvPrefix, err)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(cfg.RawLogLevel)); err != nil {
		return nil, fmt.Errorf("%s_LOG_LEVEL has invalid level %q: %w", EnvPrefix, cfg.RawLogLevel, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Repositories = splitRepositories(cfg.RawRepositories)

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SyncInterval < 0 {
		return fmt.Errorf("%s_SYNC_INTERVAL must not be negative, got %s", EnvPrefix, c.SyncInterval)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("%s_RETENTION_DAYS must be positive, got %d", EnvPrefix, c.RetentionDays)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%s_REQUESTS_PER_SECOND must not be negative, got %g", EnvPrefix, c.RequestsPerSecond)
	}
	if c.LowQuotaThreshold < 0 {
		return fmt.Errorf("%s_LOW_QUOTA_THRESHOLD must not be negative, got %d", EnvPrefix, c.LowQuotaThreshold)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%s_DB_PATH must not be empty", EnvPrefix)
	}
	return nil
}

func splitRepositories(raw string) []string {
	repos := []string{}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			repos = append(repos, name)
		}
	}
	return repos
}
