// Package config loads the application configuration with viper: defaults
// in code, optionally overridden by a config.yaml next to the binary, and
// finally by AGENTBOX_* environment variables (AGENTBOX_SERVER_PORT,
// AGENTBOX_AUTH_JWT_SECRET, ...).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Storage StorageConfig `mapstructure:"storage"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// RateLimitRPS / RateLimitBurst configure the per-client limiter on the
	// execute endpoint.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime"`
	// GitHub OAuth is optional; the routes are only mounted when a client
	// ID is configured.
	GitHubClientID     string `mapstructure:"github_client_id"`
	GitHubClientSecret string `mapstructure:"github_client_secret"`
	GitHubCallbackURL  string `mapstructure:"github_callback_url"`
}

type SandboxConfig struct {
	MaxCodeBytes      int           `mapstructure:"max_code_bytes"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
	MaxTimeout        time.Duration `mapstructure:"max_timeout"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	WorkspaceRoot     string        `mapstructure:"workspace_root"`
	MemoryLimitBytes  int64         `mapstructure:"memory_limit_bytes"`
	CPULimit          float64       `mapstructure:"cpu_limit"`
	PidsLimit         int64         `mapstructure:"pids_limit"`
	PullImagesOnStart bool          `mapstructure:"pull_images_on_start"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// Load reads the configuration. A missing config file is fine — defaults
// plus environment variables are a complete configuration.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("AGENTBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 2.0)
	v.SetDefault("server.rate_limit_burst", 5)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", 24*time.Hour)
	v.SetDefault("auth.github_client_id", "")
	v.SetDefault("auth.github_client_secret", "")
	v.SetDefault("auth.github_callback_url", "")

	v.SetDefault("sandbox.max_code_bytes", 10_000)
	v.SetDefault("sandbox.default_timeout", 15*time.Second)
	v.SetDefault("sandbox.max_timeout", 60*time.Second)
	v.SetDefault("sandbox.max_concurrent", 8)
	v.SetDefault("sandbox.workspace_root", "")
	v.SetDefault("sandbox.memory_limit_bytes", int64(128*1024*1024))
	v.SetDefault("sandbox.cpu_limit", 0.5)
	v.SetDefault("sandbox.pids_limit", int64(64))
	v.SetDefault("sandbox.pull_images_on_start", true)

	v.SetDefault("storage.db_path", "data/agentbox.db")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Sandbox.MaxCodeBytes <= 0 {
		return fmt.Errorf("config: max_code_bytes must be positive")
	}
	if c.Sandbox.DefaultTimeout <= 0 || c.Sandbox.MaxTimeout < c.Sandbox.DefaultTimeout {
		return fmt.Errorf("config: invalid timeout bounds (default %s, max %s)",
			c.Sandbox.DefaultTimeout, c.Sandbox.MaxTimeout)
	}
	return nil
}
