package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string   `mapstructure:"PORT"`
	Env              string   `mapstructure:"ENV"`
	DatabaseURL      string   `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins      []string `mapstructure:"CORS_ORIGINS"`
	JWTSecret        string   `mapstructure:"JWT_SECRET"`
	JWTExpireMinutes int      `mapstructure:"JWT_EXPIRE_MINUTES"`
	AIAPIKey         string   `mapstructure:"AI_API_KEY"`
	AIBaseURL        string   `mapstructure:"AI_BASE_URL"`
	AIModel          string   `mapstructure:"AI_MODEL"`
	AIReadTimeoutSec int      `mapstructure:"AI_READ_TIMEOUT_SECONDS"`
	RateLimitRPS     float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_EXPIRE_MINUTES", 720)
	v.SetDefault("AI_MODEL", "deepseek-chat")
	// Streaming generations can pause for a long while between chunks.
	v.SetDefault("AI_READ_TIMEOUT_SECONDS", 120)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_EXPIRE_MINUTES")
	v.BindEnv("AI_API_KEY")
	v.BindEnv("AI_BASE_URL")
	v.BindEnv("AI_MODEL")
	v.BindEnv("AI_READ_TIMEOUT_SECONDS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("JWT_SECRET is required outside development")
	}
	if cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("AI_API_KEY is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// JWTExpiry returns the configured access-token lifetime.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpireMinutes) * time.Minute
}

// AIReadTimeout returns the per-request read timeout for the LLM client.
func (c *Config) AIReadTimeout() time.Duration {
	return time.Duration(c.AIReadTimeoutSec) * time.Second
}
