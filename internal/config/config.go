package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration, sourced from MEDBOOK_*
// environment variables.
type Config struct {
	HTTPAddr    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	JWTSecret string
	TokenTTL  time.Duration

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	LogLevel string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	SummaryCacheTTL time.Duration
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEDBOOK")
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("request_timeout", "15s")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", "30m")
	v.SetDefault("db_conn_max_idle_time", "5m")
	v.SetDefault("summary_cache_ttl", "1m")

	for key, envs := range map[string][]string{
		"http_addr":      {"MEDBOOK_HTTP_ADDR"},
		"database_url":   {"MEDBOOK_DATABASE_URL", "DATABASE_URL"},
		"redis_addr":     {"MEDBOOK_REDIS_ADDR", "REDIS_ADDR"},
		"redis_password": {"MEDBOOK_REDIS_PASSWORD"},
		"jwt_secret":     {"MEDBOOK_JWT_SECRET", "JWT_SECRET"},
		"log_level":      {"MEDBOOK_LOG_LEVEL", "LOG_LEVEL"},
	} {
		keys := append([]string{key}, envs...)
		if err := v.BindEnv(keys...); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := Config{
		HTTPAddr:          v.GetString("http_addr"),
		DatabaseURL:       v.GetString("database_url"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		JWTSecret:         v.GetString("jwt_secret"),
		TokenTTL:          v.GetDuration("token_ttl"),
		RequestTimeout:    v.GetDuration("request_timeout"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
		LogLevel:          v.GetString("log_level"),
		DBMaxOpenConns:    v.GetInt("db_max_open_conns"),
		DBMaxIdleConns:    v.GetInt("db_max_idle_conns"),
		DBConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		DBConnMaxIdleTime: v.GetDuration("db_conn_max_idle_time"),
		SummaryCacheTTL:   v.GetDuration("summary_cache_ttl"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("MEDBOOK_DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("MEDBOOK_JWT_SECRET is required")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("MEDBOOK_TOKEN_TTL must be positive")
	}

	return cfg, nil
}
