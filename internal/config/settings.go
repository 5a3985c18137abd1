// Package config loads runtime settings from config files and the
// environment. Settings cover the ambient machinery (workers, retries,
// throttling, scheduling, storage, logging, notifications); what to
// search for lives in the plan file.
package config

import (
	"fmt"
	"time"
)

// Settings is the full runtime configuration.
type Settings struct {
	Workers   int               `mapstructure:"workers"`
	RateLimit float64           `mapstructure:"rate_limit"`
	Retry     RetrySettings     `mapstructure:"retry"`
	Throttle  ThrottleSettings  `mapstructure:"throttle"`
	Scheduler SchedulerSettings `mapstructure:"scheduler"`
	Database  DatabaseSettings  `mapstructure:"database"`
	Export    ExportSettings    `mapstructure:"export"`
	Logging   LoggingSettings   `mapstructure:"logging"`
	Server    ServerSettings    `mapstructure:"server"`
	Telegram  TelegramSettings  `mapstructure:"telegram"`
	Adzuna    AdzunaSettings    `mapstructure:"adzuna"`
}

// RetrySettings controls transient fetch retries.
type RetrySettings struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
}

// ThrottleSettings spaces board requests.
type ThrottleSettings struct {
	Enabled      bool                     `mapstructure:"enabled"`
	DefaultDelay time.Duration            `mapstructure:"default_delay"`
	SiteDelays   map[string]time.Duration `mapstructure:"site_delays"`
	Jitter       float64                  `mapstructure:"jitter"`
}

// SchedulerSettings drives the recurring cadence.
type SchedulerSettings struct {
	Interval   time.Duration `mapstructure:"interval"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// DatabaseSettings locates the job store.
type DatabaseSettings struct {
	Path string `mapstructure:"path"`
}

// ExportSettings controls CSV output.
type ExportSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LoggingSettings configures the structured logger.
type LoggingSettings struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ServerSettings configures the health endpoint served alongside the
// scheduler.
type ServerSettings struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TelegramSettings configures run notifications.
type TelegramSettings struct {
	Enabled  bool     `mapstructure:"enabled"`
	Token    string   `mapstructure:"token"`
	ChatIDs  []string `mapstructure:"chat_ids"`
	TopN     int      `mapstructure:"top_n"`
	MinScore int      `mapstructure:"min_score"`
}

// AdzunaSettings holds board API credentials.
type AdzunaSettings struct {
	BaseURL string `mapstructure:"base_url"`
	AppID   string `mapstructure:"app_id"`
	AppKey  string `mapstructure:"app_key"`
}

// Validate rejects settings the pipeline cannot run with.
func (s *Settings) Validate() error {
	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %g", s.RateLimit)
	}
	if s.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", s.Retry.MaxAttempts)
	}
	if s.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative, got %s", s.Retry.BaseDelay)
	}
	if s.Retry.BackoffFactor < 1.0 {
		return fmt.Errorf("retry.backoff_factor must be at least 1.0, got %g", s.Retry.BackoffFactor)
	}
	if s.Throttle.Jitter < 0 || s.Throttle.Jitter > 1 {
		return fmt.Errorf("throttle.jitter must be in [0, 1], got %g", s.Throttle.Jitter)
	}
	if s.Throttle.DefaultDelay < 0 {
		return fmt.Errorf("throttle.default_delay must not be negative, got %s", s.Throttle.DefaultDelay)
	}
	if s.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", s.Scheduler.Interval)
	}
	if s.Scheduler.RetryDelay < 0 {
		return fmt.Errorf("scheduler.retry_delay must not be negative, got %s", s.Scheduler.RetryDelay)
	}
	if s.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if s.Server.Enabled && (s.Server.Port < 1 || s.Server.Port > 65535) {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", s.Server.Port)
	}
	return nil
}
