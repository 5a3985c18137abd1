package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// envPrefix scopes environment overrides, e.g. JOBSIFT_WORKERS or
// JOBSIFT_TELEGRAM_TOKEN.
const envPrefix = "JOBSIFT"

// Load reads settings from the given file, layered under environment
// overrides and over built-in defaults.
//
// Precedence: environment > config file > defaults. When path is empty
// a jobsift.yaml in the working directory or ~/.config/jobsift/ is
// used if present; a missing default file is not an error.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("jobsift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/jobsift")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&s, decodeHook); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 5)
	v.SetDefault("rate_limit", 0.0)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "2s")
	v.SetDefault("retry.backoff_factor", 2.0)

	v.SetDefault("throttle.enabled", true)
	v.SetDefault("throttle.default_delay", "1s")
	v.SetDefault("throttle.jitter", 0.2)

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.retry_delay", "10m")

	v.SetDefault("database.path", "data/jobsift.db")

	v.SetDefault("export.enabled", true)
	v.SetDefault("export.dir", "exports")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.top_n", 10)
	v.SetDefault("telegram.min_score", 0)

	v.SetDefault("adzuna.base_url", "https://api.adzuna.com/v1/api/jobs")
}
