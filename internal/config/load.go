package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SCRIBE_SERVER_PORT.
const EnvPrefix = "SCRIBE"

var defaults = map[string]any{
	"server.port":                     8080,
	"server.log_level":                "info",
	"database.driver":                 "memory",
	"database.url":                    "",
	"llm.gemini_api_key":              "",
	"llm.model_name":                  "gemini-2.0-flash",
	"llm.image_model_name":            "imagen-3.0-generate-002",
	"llm.max_retries":                 3,
	"llm.retry_delay_seconds":         2,
	"llm.prompt_template_path":        "",
	"batch.max_parallel":              3,
	"batch.generation_timeout":        "3m",
	"brand_ads.base_url":              "https://api.brandbooster.ai",
	"brand_ads.timeout":               "30s",
	"domain_metrics.base_url":         "https://semrush-website-traffic-checker.p.rapidapi.com",
	"domain_metrics.host":             "semrush-website-traffic-checker.p.rapidapi.com",
	"domain_metrics.api_key":          "",
	"domain_metrics.timeout":          "30s",
	"domain_metrics.request_interval": "1s",
	"domain_metrics.parallel":         4,
	"rate_limit.requests_per_minute":  10,
	"rate_limit.burst":                5,
	"rate_limit.redis_addr":           "",
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return load(viper.New(), true)
}

// LoadFile loads configuration from the given file, with environment
// variables still taking precedence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return load(v, false)
}

func load(v *viper.Viper, searchConfig bool) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if searchConfig {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The traffic checker key is also read from the provider's own variables.
	if err := v.BindEnv("domain_metrics.api_key",
		EnvPrefix+"_DOMAIN_METRICS_API_KEY", "SEMRUSH_API_KEY", "RAPIDAPI_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its validation tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
