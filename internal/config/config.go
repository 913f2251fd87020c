package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"         validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"       validate:"required"`
	LLM           LLMConfig           `mapstructure:"llm"            validate:"required"`
	Batch         BatchConfig         `mapstructure:"batch"          validate:"required"`
	BrandAds      BrandAdsConfig      `mapstructure:"brand_ads"      validate:"required"`
	DomainMetrics DomainMetricsConfig `mapstructure:"domain_metrics" validate:"required"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects where generated blogs are persisted.
// The memory driver keeps blogs for the lifetime of the process.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory pgx sqlite"`
	URL    string `mapstructure:"url"    validate:"required_unless=Driver memory"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string `mapstructure:"gemini_api_key"       validate:"required"`
	ModelName          string `mapstructure:"model_name"           validate:"required"`
	ImageModelName     string `mapstructure:"image_model_name"     validate:"required"`
	MaxRetries         int    `mapstructure:"max_retries"          validate:"gte=0,lte=10"`
	RetryDelaySeconds  int    `mapstructure:"retry_delay_seconds"  validate:"gte=1,lte=60"`
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
}

// BatchConfig controls how generation batches are dispatched.
type BatchConfig struct {
	MaxParallel       int           `mapstructure:"max_parallel"       validate:"gte=1,lte=32"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" validate:"gte=0"`
}

// BrandAdsConfig configures the brand ad count lookup.
type BrandAdsConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gt=0"`
}

// DomainMetricsConfig configures the SEMrush traffic checker on RapidAPI.
// RequestInterval spaces out provider calls; Parallel bounds how many domains
// are analyzed at once.
type DomainMetricsConfig struct {
	BaseURL         string        `mapstructure:"base_url"         validate:"required,url"`
	Host            string        `mapstructure:"host"             validate:"required,hostname"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"          validate:"gt=0"`
	RequestInterval time.Duration `mapstructure:"request_interval" validate:"gte=0"`
	Parallel        int           `mapstructure:"parallel"         validate:"gte=1,lte=20"`
}

// RateLimitConfig throttles generation requests per client. An empty
// RedisAddr keeps limits in process memory.
type RateLimitConfig struct {
	RequestsPerMinute int    `mapstructure:"requests_per_minute" validate:"gte=0"`
	Burst             int    `mapstructure:"burst"               validate:"gte=0"`
	RedisAddr         string `mapstructure:"redis_addr"          validate:"omitempty,hostname_port"`
}
