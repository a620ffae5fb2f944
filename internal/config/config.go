// Package config loads settings from the environment. Every field has an
// env tag; struct tags also carry the validation rules checked by Load.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development" validate:"oneof=development test staging production"`
	AppPort int    `env:"APP_PORT" envDefault:"8080" validate:"min=1,max=65535"`

	// Records live in MongoDB.
	MongoURL      string `env:"MONGO_URL,required,notEmpty"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"snerberd" validate:"required,excludesall=/\\.$"`

	// Users and API keys live in PostgreSQL.
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Redis backs the auth cache and rate limits.
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s" validate:"gt=0"`

	// AuthMinDuration pads failed authentications so they all take the same
	// time. Zero or negative disables padding.
	AuthMinDuration time.Duration `env:"AUTH_MIN_DURATION" envDefault:"200ms"`

	RateLimitAPIEnabled    bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitPublicEnabled bool `env:"RATE_LIMIT_PUBLIC_ENABLED" envDefault:"true"`
	RateLimitPublicRPS     int  `env:"RATE_LIMIT_PUBLIC_RPS" envDefault:"50" validate:"required_if=RateLimitPublicEnabled true,gte=0"`
	RateLimitPublicBurst   int  `env:"RATE_LIMIT_PUBLIC_BURST" envDefault:"20" validate:"required_if=RateLimitPublicEnabled true,gte=0"`

	// CORSAllowedOrigins is a comma separated list; empty disables CORS.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576" validate:"gt=0"`
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// GetCORSAllowedOrigins returns the configured origins with blanks dropped.
func (c *Config) GetCORSAllowedOrigins() []string {
	var out []string
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the rules in the struct tags and reports every failing
// field by its environment variable name.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s=%v fails %q", envNames[fe.StructField()], fe.Value(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

var envNames = map[string]string{
	"AppEnv":               "APP_ENV",
	"AppPort":              "APP_PORT",
	"MongoDatabase":        "MONGO_DATABASE",
	"LogFormat":            "LOG_FORMAT",
	"ReadTimeout":          "READ_TIMEOUT",
	"WriteTimeout":         "WRITE_TIMEOUT",
	"ShutdownTimeout":      "SHUTDOWN_TIMEOUT",
	"RateLimitPublicRPS":   "RATE_LIMIT_PUBLIC_RPS",
	"RateLimitPublicBurst": "RATE_LIMIT_PUBLIC_BURST",
	"MaxRequestBodySize":   "MAX_REQUEST_BODY_SIZE",
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
