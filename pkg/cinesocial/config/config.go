package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port        string `env:"PORT,default=8080"`
	DBDriver    string `env:"DB_DRIVER,default=sqlite"`
	DatabaseURL string `env:"DATABASE_URL,default=cinesocial.db"`

	JWTSecret string        `env:"JWT_SECRET,default=cinesocial-dev-secret-change-in-production"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=1h"`

	LogLevel       string `env:"LOG_LEVEL,default=info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT,default=false"`
	GinMode        string `env:"GIN_MODE,default=release"`

	LoginRatePerSecond float64 `env:"LOGIN_RATE_PER_SECOND,default=5"`
	LoginBurst         int     `env:"LOGIN_BURST,default=10"`

	// TrustedProxies lists proxy addresses or CIDRs, separated by ';', whose
	// X-Forwarded-For header is believed. Empty trusts no proxy.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// Load reads an optional .env file and then decodes the environment.
// Variables already present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}
