// Package config handles configuration for the server component:
// defaults, a JSON overlay, MOCKPAY_* environment variables and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/cryptox"
	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/repositories/repomanager"
)

// Config holds runtime settings for the mockpay server.
//
// SigningKey has no default; the server refuses to start without one.
type Config struct {
	EndpointAddrGRPC             string
	EndpointAddrHTTP             string
	Storage                      string
	DatabaseDSN                  string
	RedisAddr                    string
	SigningKey                   string
	Issuer                       string
	Audience                     string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	PasswordHasher               string
	ChargeSuccessRate            float64
	RefundSuccessRate            float64
	ProcessingDelay              time.Duration
	LogLevel                     string
}

var ErrMissingSigningKey = errors.New("signing key is required (-s, MOCKPAY_SIGNING_KEY or signing_key)")

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrHTTP = ":8080"
	c.Storage = repomanager.StorageMemory
	c.Issuer = "mockpay"
	c.Audience = "mockpay"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.PasswordHasher = cryptox.HasherArgon2id
	c.ChargeSuccessRate = 0.95
	c.RefundSuccessRate = 0.90
	c.ProcessingDelay = 100 * time.Millisecond
	c.LogLevel = "info"
}

// Validate reports the first setting the server cannot run with.
func (c *Config) Validate() error {
	if c.SigningKey == "" {
		return ErrMissingSigningKey
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token validity must be positive, got %s", c.AccessTokenValidityDuration)
	}
	if c.RefreshTokenValidityDuration <= 0 {
		return fmt.Errorf("refresh token validity must be positive, got %s", c.RefreshTokenValidityDuration)
	}
	if c.ProcessingDelay < 0 {
		return fmt.Errorf("processing delay must not be negative, got %s", c.ProcessingDelay)
	}
	if c.ChargeSuccessRate < 0 || c.ChargeSuccessRate > 1 {
		return fmt.Errorf("charge success rate must be within [0,1], got %v", c.ChargeSuccessRate)
	}
	if c.RefundSuccessRate < 0 || c.RefundSuccessRate > 1 {
		return fmt.Errorf("refund success rate must be within [0,1], got %v", c.RefundSuccessRate)
	}

	switch c.Storage {
	case repomanager.StorageMemory:
	case repomanager.StoragePostgres:
		if c.DatabaseDSN == "" {
			return errors.New("postgres storage requires a database DSN (-d)")
		}
	case repomanager.StorageRedis:
		if c.RedisAddr == "" {
			return errors.New("redis storage requires an address (-r)")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	switch c.PasswordHasher {
	case cryptox.HasherArgon2id, cryptox.HasherBcrypt:
	default:
		return fmt.Errorf("unknown password hasher %q", c.PasswordHasher)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// LoadConfig builds and validates a Config from the process arguments and
// environment.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
