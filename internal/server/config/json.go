package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mockpay/internal/flagx"
	"github.com/dmitrijs2005/mockpay/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Absent fields
// leave the current value untouched, so pointers tell "unset" from zero.
type JsonConfig struct {
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	Storage                      string          `json:"storage"`
	DatabaseDSN                  string          `json:"database_dsn"`
	RedisAddr                    string          `json:"redis_addr"`
	SigningKey                   string          `json:"signing_key"`
	Issuer                       string          `json:"issuer"`
	Audience                     string          `json:"audience"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	PasswordHasher               string          `json:"password_hasher"`
	ChargeSuccessRate            *float64        `json:"charge_success_rate"`
	RefundSuccessRate            *float64        `json:"refund_success_rate"`
	ProcessingDelay              *timex.Duration `json:"processing_delay"`
	LogLevel                     string          `json:"log_level"`
}

// parseJson overlays the file named by -c / -config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.Storage, c.Storage)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.SigningKey, c.SigningKey)
	setString(&config.Issuer, c.Issuer)
	setString(&config.Audience, c.Audience)
	setString(&config.PasswordHasher, c.PasswordHasher)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.ProcessingDelay != nil {
		config.ProcessingDelay = c.ProcessingDelay.Duration
	}
	if c.ChargeSuccessRate != nil {
		config.ChargeSuccessRate = *c.ChargeSuccessRate
	}
	if c.RefundSuccessRate != nil {
		config.RefundSuccessRate = *c.RefundSuccessRate
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
