package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/timex"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "MOCKPAY_"

// parseEnv overlays MOCKPAY_* variables. Keys are the JSON field names in
// upper case, e.g. MOCKPAY_SIGNING_KEY or MOCKPAY_PROCESSING_DELAY.
func parseEnv(config *Config) error {
	k := koanf.New(".")

	transform := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	strs := map[string]*string{
		"endpoint_addr_grpc": &config.EndpointAddrGRPC,
		"endpoint_addr_http": &config.EndpointAddrHTTP,
		"storage":            &config.Storage,
		"database_dsn":       &config.DatabaseDSN,
		"redis_addr":         &config.RedisAddr,
		"signing_key":        &config.SigningKey,
		"issuer":             &config.Issuer,
		"audience":           &config.Audience,
		"password_hasher":    &config.PasswordHasher,
		"log_level":          &config.LogLevel,
	}
	for key, dst := range strs {
		if k.Exists(key) {
			*dst = k.String(key)
		}
	}

	durations := map[string]*time.Duration{
		"access_token_validity_duration":  &config.AccessTokenValidityDuration,
		"refresh_token_validity_duration": &config.RefreshTokenValidityDuration,
		"processing_delay":                &config.ProcessingDelay,
	}
	for key, dst := range durations {
		if !k.Exists(key) {
			continue
		}
		d, err := timex.ParseDuration(k.String(key))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
		*dst = d
	}

	rates := map[string]*float64{
		"charge_success_rate": &config.ChargeSuccessRate,
		"refund_success_rate": &config.RefundSuccessRate,
	}
	for key, dst := range rates {
		if !k.Exists(key) {
			continue
		}
		f, err := strconv.ParseFloat(k.String(key), 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
		*dst = f
	}

	return nil
}
