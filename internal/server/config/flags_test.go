package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected func() Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-w", "127.0.0.1:8081", "-m", "redis", "-d", "db", "-r", "cache:6379",
				"-s", "secret", "-i", "iss", "-u", "aud", "-t", "1", "-x", "3", "-p", "bcrypt", "-l", "warn",
			},
			expected: func() Config {
				c := defaults()
				c.EndpointAddrGRPC = "127.0.0.1:9090"
				c.EndpointAddrHTTP = "127.0.0.1:8081"
				c.Storage = "redis"
				c.DatabaseDSN = "db"
				c.RedisAddr = "cache:6379"
				c.SigningKey = "secret"
				c.Issuer = "iss"
				c.Audience = "aud"
				c.AccessTokenValidityDuration = time.Minute
				c.RefreshTokenValidityDuration = 3 * 24 * time.Hour
				c.PasswordHasher = "bcrypt"
				c.LogLevel = "warn"
				return c
			},
		},
		{
			name:     "foreign flags ignored",
			args:     []string{"-c", "cfg.json", "-v", "-s=inline"},
			expected: func() Config { c := defaults(); c.SigningKey = "inline"; return c },
		},
		{
			name:     "no flags keep values",
			args:     nil,
			expected: defaults,
		},
		{
			name:    "bad int",
			args:    []string{"-x", "week"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := defaults()
			err := parseFlags(&config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected(), config))
		})
	}
}

func TestParseFlags_KeepsSubMinuteDurations(t *testing.T) {
	config := defaults()
	config.AccessTokenValidityDuration = 90 * time.Second

	require.NoError(t, parseFlags(&config, []string{"-s", "k"}))
	assert.Equal(t, 90*time.Second, config.AccessTokenValidityDuration)
}
