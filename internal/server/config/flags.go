package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/flagx"
)

// parseFlags populates Config fields from short command-line flags.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-w string   HTTP bind address (e.g. ":8080")
//	-m string   storage backend: memory, postgres or redis
//	-d string   PostgreSQL DSN
//	-r string   Redis address
//	-s string   HS256 signing key
//	-i string   token issuer
//	-u string   token audience
//	-t int      access token validity, minutes
//	-x int      refresh token validity, days
//	-p string   password hasher: argon2id or bcrypt
//	-l string   log level
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-w", "-m", "-d", "-r", "-s", "-i", "-u", "-t", "-x", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port to run server")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.Storage, "m", config.Storage, "storage backend (memory, postgres, redis)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.SigningKey, "s", config.SigningKey, "token signing key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.StringVar(&config.Audience, "u", config.Audience, "token audience")
	fs.StringVar(&config.PasswordHasher, "p", config.PasswordHasher, "password hasher (argon2id, bcrypt)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration/time.Minute), "access token validity (in minutes)")
	refreshDays := fs.Int("x", int(config.RefreshTokenValidityDuration/(24*time.Hour)), "refresh token validity (in days)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// only override durations when given, so sub-unit values from the file
	// or environment survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
		case "x":
			config.RefreshTokenValidityDuration = time.Duration(*refreshDays) * 24 * time.Hour
		}
	})

	return nil
}
