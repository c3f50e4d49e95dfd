package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/joho/godotenv"
)

// dotEnvFile is read before the environment is inspected. Variables already
// set in the process environment win over the file.
var dotEnvFile = ".env"

// parseEnv overlays values from environment variables:
//
//	SERVER_ADDRESS            bind address (":3000")
//	DATABASE_URL              PostgreSQL DSN or "memory://"
//	JWT_SECRET                access token secret
//	JWT_REFRESH_SECRET        refresh token secret
//	JWT_EXPIRES_IN            access token lifetime ("15m", "1h")
//	JWT_REFRESH_EXPIRES_IN    refresh token lifetime ("7d", "168h")
//	APP_ENV                   development | production | test
//	CORS_ORIGIN               allowed browser origin
//	API_PREFIX                route prefix ("/api/v1")
//	PASSWORD_HASH_ALGORITHM   bcrypt | argon2id
//	BCRYPT_COST               bcrypt work factor
//	REQUEST_TIMEOUT           per-request store deadline ("30s")
//
// Malformed numbers or durations panic, the same as a broken JSON file.
func parseEnv(config *Config) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("load %s: %w", dotEnvFile, err))
	}

	envString(&config.EndpointAddrHTTP, "SERVER_ADDRESS")
	envString(&config.DatabaseDSN, "DATABASE_URL")
	envString(&config.AccessSecretKey, "JWT_SECRET")
	envString(&config.RefreshSecretKey, "JWT_REFRESH_SECRET")
	envString(&config.Environment, "APP_ENV")
	envString(&config.CORSOrigin, "CORS_ORIGIN")
	envString(&config.APIPrefix, "API_PREFIX")
	envString(&config.PasswordHashAlgorithm, "PASSWORD_HASH_ALGORITHM")

	envDuration(&config.AccessTokenValidityDuration, "JWT_EXPIRES_IN")
	envDuration(&config.RefreshTokenValidityDuration, "JWT_REFRESH_EXPIRES_IN")
	envDuration(&config.RequestTimeout, "REQUEST_TIMEOUT")

	if v, ok := lookup("BCRYPT_COST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("BCRYPT_COST: %w", err))
		}
		config.BcryptCost = n
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func envString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	d, err := timex.ParseDays(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}
