package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations use
// timex.Duration so both "15m" strings and integer nanoseconds are accepted.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessSecretKey              string         `json:"access_secret_key"`
	RefreshSecretKey             string         `json:"refresh_secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	Environment                  string         `json:"environment"`
	CORSOrigin                   string         `json:"cors_origin"`
	APIPrefix                    string         `json:"api_prefix"`
	PasswordHashAlgorithm        string         `json:"password_hash_algorithm"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	RequestTimeout               timex.Duration `json:"request_timeout"`
}

// parseJson overlays values from the file named by -c/-config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigFile(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessSecretKey, c.AccessSecretKey)
	setString(&config.RefreshSecretKey, c.RefreshSecretKey)
	setString(&config.Environment, c.Environment)
	setString(&config.CORSOrigin, c.CORSOrigin)
	setString(&config.APIPrefix, c.APIPrefix)
	setString(&config.PasswordHashAlgorithm, c.PasswordHashAlgorithm)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.RequestTimeout.Duration != 0 {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
