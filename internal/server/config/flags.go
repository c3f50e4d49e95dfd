package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-d string   database DSN
//	-s string   access token secret
//	-k string   refresh token secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-e string   environment
//	-o string   allowed CORS origin
//	-p string   API route prefix
//	-m string   password hash algorithm (bcrypt, argon2id)
//	-b int      bcrypt cost
//	-w int      request timeout, seconds
//
// Only these flags are kept from os.Args (see flagx.FilterArgs), so -c/-config
// and flags of other components do not collide. Duration flags only apply
// when given explicitly.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-k", "-t", "-r", "-e", "-o", "-p", "-m", "-b", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessSecretKey, "s", config.AccessSecretKey, "access token secret")
	fs.StringVar(&config.RefreshSecretKey, "k", config.RefreshSecretKey, "refresh token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.Environment, "e", config.Environment, "environment (development, production, test)")
	fs.StringVar(&config.CORSOrigin, "o", config.CORSOrigin, "allowed CORS origin")
	fs.StringVar(&config.APIPrefix, "p", config.APIPrefix, "API prefix")
	fs.StringVar(&config.PasswordHashAlgorithm, "m", config.PasswordHashAlgorithm, "password hash algorithm")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")

	requestTimeout := fs.Int("w", int(config.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// whole-unit flags would truncate sub-minute values coming from env or JSON
	set := flagx.Explicit(fs)
	if set["t"] {
		config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	}
	if set["r"] {
		config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	}
	if set["w"] {
		config.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	}
}
