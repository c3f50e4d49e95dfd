package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   API base URL
//	-w int      request timeout in seconds
//	-f string   session database file
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "API base URL")
	requestTimeout := fs.Int("w", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.SessionFile, "f", cfg.SessionFile, "session database file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if flagx.Explicit(fs)["w"] {
		cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	}
}
