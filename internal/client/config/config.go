package config

import "time"

// Config holds runtime settings for the CLI client.
//
// Fields:
//   - ServerBaseURL: API root, e.g. http://localhost:3000/api/v1.
//   - RequestTimeout: deadline applied to every HTTP call, refresh included.
//   - SessionFile: SQLite file keeping the session between runs. A relative
//     path is resolved against the working directory.
type Config struct {
	ServerBaseURL  string
	RequestTimeout time.Duration
	SessionFile    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:3000/api/v1"
	c.RequestTimeout = 10 * time.Second
	c.SessionFile = ".gophauth/session.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
