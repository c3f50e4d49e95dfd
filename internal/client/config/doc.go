// Package config loads runtime configuration for the gophauth CLI client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the API, including the prefix
//	-w int      per-request timeout (seconds)
//	-f string   session database file
//
// # JSON schema
//
//	{
//	  "server_base_url": "http://localhost:3000/api/v1",
//	  "request_timeout": "10s",
//	  "session_file": ".gophauth/session.db"
//	}
package config
