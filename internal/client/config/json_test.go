package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_base_url": "https://api.example/v1",
		"request_timeout": "5s",
		"session_file":    "s.db",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "https://api.example/v1", cfg.ServerBaseURL)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "s.db", cfg.SessionFile)
	})

	t.Run("partial file keeps the rest", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"request_timeout": "1m"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{ServerBaseURL: "keep", SessionFile: "keep.db"}
		parseJson(cfg)

		assert.Equal(t, "keep", cfg.ServerBaseURL)
		assert.Equal(t, time.Minute, cfg.RequestTimeout)
		assert.Equal(t, "keep.db", cfg.SessionFile)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{ServerBaseURL: "defaults", RequestTimeout: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "defaults", cfg.ServerBaseURL)
		assert.Equal(t, 42*time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
