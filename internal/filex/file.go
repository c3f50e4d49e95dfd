// Package filex resolves on-disk locations used by the client.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureFileDir makes path absolute (relative paths are taken from the
// working directory) and creates its parent directory, readable by the
// owner only. The file itself is not created.
func EnsureFileDir(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return path, nil
}
