// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vodmill/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
// Event delivery is disabled and the status server binds an ephemeral port.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.TmpDir = filepath.Join(base, "tmp")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StatusBind = "127.0.0.1:0"
	cfg.API.BaseURL = ""

	for _, dir := range []string{cfg.Paths.InputDir, cfg.Paths.OutputDir, cfg.Paths.TmpDir, cfg.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("create test directory %s: %v", dir, err)
		}
	}

	return &cfg
}

// WriteFile creates a file with the given content under dir and returns its path.
func WriteFile(t testing.TB, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
