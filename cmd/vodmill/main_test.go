package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vodmill/internal/config"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.TmpDir = filepath.Join(base, "tmp")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite must refuse.
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
}

func TestConfigShowListsSettings(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "paths.input_dir")
	requireContains(t, out, "watcher.extension")
	requireContains(t, out, ".mp4")
}

func TestStatusCommandRendersPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
            "jobId": "J1",
            "fileName": "stream.mp4",
            "stage": "Scene Detection",
            "percent": 50,
            "timestamp": "2026-03-14T12:00:00Z",
            "errorMessage": null
        }`))
	}))
	defer server.Close()

	address := strings.TrimPrefix(server.URL, "http://")
	out, _, err := runCLI(t, []string{"status", "--address", address}, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Scene Detection")
	requireContains(t, out, "stream.mp4")
	requireContains(t, out, "50%")
}

func TestStatusCommandDaemonUnreachable(t *testing.T) {
	_, _, err := runCLI(t, []string{"status", "--address", "127.0.0.1:1"}, "")
	if err == nil {
		t.Fatal("expected an error when no daemon is listening")
	}
	requireContains(t, err.Error(), "unreachable")
}

func TestHistoryCommandEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No jobs recorded yet")
}

func TestDialableAddress(t *testing.T) {
	cases := map[string]string{
		"0.0.0.0:8080":   "127.0.0.1:8080",
		"127.0.0.1:9000": "127.0.0.1:9000",
		"[::]:8080":      "127.0.0.1:8080",
		"example.com:80": "example.com:80",
	}
	for bind, want := range cases {
		if got := dialableAddress(bind); got != want {
			t.Fatalf("dialableAddress(%q) = %q, want %q", bind, got, want)
		}
	}
}
