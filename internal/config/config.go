package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	InputDir   string `toml:"input_dir"`
	OutputDir  string `toml:"output_dir"`
	TmpDir     string `toml:"tmp_dir"`
	LogDir     string `toml:"log_dir"`
	StatusBind string `toml:"status_bind"`
}

// API contains configuration for the remote job-event endpoint.
type API struct {
	BaseURL        string `toml:"base_url"`
	MaxRetries     int    `toml:"max_retries"`
	RetryDelay     int    `toml:"retry_delay"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Watcher contains configuration for input directory monitoring.
type Watcher struct {
	PollInterval  int    `toml:"poll_interval"`
	StableSeconds int    `toml:"stable_seconds"`
	Extension     string `toml:"extension"`
}

// Silence contains configuration for the silence-removal stage.
type Silence struct {
	NoiseDB     float64 `toml:"noise_db"`
	MinDuration float64 `toml:"min_duration"`
}

// Highlights contains configuration for the highlight-extraction stage.
type Highlights struct {
	MaxCount    int     `toml:"max_count"`
	MinDuration float64 `toml:"min_duration"`
	MaxDuration float64 `toml:"max_duration"`
}

// Tools contains the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg      string `toml:"ffmpeg"`
	FFprobe     string `toml:"ffprobe"`
	SceneDetect string `toml:"scenedetect"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vodmill.
//
// Configuration sections by subsystem:
//   - Paths: input/output/tmp/log directories and status server bind
//   - API: remote job-event endpoint and retry policy
//   - Watcher: poll cadence and file stability window
//   - Silence/Highlights: pipeline stage tuning
//   - Tools: external binary locations
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	API        API        `toml:"api"`
	Watcher    Watcher    `toml:"watcher"`
	Silence    Silence    `toml:"silence"`
	Highlights Highlights `toml:"highlights"`
	Tools      Tools      `toml:"tools"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vodmill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. The boolean reports whether a file was found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if base := strings.TrimSpace(os.Getenv("API_BASE_URL")); base != "" {
		cfg.API.BaseURL = base
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vodmill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ArchiveDir returns the directory processed originals are moved into.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.Paths.InputDir, "Archive")
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InputDir, c.Paths.OutputDir, c.Paths.TmpDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeWatcher()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TmpDir) == "" {
		c.Paths.TmpDir = defaultTmpDir
	}
	if c.Paths.TmpDir, err = expandPath(c.Paths.TmpDir); err != nil {
		return fmt.Errorf("paths.tmp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.StatusBind = strings.TrimSpace(c.Paths.StatusBind)
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.MaxRetries <= 0 {
		c.API.MaxRetries = defaultAPIMaxRetries
	}
	if c.API.RetryDelay <= 0 {
		c.API.RetryDelay = defaultAPIRetryDelay
	}
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = defaultAPIRequestTimeout
	}
}

func (c *Config) normalizeWatcher() {
	if c.Watcher.PollInterval <= 0 {
		c.Watcher.PollInterval = defaultWatcherPollInterval
	}
	if c.Watcher.StableSeconds <= 0 {
		c.Watcher.StableSeconds = defaultWatcherStableSeconds
	}
	ext := strings.ToLower(strings.TrimSpace(c.Watcher.Extension))
	if ext == "" {
		ext = defaultWatcherExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Watcher.Extension = ext
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Tools.SceneDetect) == "" {
		c.Tools.SceneDetect = defaultSceneDetectBinary
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// ExpandPath resolves a user-supplied path, expanding a leading tilde.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
