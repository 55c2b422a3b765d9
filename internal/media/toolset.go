package media

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"vodmill/internal/config"
	"vodmill/internal/logging"
)

type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Toolset wraps the external media tools (ffmpeg, ffprobe, scenedetect) the
// pipeline stages shell out to. Each method runs one tool to completion and
// surfaces failures as errors carrying the tool's trailing output.
type Toolset struct {
	cfg    *config.Config
	runner commandRunner
	logger *slog.Logger
}

// NewToolset builds a toolset from the configured binary locations.
func NewToolset(cfg *config.Config, logger *slog.Logger) *Toolset {
	return &Toolset{
		cfg:    cfg,
		runner: execCommandRunner{},
		logger: logging.NewComponentLogger(logger, "media"),
	}
}

// Duration returns the container duration of path in seconds.
func (t *Toolset) Duration(ctx context.Context, path string) (float64, error) {
	out, err := t.runner.CombinedOutput(ctx, t.cfg.Tools.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, toolError("ffprobe", out, err)
	}
	value := strings.TrimSpace(string(out))
	duration, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", value, err)
	}
	return duration, nil
}

// toolError wraps a tool failure with the last lines of its output, which is
// where ffmpeg and friends put the actual reason.
func toolError(tool string, output []byte, err error) error {
	trimmed := strings.TrimSpace(string(output))
	lines := strings.Split(trimmed, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	tail := strings.TrimSpace(strings.Join(lines, "\n"))
	if tail == "" {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return fmt.Errorf("%s: %w: %s", tool, err, tail)
}
