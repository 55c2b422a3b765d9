package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsoleHandlerPullsComponentIntoPrefix(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.With(String(FieldComponent, "watcher")).Info("new file detected", String(FieldFile, "clip.mp4"))

	line := buf.String()
	if !strings.Contains(line, "[watcher]") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "file=clip.mp4") {
		t.Fatalf("expected file attribute, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as a field: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Error("job failed", String("error", "tool crashed badly"))

	if !strings.Contains(buf.String(), `error="tool crashed badly"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	handler := newConsoleHandler(&buf, levelVar)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be suppressed at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should pass at warn level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewComponentLoggerToleratesNilBase(t *testing.T) {
	logger := NewComponentLogger(nil, "worker")
	// Must not panic; the no-op base swallows output.
	logger.Info("ignored")
}

func TestNewJobLoggerTeesToFileAndBase(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, levelVar))

	path := filepath.Join(t.TempDir(), "pipeline.log")
	logger, closeLog, err := NewJobLogger(base, path)
	if err != nil {
		t.Fatalf("NewJobLogger: %v", err)
	}

	logger.Info("silence removed", String(FieldFile, "clip.mp4"))
	if err := closeLog(); err != nil {
		t.Fatalf("close job log: %v", err)
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	for name, output := range map[string]string{"file": string(fileData), "base": buf.String()} {
		if !strings.Contains(output, "silence removed") || !strings.Contains(output, "file=clip.mp4") {
			t.Fatalf("%s output missing record: %q", name, output)
		}
	}
}

func TestNewJobLoggerWritesWhenBaseIsNop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.log")
	logger, closeLog, err := NewJobLogger(NewNop(), path)
	if err != nil {
		t.Fatalf("NewJobLogger: %v", err)
	}

	logger.Info("starting pipeline")
	if err := closeLog(); err != nil {
		t.Fatalf("close job log: %v", err)
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	if !strings.Contains(string(fileData), "starting pipeline") {
		t.Fatalf("job log missing record: %q", fileData)
	}
}
