package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// NewJobLogger returns a logger that appends a console-formatted copy of
// every record to path in addition to whatever base already writes. The
// caller owns the returned close function.
func NewJobLogger(base *slog.Logger, path string) (*slog.Logger, func() error, error) {
	if base == nil {
		base = NewNop()
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, nil, fmt.Errorf("open job log %s: %w", path, err)
	}
	levelVar := new(slog.LevelVar)
	handler := teeHandler{base.Handler(), newConsoleHandler(file, levelVar)}
	return slog.New(handler), file.Close, nil
}

// teeHandler fans every record out to both wrapped handlers.
type teeHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	if h.primary.Enabled(ctx, record.Level) {
		firstErr = h.primary.Handle(ctx, record.Clone())
	}
	if h.secondary.Enabled(ctx, record.Level) {
		if err := h.secondary.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{h.primary.WithAttrs(attrs), h.secondary.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{h.primary.WithGroup(name), h.secondary.WithGroup(name)}
}
