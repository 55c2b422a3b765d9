package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vodmill/internal/config"
	"vodmill/internal/logging"
)

// AdmitFunc receives the path of a file that finished stabilizing. The bool
// result reports whether the file was accepted; a false return means the
// path is already queued or in flight and is logged, nothing more.
type AdmitFunc func(path string) bool

type statFunc func(path string) (os.FileInfo, error)

// Watcher polls the input directory for new recordings and hands each one
// to the admit function once its size has stopped changing. Every candidate
// stabilizes in its own goroutine so one slow upload never blocks discovery
// of the next file.
type Watcher struct {
	dir          string
	extension    string
	admit        AdmitFunc
	logger       *slog.Logger
	pollInterval time.Duration

	// Stability detection: the candidate is admitted after stablePolls
	// consecutive size checks, one checkInterval apart, observe the same
	// size. Any size change resets the count; a stat miss holds it, since
	// uploaders may create the file only after announcing it.
	stablePolls   int
	checkInterval time.Duration

	stat statFunc

	mu      sync.Mutex
	running bool
	tracked map[string]struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a watcher over the configured input directory.
func New(cfg *config.Config, admit AdmitFunc, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:           cfg.Paths.InputDir,
		extension:     strings.ToLower(cfg.Watcher.Extension),
		admit:         admit,
		logger:        logging.NewComponentLogger(logger, "watcher"),
		pollInterval:  time.Duration(cfg.Watcher.PollInterval) * time.Second,
		stablePolls:   cfg.Watcher.StableSeconds,
		checkInterval: time.Second,
		stat:          os.Stat,
		tracked:       make(map[string]struct{}),
	}
}

// Start launches the directory polling loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("watcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx)
	return nil
}

// Stop cancels the loop and waits for every stabilization goroutine.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	w.logger.Info("watching input directory", logging.String("dir", w.dir))

	w.scan(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// scan lists the directory once, starts stabilization for unseen matching
// files, and forgets tracked names that left the directory so a re-upload
// under the same name is picked up again.
func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("read input directory", logging.Error(err))
		return
	}

	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !w.matches(entry.Name()) {
			continue
		}
		present[entry.Name()] = struct{}{}
	}

	w.mu.Lock()
	for name := range w.tracked {
		if _, ok := present[name]; !ok {
			delete(w.tracked, name)
		}
	}
	var fresh []string
	for name := range present {
		if _, ok := w.tracked[name]; ok {
			continue
		}
		w.tracked[name] = struct{}{}
		fresh = append(fresh, name)
	}
	w.mu.Unlock()

	for _, name := range fresh {
		path := filepath.Join(w.dir, name)
		w.logger.Info("discovered candidate", logging.String(logging.FieldFile, name))
		w.wg.Add(1)
		go w.stabilize(ctx, path)
	}
}

func (w *Watcher) matches(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == w.extension
}

// stabilize watches one candidate until its size holds steady, then admits
// it. The goroutine exits on cancellation or admission; the tracked entry
// outlives it so the same in-directory file is never stabilized twice.
func (w *Watcher) stabilize(ctx context.Context, path string) {
	defer w.wg.Done()

	name := filepath.Base(path)
	logger := w.logger.With(logging.String(logging.FieldFile, name))

	var lastSize int64 = -1
	stableCount := 0

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := w.stat(path)
		if err != nil {
			// Not there yet, or transiently unreadable. Keep waiting.
			continue
		}

		size := info.Size()
		if size == lastSize {
			stableCount++
		} else {
			stableCount = 0
			lastSize = size
		}

		if stableCount >= w.stablePolls {
			if w.admit(path) {
				logger.Info("file stable, queued",
					logging.Int64("size_bytes", size),
				)
			} else {
				logger.Info("file stable, already queued")
			}
			return
		}
	}
}
