package watcher

import (
	"context"
	"io/fs"
	"os"
	"sync"
	"testing"
	"time"

	"vodmill/internal/logging"
	"vodmill/internal/testsupport"
)

type fakeFileInfo struct {
	name string
	size int64
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() any           { return nil }

// scriptedStat replays a fixed sequence of sizes (negative means "file
// missing") and then repeats the final entry forever.
type scriptedStat struct {
	mu    sync.Mutex
	sizes []int64
	calls int
}

func (s *scriptedStat) stat(path string) (os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	if idx >= len(s.sizes) {
		idx = len(s.sizes) - 1
	}
	s.calls++

	size := s.sizes[idx]
	if size < 0 {
		return nil, fs.ErrNotExist
	}
	return fakeFileInfo{name: path, size: size}, nil
}

func (s *scriptedStat) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestWatcher(t *testing.T, stableSeconds int, admit AdmitFunc) *Watcher {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.StableSeconds = stableSeconds
	w := New(cfg, admit, logging.NewNop())
	w.pollInterval = 10 * time.Millisecond
	w.checkInterval = 2 * time.Millisecond
	return w
}

func waitAdmitted(t *testing.T, admitted <-chan string) string {
	t.Helper()
	select {
	case path := <-admitted:
		return path
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for admission")
		return ""
	}
}

func TestWatcherAdmitsStableFile(t *testing.T) {
	admitted := make(chan string, 1)
	w := newTestWatcher(t, 2, func(path string) bool {
		admitted <- path
		return true
	})
	input := testsupport.WriteFile(t, w.dir, "episode.mp4", []byte("video"))

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if got := waitAdmitted(t, admitted); got != input {
		t.Fatalf("admitted %q, want %q", got, input)
	}
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	admitted := make(chan string, 1)
	w := newTestWatcher(t, 1, func(path string) bool {
		admitted <- path
		return true
	})
	testsupport.WriteFile(t, w.dir, "notes.txt", []byte("text"))
	testsupport.WriteFile(t, w.dir, "partial.mp4.part", []byte("partial"))

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	select {
	case path := <-admitted:
		t.Fatalf("non-matching file admitted: %q", path)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherWaitsOutGrowth(t *testing.T) {
	admitted := make(chan string, 1)
	w := newTestWatcher(t, 3, func(path string) bool {
		admitted <- path
		return true
	})
	testsupport.WriteFile(t, w.dir, "growing.mp4", []byte("v"))

	// Growing for four checks, then steady. The stability count must
	// restart after every change, so admission needs three further
	// unchanged checks past the last growth.
	script := &scriptedStat{sizes: []int64{100, 200, 300, 400, 400, 400, 400, 400}}
	w.stat = script.stat

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitAdmitted(t, admitted)

	// Checks 1-4 observe growth, checks 5-7 are the three unchanged ones,
	// so admission cannot come before the seventh check.
	if calls := script.callCount(); calls < 7 {
		t.Fatalf("admitted after %d checks, growth must reset the stability count", calls)
	}
}

func TestWatcherToleratesMissingFile(t *testing.T) {
	admitted := make(chan string, 1)
	w := newTestWatcher(t, 2, func(path string) bool {
		admitted <- path
		return true
	})
	testsupport.WriteFile(t, w.dir, "late.mp4", []byte("v"))

	// The first stats miss entirely; the watcher must keep waiting
	// rather than give up on the candidate.
	script := &scriptedStat{sizes: []int64{-1, -1, -1, 500, 500, 500}}
	w.stat = script.stat

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitAdmitted(t, admitted)
}

func TestWatcherAdmitsOnceWhileFilePresent(t *testing.T) {
	admitted := make(chan string, 8)
	w := newTestWatcher(t, 1, func(path string) bool {
		admitted <- path
		return true
	})
	testsupport.WriteFile(t, w.dir, "episode.mp4", []byte("video"))

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitAdmitted(t, admitted)

	// The file stays in the directory until the pipeline archives it.
	// Repeated scans must not admit it again.
	select {
	case path := <-admitted:
		t.Fatalf("readmitted while still present: %q", path)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherRediscoversReplacedFile(t *testing.T) {
	admitted := make(chan string, 8)
	w := newTestWatcher(t, 1, func(path string) bool {
		admitted <- path
		return true
	})
	input := testsupport.WriteFile(t, w.dir, "episode.mp4", []byte("video"))

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitAdmitted(t, admitted)

	if err := os.Remove(input); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Give the scanner a chance to notice the file is gone before it
	// reappears under the same name.
	time.Sleep(50 * time.Millisecond)
	testsupport.WriteFile(t, w.dir, "episode.mp4", []byte("fresh upload"))

	waitAdmitted(t, admitted)
}
