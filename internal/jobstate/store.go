package jobstate

import (
	"sync"
	"time"
)

// Reserved stage labels. Pipeline stages use free-form labels such as
// "Silence Removal"; these four carry lifecycle meaning.
const (
	StageIdle      = "Idle"
	StageStarting  = "Starting"
	StageCompleted = "Completed"
	StageFailed    = "Failed"
)

// Snapshot is an immutable copy of the store's current record. Callers may
// retain it freely; a concurrent mutation never alters a returned snapshot.
type Snapshot struct {
	JobID         string
	FileName      string
	Stage         string
	Percent       int
	StartedAt     time.Time
	LastUpdatedAt time.Time
	ErrorMessage  string
	IsRunning     bool
}

// Store is the single-slot, thread-safe record of the currently (or most
// recently) active job. Exactly one Store exists per process; it is
// constructed at startup and handed to the watcher, worker, event client,
// and status server.
type Store struct {
	mu    sync.Mutex
	state Snapshot
	now   func() time.Time
}

// NewStore returns a store in the idle state.
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.state = Snapshot{
		Stage:         StageIdle,
		LastUpdatedAt: s.now().UTC(),
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start records a new job. Any terminal record from the previous job is
// overwritten.
func (s *Store) Start(jobID, fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	s.state = Snapshot{
		JobID:         jobID,
		FileName:      fileName,
		Stage:         StageStarting,
		Percent:       0,
		StartedAt:     now,
		LastUpdatedAt: now,
		IsRunning:     true,
	}
}

// UpdateStage records a stage transition with its checkpoint percent.
// The error message is untouched; only Fail sets it.
func (s *Store) UpdateStage(stage string, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Stage = stage
	s.state.Percent = percent
	s.state.LastUpdatedAt = s.now().UTC()
}

// UpdateProgress records progress within the current stage.
func (s *Store) UpdateProgress(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Percent = percent
	s.state.LastUpdatedAt = s.now().UTC()
}

// Complete marks the job finished. The job id and file name stay populated
// as a terminal record until the next Start or an explicit ResetToIdle.
func (s *Store) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Stage = StageCompleted
	s.state.Percent = 100
	s.state.IsRunning = false
	s.state.LastUpdatedAt = s.now().UTC()
}

// Fail marks the job failed, keeping the percent at its last value.
func (s *Store) Fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Stage = StageFailed
	s.state.ErrorMessage = message
	s.state.IsRunning = false
	s.state.LastUpdatedAt = s.now().UTC()
}

// ResetToIdle clears the record back to the initial state.
func (s *Store) ResetToIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Snapshot{
		Stage:         StageIdle,
		LastUpdatedAt: s.now().UTC(),
	}
}
