package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vodmill/internal/config"
	"vodmill/internal/fileutil"
	"vodmill/internal/jobstate"
	"vodmill/internal/logging"
	"vodmill/internal/media"
)

// Pipeline stage labels and their fixed checkpoint percents. The percents
// are design constants, not measurements.
const (
	StageSilenceRemoval      = "Silence Removal"
	StageSceneDetection      = "Scene Detection"
	StageHighlightExtraction = "Highlight Extraction"
	StageArchiving           = "Archiving"
)

// Files every job leaves behind in its output dir besides the highlights.
const (
	cleanFileName = "clean.mp4"
	jobLogName    = "pipeline.log"
)

const (
	percentSilenceStart   = 10
	percentSilenceDone    = 40
	percentScenesStart    = 50
	percentScenesDone     = 70
	percentHighlightStart = 75
	percentHighlightDone  = 90
	percentArchiving      = 95
)

// Stages is the collaborator surface the driver sequences. media.Toolset is
// the production implementation.
type Stages interface {
	Duration(ctx context.Context, path string) (float64, error)
	RemoveSilence(ctx context.Context, input, output string) error
	DetectScenes(ctx context.Context, input, outDir string) ([]media.Scene, error)
	ExtractHighlights(ctx context.Context, input string, scenes []media.Scene, outDir string) ([]string, error)
}

// Emitter relays lifecycle events; status.Client is the production
// implementation. The bool result is advisory only.
type Emitter interface {
	EmitEvent(ctx context.Context, jobID, fileName, stage string, percent int, errorMessage string) bool
}

// Result summarizes one pipeline run. JobID, FileName, and the timestamps
// are populated even when the run fails.
type Result struct {
	JobID            string
	FileName         string
	OutputDir        string
	Highlights       []string
	OriginalDuration float64
	CleanDuration    float64
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Driver runs the processing stages for one file and reports every stage
// boundary through the emitter. One driver is shared by all jobs; it holds
// no per-job state.
type Driver struct {
	cfg     *config.Config
	stages  Stages
	emitter Emitter
	logger  *slog.Logger

	newJobID func() string
}

// NewDriver wires a driver from its collaborators.
func NewDriver(cfg *config.Config, stages Stages, emitter Emitter, logger *slog.Logger) *Driver {
	return &Driver{
		cfg:      cfg,
		stages:   stages,
		emitter:  emitter,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		newJobID: uuid.NewString,
	}
}

// Run processes inputPath through every stage. On any collaborator error a
// Failed event is emitted at the last known percent and the error is
// returned to the caller; the caller decides what failure means (the worker
// only logs it and moves on).
func (d *Driver) Run(ctx context.Context, inputPath string) (Result, error) {
	jobID := d.newJobID()
	fileName := filepath.Base(inputPath)
	result := Result{
		JobID:     jobID,
		FileName:  fileName,
		StartedAt: time.Now().UTC(),
	}

	logger := d.logger.With(
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldFile, fileName),
	)

	currentPercent := 0
	d.emitter.EmitEvent(ctx, jobID, fileName, jobstate.StageStarting, currentPercent, "")

	fail := func(stage string, err error) (Result, error) {
		wrapped := fmt.Errorf("%s: %w", strings.ToLower(stage), err)
		logger.Error("pipeline failed",
			logging.Error(wrapped),
			logging.Int("percent", currentPercent),
		)
		d.emitter.EmitEvent(ctx, jobID, fileName, jobstate.StageFailed, currentPercent, wrapped.Error())
		result.FinishedAt = time.Now().UTC()
		return result, wrapped
	}

	jobDir := filepath.Join(d.cfg.Paths.OutputDir, stem(fileName))
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fail("prepare output", err)
	}
	result.OutputDir = jobDir

	// The job dir keeps its own log next to the produced files.
	if jobLogger, closeLog, err := logging.NewJobLogger(logger, filepath.Join(jobDir, jobLogName)); err != nil {
		logger.Warn("per-job log unavailable", logging.Error(err))
	} else {
		logger = jobLogger
		defer closeLog()
	}
	logger.Info("starting pipeline")

	// Encoder scratch. The clean cut is staged here and moved into the job
	// dir so consumers never see a partially written file.
	workDir := filepath.Join(d.cfg.Paths.TmpDir, jobID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fail("prepare work directory", err)
	}
	defer os.RemoveAll(workDir)

	originalDuration, err := d.stages.Duration(ctx, inputPath)
	if err != nil {
		return fail("probe duration", err)
	}
	result.OriginalDuration = originalDuration
	logger.Info("probed original duration", logging.Float64("seconds", originalDuration))

	currentPercent = percentSilenceStart
	d.emitter.EmitEvent(ctx, jobID, fileName, StageSilenceRemoval, currentPercent, "")

	stagedClean := filepath.Join(workDir, cleanFileName)
	if err := d.stages.RemoveSilence(ctx, inputPath, stagedClean); err != nil {
		return fail(StageSilenceRemoval, err)
	}
	cleanPath := filepath.Join(jobDir, cleanFileName)
	if err := fileutil.MoveFile(stagedClean, cleanPath); err != nil {
		return fail(StageSilenceRemoval, err)
	}
	currentPercent = percentSilenceDone
	d.emitter.EmitEvent(ctx, jobID, fileName, StageSilenceRemoval, currentPercent, "")

	cleanDuration, err := d.stages.Duration(ctx, cleanPath)
	if err != nil {
		return fail(StageSilenceRemoval, err)
	}
	result.CleanDuration = cleanDuration
	logger.Info("silence removed",
		logging.Float64("clean_seconds", cleanDuration),
		logging.Float64("removed_seconds", originalDuration-cleanDuration),
	)

	currentPercent = percentScenesStart
	d.emitter.EmitEvent(ctx, jobID, fileName, StageSceneDetection, currentPercent, "")

	scenes, err := d.stages.DetectScenes(ctx, cleanPath, jobDir)
	if err != nil {
		return fail(StageSceneDetection, err)
	}
	logger.Info("scenes detected", logging.Int("count", len(scenes)))
	currentPercent = percentScenesDone
	d.emitter.EmitEvent(ctx, jobID, fileName, StageSceneDetection, currentPercent, "")

	currentPercent = percentHighlightStart
	d.emitter.EmitEvent(ctx, jobID, fileName, StageHighlightExtraction, currentPercent, "")

	highlights, err := d.stages.ExtractHighlights(ctx, cleanPath, scenes, jobDir)
	if err != nil {
		return fail(StageHighlightExtraction, err)
	}
	result.Highlights = highlights
	logger.Info("highlights extracted", logging.Int("count", len(highlights)))
	currentPercent = percentHighlightDone
	d.emitter.EmitEvent(ctx, jobID, fileName, StageHighlightExtraction, currentPercent, "")

	currentPercent = percentArchiving
	d.emitter.EmitEvent(ctx, jobID, fileName, StageArchiving, currentPercent, "")

	if err := d.archiveOriginal(inputPath); err != nil {
		return fail(StageArchiving, err)
	}

	d.emitter.EmitEvent(ctx, jobID, fileName, jobstate.StageCompleted, 100, "")
	result.FinishedAt = time.Now().UTC()
	logger.Info("pipeline finished",
		logging.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
		logging.Int("highlights", len(highlights)),
	)
	return result, nil
}

// archiveOriginal moves the processed input into the archive directory so
// the watcher never sees it again.
func (d *Driver) archiveOriginal(inputPath string) error {
	archiveDir := d.cfg.ArchiveDir()
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	target := filepath.Join(archiveDir, filepath.Base(inputPath))
	if err := fileutil.MoveFile(inputPath, target); err != nil {
		return fmt.Errorf("move original to archive: %w", err)
	}
	return nil
}

func stem(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
