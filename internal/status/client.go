package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vodmill/internal/config"
	"vodmill/internal/jobstate"
	"vodmill/internal/logging"
)

const eventPath = "/api/events/job"

// defaultErrorMessage is reported when a job fails without a usable message.
const defaultErrorMessage = "Unknown error"

// Client posts job lifecycle events to the remote API and mirrors every
// event into the local job state store before any network I/O, so the
// status endpoint stays authoritative even when the API is unreachable.
//
// All methods return whether the event reached the API; they never block
// the pipeline on network failure beyond the bounded retry schedule and
// never return an error.
type Client struct {
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	store      *jobstate.Store
	httpClient *http.Client
	logger     *slog.Logger
	enabled    bool

	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient builds a client from the [api] config section. An empty base
// URL permanently disables transmission: local state is still updated but
// no request is ever attempted.
func NewClient(cfg *config.Config, store *jobstate.Store, logger *slog.Logger) *Client {
	base := ""
	maxRetries := 3
	retryDelay := time.Second
	timeout := 5 * time.Second
	if cfg != nil {
		base = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
		if cfg.API.MaxRetries > 0 {
			maxRetries = cfg.API.MaxRetries
		}
		if cfg.API.RetryDelay > 0 {
			retryDelay = time.Duration(cfg.API.RetryDelay) * time.Second
		}
		if cfg.API.RequestTimeout > 0 {
			timeout = time.Duration(cfg.API.RequestTimeout) * time.Second
		}
	}

	return &Client{
		baseURL:    base,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		store:      store,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "status-client"),
		enabled:    base != "",
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Enabled reports whether events are transmitted to a remote API.
func (c *Client) Enabled() bool { return c.enabled }

// PostStarted records and emits a job-started event.
func (c *Client) PostStarted(ctx context.Context, jobID, fileName string) bool {
	c.store.Start(jobID, fileName)
	return c.post(ctx, newEvent(KindStarted, jobID, fileName, jobstate.StageStarting, 0, "", c.now()))
}

// PostStageChanged records and emits a stage-transition event.
func (c *Client) PostStageChanged(ctx context.Context, jobID, fileName, stage string, percent int) bool {
	c.store.UpdateStage(stage, percent)
	return c.post(ctx, newEvent(KindStageChanged, jobID, fileName, stage, percent, "", c.now()))
}

// PostProgress records and emits a progress event within the current stage.
func (c *Client) PostProgress(ctx context.Context, jobID, fileName, stage string, percent int) bool {
	c.store.UpdateProgress(percent)
	return c.post(ctx, newEvent(KindProgress, jobID, fileName, stage, percent, "", c.now()))
}

// PostCompleted records and emits a job-completed event.
func (c *Client) PostCompleted(ctx context.Context, jobID, fileName string) bool {
	c.store.Complete()
	return c.post(ctx, newEvent(KindCompleted, jobID, fileName, jobstate.StageCompleted, 100, "", c.now()))
}

// PostFailed records and emits a job-failed event at the last known percent.
func (c *Client) PostFailed(ctx context.Context, jobID, fileName, message string, percent int) bool {
	if strings.TrimSpace(message) == "" {
		message = defaultErrorMessage
	}
	c.store.Fail(message)
	return c.post(ctx, newEvent(KindFailed, jobID, fileName, jobstate.StageFailed, percent, message, c.now()))
}

// EmitEvent is the unified emission entry point. The event kind is derived
// once, here: the reserved stage labels map to started/completed/failed,
// and any other label is a stage change when it differs from the stored
// stage, otherwise a progress update.
func (c *Client) EmitEvent(ctx context.Context, jobID, fileName, stage string, percent int, errorMessage string) bool {
	switch stage {
	case jobstate.StageStarting:
		return c.PostStarted(ctx, jobID, fileName)
	case jobstate.StageCompleted:
		return c.PostCompleted(ctx, jobID, fileName)
	case jobstate.StageFailed:
		return c.PostFailed(ctx, jobID, fileName, errorMessage, percent)
	default:
		if c.store.Snapshot().Stage != stage {
			return c.PostStageChanged(ctx, jobID, fileName, stage, percent)
		}
		return c.PostProgress(ctx, jobID, fileName, stage, percent)
	}
}

func (c *Client) post(ctx context.Context, evt Event) bool {
	if !c.enabled {
		c.logger.Debug("event delivery disabled, skipping", logging.String(logging.FieldStage, evt.Stage))
		return false
	}

	body, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("marshal event", logging.Error(err), logging.String(logging.FieldStage, evt.Stage))
		return false
	}
	endpoint := c.baseURL + eventPath

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.send(ctx, endpoint, body)
		if err == nil {
			c.logger.Debug("event posted",
				logging.String(logging.FieldStage, evt.Stage),
				logging.Int("attempt", attempt),
			)
			return true
		}
		c.logger.Warn("event post failed",
			logging.Error(err),
			logging.String(logging.FieldStage, evt.Stage),
			logging.Int("attempt", attempt),
		)
		if attempt < c.maxRetries {
			c.sleep(c.retryDelay)
		}
	}

	c.logger.Warn("event dropped after retries",
		logging.String(logging.FieldStage, evt.Stage),
		logging.Int("attempts", c.maxRetries),
	)
	return false
}

func (c *Client) send(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
