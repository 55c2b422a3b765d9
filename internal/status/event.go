package status

import (
	"time"
)

// Kind classifies a lifecycle event. The kind travels with the event inside
// the process so nothing downstream has to re-derive it from stage labels;
// it is not part of the wire format.
type Kind string

const (
	KindStarted      Kind = "started"
	KindStageChanged Kind = "stageChanged"
	KindProgress     Kind = "progress"
	KindCompleted    Kind = "completed"
	KindFailed       Kind = "failed"
)

// Event is the payload posted to {base_url}/api/events/job. The JSON shape
// matches the status endpoint's response exactly.
type Event struct {
	Kind         Kind    `json:"-"`
	JobID        string  `json:"jobId"`
	FileName     string  `json:"fileName"`
	Stage        string  `json:"stage"`
	Percent      int     `json:"percent"`
	Timestamp    string  `json:"timestamp"`
	ErrorMessage *string `json:"errorMessage"`
}

func newEvent(kind Kind, jobID, fileName, stage string, percent int, errorMessage string, at time.Time) Event {
	evt := Event{
		Kind:      kind,
		JobID:     jobID,
		FileName:  fileName,
		Stage:     stage,
		Percent:   percent,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
	if errorMessage != "" {
		evt.ErrorMessage = &errorMessage
	}
	return evt
}
