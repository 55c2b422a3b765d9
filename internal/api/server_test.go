package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vodmill/internal/jobstate"
	"vodmill/internal/logging"
	"vodmill/internal/testsupport"
)

func newTestServer(t *testing.T) (*Server, *jobstate.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := jobstate.NewStore()
	return NewServer(cfg, store, logging.NewNop()), store
}

func getStatus(t *testing.T, srv *Server) (StatusPayload, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status: %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type: %q", got)
	}
	var payload StatusPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload, rec
}

func TestStatusIdleByDefault(t *testing.T) {
	srv, _ := newTestServer(t)
	fixed := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return fixed }

	payload, _ := getStatus(t, srv)
	if payload.Stage != jobstate.StageIdle || payload.Percent != 0 {
		t.Fatalf("expected idle payload, got %+v", payload)
	}
	if payload.JobID != nil || payload.FileName != nil || payload.ErrorMessage != nil {
		t.Fatalf("idle payload must null out job identity: %+v", payload)
	}
	if payload.Timestamp != "2026-03-14T12:00:00Z" {
		t.Fatalf("idle timestamp must be current time: %q", payload.Timestamp)
	}
}

func TestStatusShowsRunningJob(t *testing.T) {
	srv, store := newTestServer(t)

	store.Start("J1", "stream.mp4")
	store.UpdateStage("Scene Detection", 50)

	payload, _ := getStatus(t, srv)
	if payload.JobID == nil || *payload.JobID != "J1" {
		t.Fatalf("missing job id: %+v", payload)
	}
	if payload.FileName == nil || *payload.FileName != "stream.mp4" {
		t.Fatalf("missing file name: %+v", payload)
	}
	if payload.Stage != "Scene Detection" || payload.Percent != 50 {
		t.Fatalf("stage not reflected: %+v", payload)
	}
	if payload.ErrorMessage != nil {
		t.Fatalf("running job must not carry an error: %+v", payload)
	}
}

func TestStatusCompletedJobDisplaysAsIdle(t *testing.T) {
	srv, store := newTestServer(t)

	store.Start("J1", "stream.mp4")
	store.Complete()

	payload, _ := getStatus(t, srv)
	if payload.Stage != jobstate.StageIdle {
		t.Fatalf("completed job must display as idle, got %+v", payload)
	}
	if payload.JobID != nil || payload.FileName != nil {
		t.Fatalf("idle display must drop job identity: %+v", payload)
	}
}

func TestStatusFailedJobStaysVisible(t *testing.T) {
	srv, store := newTestServer(t)

	store.Start("J1", "stream.mp4")
	store.UpdateStage("Scene Detection", 50)
	store.Fail("scene detection: tool crashed")

	payload, _ := getStatus(t, srv)
	if payload.Stage != jobstate.StageFailed {
		t.Fatalf("failed job must stay visible, got %+v", payload)
	}
	if payload.JobID == nil || *payload.JobID != "J1" {
		t.Fatalf("failed display keeps job identity: %+v", payload)
	}
	if payload.Percent != 50 {
		t.Fatalf("failure keeps the last known percent: %+v", payload)
	}
	if payload.ErrorMessage == nil || *payload.ErrorMessage != "scene detection: tool crashed" {
		t.Fatalf("failure message missing: %+v", payload)
	}

	// A new job replaces the failure record.
	store.Start("J2", "next.mp4")
	payload, _ = getStatus(t, srv)
	if payload.JobID == nil || *payload.JobID != "J2" {
		t.Fatalf("new job must displace the failure: %+v", payload)
	}
	if payload.ErrorMessage != nil {
		t.Fatalf("new job must clear the old error: %+v", payload)
	}
}

func TestStatusUnknownPathIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/", "/health", "/status/extra", "/api/status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s: got %d, want 404", path, rec.Code)
		}
	}
}

func TestStatusRejectsNonGET(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /status: got %d, want 405", rec.Code)
	}
}

func TestPanicInHandlerReturns500(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.now = func() time.Time { panic("clock exploded") }

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panicking handler: got %d, want 500", rec.Code)
	}
}

func TestServerStartServesOverTCP(t *testing.T) {
	srv, store := newTestServer(t)
	store.Start("J1", "stream.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + srv.Addr() + "/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var payload StatusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.JobID == nil || *payload.JobID != "J1" {
		t.Fatalf("unexpected payload over TCP: %+v", payload)
	}
}
