package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentictax/taxpilot/internal/advisor"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/agentictax/taxpilot/internal/orchestrator"
	"github.com/agentictax/taxpilot/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryArchiver struct{}

func (memoryArchiver) ArchiveRun(_ context.Context, runID string, _ model.Snapshot) (string, error) {
	return "ARC-" + runID[:8], nil
}

func newTestHandler() *Handler {
	orch := orchestrator.New(orchestrator.Config{
		Sleeper:  stage.InstantSleeper{},
		Archiver: memoryArchiver{},
	})
	adv := advisor.New(advisor.NewStubCompleter("stub answer"))
	return NewHandler(orch, adv, time.Second)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitValidation(t *testing.T) {
	h := newTestHandler().Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/runs", `{"filename":"w2.pdf"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestDemoThenStateAndArtifacts(t *testing.T) {
	handler := newTestHandler()
	h := handler.Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/runs/demo", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Run               model.Run `json:"run"`
		EscalationOffered bool      `json:"escalation_offered"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, model.PhaseReview, state.Run.Phase)
	assert.True(t, state.EscalationOffered)

	rec = doJSON(t, h, http.MethodGet, "/api/artifacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Deductions, 3)

	// A second demo load conflicts.
	rec = doJSON(t, h, http.MethodPost, "/api/runs/demo", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApproveRequiresReview(t *testing.T) {
	h := newTestHandler().Routes()
	rec := doJSON(t, h, http.MethodPost, "/api/runs/approve", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReviewRequestDoesNotChangePhase(t *testing.T) {
	handler := newTestHandler()
	h := handler.Routes()
	doJSON(t, h, http.MethodPost, "/api/runs/demo", "")

	rec := doJSON(t, h, http.MethodPost, "/api/runs/review-request", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/runs/current", "")
	var state struct {
		Run model.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, model.PhaseReview, state.Run.Phase)
	assert.True(t, state.Run.PendingReview)
}

func TestAdvisorEndpointAndTranscript(t *testing.T) {
	handler := newTestHandler()
	h := handler.Routes()
	doJSON(t, h, http.MethodPost, "/api/runs/demo", "")

	rec := doJSON(t, h, http.MethodPost, "/api/advisor", `{"message":"can I deduct my home office?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Answer   string              `json:"answer"`
		Messages []model.ChatMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stub answer", resp.Answer)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, model.RoleUser, resp.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, resp.Messages[1].Role)

	rec = doJSON(t, h, http.MethodGet, "/api/advisor/transcript", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "USER: can I deduct my home office?")
	assert.Contains(t, rec.Body.String(), "ASSISTANT: stub answer")
}

func TestExportDeductionsCSV(t *testing.T) {
	handler := newTestHandler()
	h := handler.Routes()
	doJSON(t, h, http.MethodPost, "/api/runs/demo", "")

	rec := doJSON(t, h, http.MethodGet, "/api/export/deductions.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4) // header + 3 deductions
	assert.Equal(t, "Category,Amount,Description,Confidence%,Source", lines[0])
}

func TestActivityAudit(t *testing.T) {
	handler := newTestHandler()
	h := handler.Routes()
	doJSON(t, h, http.MethodPost, "/api/runs/demo", "")

	rec := doJSON(t, h, http.MethodGet, "/api/activity", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []struct {
		Stage  string `json:"Stage"`
		Action string `json:"Action"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.NotEmpty(t, rows)
}

func TestCancelAndRestartConflicts(t *testing.T) {
	handler := newTestHandler()
	h := handler.Routes()
	doJSON(t, h, http.MethodPost, "/api/runs/demo", "")

	// Restart only applies to failed runs.
	rec := doJSON(t, h, http.MethodPost, "/api/runs/restart", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/runs/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/runs/current", "")
	var state struct {
		Run model.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, model.PhaseFailed, state.Run.Phase)
}

func TestRestartRejectedAfterCancel(t *testing.T) {
	handler := newTestHandler()
	h := handler.Routes()
	doJSON(t, h, http.MethodPost, "/api/runs/demo", "")
	doJSON(t, h, http.MethodPost, "/api/runs/cancel", "")

	// A cancelled run is Failed without a failing stage; restarting it must
	// not transmit the never-approved return.
	rec := doJSON(t, h, http.MethodPost, "/api/runs/restart", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/runs/current", "")
	var state struct {
		Run model.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, model.PhaseFailed, state.Run.Phase)
	assert.Empty(t, state.Run.ConfirmationRef)
}
