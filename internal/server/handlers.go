package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/export"
	"github.com/agentictax/taxpilot/internal/model"
)

type submitRequest struct {
	Filename string `json:"filename"`
}

// submitDocument kicks off the processing pipeline. Effects are observed
// through the run, artifact, and activity queries; nothing is returned
// synchronously beyond acceptance.
func (h *Handler) submitDocument(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Filename == "" {
		Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if h.orch.Phase() != model.PhaseIntake {
		Error(w, http.StatusConflict, "run already has a document")
		return
	}

	go func() {
		if err := h.orch.SubmitDocument(context.Background(), req.Filename); err != nil {
			slog.Error("Pipeline failed", "filename", req.Filename, "error", err)
		}
	}()
	JSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
}

func (h *Handler) loadDemo(w http.ResponseWriter, _ *http.Request) {
	if err := h.orch.LoadDemoScenario(); err != nil {
		Error(w, statusFor(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, h.runState())
}

func (h *Handler) currentRun(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.runState())
}

func (h *Handler) approve(w http.ResponseWriter, _ *http.Request) {
	if h.orch.Phase() != model.PhaseReview {
		Error(w, http.StatusConflict, "run is not awaiting review approval")
		return
	}
	go func() {
		if err := h.orch.Approve(context.Background()); err != nil {
			slog.Error("Filing failed", "error", err)
		}
	}()
	JSON(w, http.StatusAccepted, map[string]string{"status": "filing"})
}

func (h *Handler) requestReview(w http.ResponseWriter, _ *http.Request) {
	done, err := h.orch.RequestReview()
	if err != nil {
		Error(w, statusFor(err), err.Error())
		return
	}
	// The intake reference resolves asynchronously; surface it in the run
	// state once available.
	go func() { <-done }()
	JSON(w, http.StatusAccepted, map[string]bool{"pending_review": true})
}

func (h *Handler) cancelRun(w http.ResponseWriter, _ *http.Request) {
	if err := h.orch.Cancel(); err != nil {
		Error(w, statusFor(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, h.runState())
}

func (h *Handler) restartRun(w http.ResponseWriter, _ *http.Request) {
	run := h.orch.Run()
	if run.Phase != model.PhaseFailed {
		Error(w, http.StatusConflict, "only a failed run can be restarted")
		return
	}
	if run.FailedStage == "" {
		Error(w, http.StatusConflict, "a cancelled run cannot be restarted")
		return
	}
	if run.ManualIntervention {
		Error(w, http.StatusConflict, "this filing requires manual reconciliation before retrying")
		return
	}
	go func() {
		if err := h.orch.Restart(context.Background()); err != nil {
			slog.Error("Restart failed", "error", err)
		}
	}()
	JSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
}

func (h *Handler) artifactsSnapshot(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.orch.Snapshot())
}

func (h *Handler) activity(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.orch.EventLog().AuditRows())
}

func (h *Handler) exportDeductions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="deductions.csv"`)
	if err := export.WriteDeductionsCSV(w, h.orch.Snapshot().Deductions); err != nil {
		slog.Error("CSV export failed", "error", err)
	}
}

type askRequest struct {
	Message string `json:"message"`
}

type askResponse struct {
	Answer   string              `json:"answer"`
	Messages []model.ChatMessage `json:"messages"`
}

// askAdvisor answers a free-text question grounded in the current run.
// The advisor call runs under its own timeout and never blocks pipeline
// execution.
func (h *Handler) askAdvisor(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	history := h.chatHistory()
	h.appendChat(model.RoleUser, req.Message)

	ctx, cancel := context.WithTimeout(r.Context(), h.advisorTimeout)
	defer cancel()
	answer := h.adv.Ask(ctx, history, req.Message, h.orch.Snapshot())

	h.appendChat(model.RoleAssistant, answer)
	JSON(w, http.StatusOK, askResponse{Answer: answer, Messages: h.chatHistory()})
}

func (h *Handler) transcript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := export.WriteTranscript(w, h.chatHistory()); err != nil {
		slog.Error("Transcript export failed", "error", err)
	}
}

type runStateResponse struct {
	Run               model.Run `json:"run"`
	EscalationOffered bool      `json:"escalation_offered"`
}

func (h *Handler) runState() runStateResponse {
	return runStateResponse{
		Run:               h.orch.Run(),
		EscalationOffered: h.orch.EscalationOffered(),
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidTransition), errors.Is(err, common.ErrRunTerminal), errors.Is(err, common.ErrPipelineBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
