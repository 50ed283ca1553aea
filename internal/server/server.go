// Package server exposes the orchestrator and advisor over HTTP for UI
// consumers. It is a thin read/command layer: all state lives in the
// orchestrator.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/agentictax/taxpilot/internal/advisor"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/agentictax/taxpilot/internal/orchestrator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Handler provides the HTTP handlers and their shared dependencies.
type Handler struct {
	orch           *orchestrator.Orchestrator
	adv            *advisor.Advisor
	advisorTimeout time.Duration

	mu   sync.Mutex
	chat []model.ChatMessage
}

// NewHandler creates a Handler around one session's orchestrator and
// advisor.
func NewHandler(orch *orchestrator.Orchestrator, adv *advisor.Advisor, advisorTimeout time.Duration) *Handler {
	if advisorTimeout <= 0 {
		advisorTimeout = 60 * time.Second
	}
	return &Handler{orch: orch, adv: adv, advisorTimeout: advisorTimeout}
}

// Routes assembles the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/runs", h.submitDocument)
		r.Post("/runs/demo", h.loadDemo)
		r.Get("/runs/current", h.currentRun)
		r.Post("/runs/approve", h.approve)
		r.Post("/runs/review-request", h.requestReview)
		r.Post("/runs/cancel", h.cancelRun)
		r.Post("/runs/restart", h.restartRun)
		r.Get("/artifacts", h.artifactsSnapshot)
		r.Get("/activity", h.activity)
		r.Get("/export/deductions.csv", h.exportDeductions)
		r.Post("/advisor", h.askAdvisor)
		r.Get("/advisor/transcript", h.transcript)
	})
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) appendChat(role model.ChatRole, content string) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	h.mu.Lock()
	h.chat = append(h.chat, msg)
	h.mu.Unlock()
	return msg
}

func (h *Handler) chatHistory() []model.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.ChatMessage, len(h.chat))
	copy(out, h.chat)
	return out
}
