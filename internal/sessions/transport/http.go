// Package transport provides HTTP handlers for mission sessions.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zktrails/zktrails/internal/sessions/domain"
)

// Service defines the session service interface for HTTP transport.
type Service interface {
	Start(ctx context.Context, req domain.StartRequest) (*domain.StartResult, error)
	Get(ctx context.Context, sessionID uint32) (*domain.Session, error)
	List(ctx context.Context, state domain.State, limit int) ([]domain.Session, error)
}

// Handler handles HTTP requests for sessions.
type Handler struct {
	svc Service
}

// NewHandler creates a new sessions HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the public start route on a missions router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/start", h.handleStart)
}

// RegisterAdminRoutes registers operator session routes (auth required).
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}

	var req StartRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	if req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "walletAddress is required")
		return
	}

	res, err := h.svc.Start(r.Context(), req.ToDomain(chi.URLParam(r, "id")))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Mission not found")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start mission")
		}
		return
	}

	writeJSON(w, http.StatusOK, StartResponse{
		SessionID:      res.SessionID,
		GameHubStarted: res.GameHubStarted,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	sessions, err := h.svc.List(r.Context(), domain.State(r.URL.Query().Get("state")), limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list sessions")
		return
	}

	data := make([]SessionResponse, len(sessions))
	for i := range sessions {
		data[i] = newSessionResponse(&sessions[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": data})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Session id must be a number")
		return
	}

	sess, err := h.svc.Get(r.Context(), uint32(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
