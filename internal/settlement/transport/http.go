// Package transport provides HTTP handlers for recorded completions.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zktrails/zktrails/internal/settlement/domain"
)

// Service defines the settlement service interface for HTTP transport.
type Service interface {
	List(ctx context.Context, f domain.Filter) ([]domain.Completion, error)
}

// Handler handles HTTP requests for completions.
type Handler struct {
	svc Service
}

// NewHandler creates a new completions HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes registers operator completion routes (auth required).
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.handleList)
}

// CompletionResponse is a recorded completion.
type CompletionResponse struct {
	ID        string    `json:"id"`
	MissionID string    `json:"missionId"`
	Wallet    string    `json:"walletAddress"`
	SessionID uint32    `json:"sessionId,omitempty"`
	Reward    int       `json:"reward"`
	TxHash    string    `json:"txHash"`
	OnChain   bool      `json:"onChain"`
	Evidence  string    `json:"evidence"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	completions, err := h.svc.List(r.Context(), domain.Filter{
		Wallet:    r.URL.Query().Get("wallet"),
		MissionID: r.URL.Query().Get("mission"),
		Limit:     limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list completions")
		return
	}

	data := make([]CompletionResponse, len(completions))
	for i, c := range completions {
		data[i] = CompletionResponse{
			ID:        c.ID,
			MissionID: c.MissionID,
			Wallet:    c.Wallet,
			SessionID: c.SessionID,
			Reward:    c.Reward,
			TxHash:    c.Reference,
			OnChain:   c.OnChain,
			Evidence:  c.Evidence,
			CreatedAt: c.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"completions": data})
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
