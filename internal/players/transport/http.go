// Package transport provides HTTP handlers for player profiles.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zktrails/zktrails/internal/players/domain"
)

// Service defines the player service interface for HTTP transport.
type Service interface {
	Get(ctx context.Context, address string) (*domain.Player, error)
	Register(ctx context.Context, address string) (*domain.Player, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.Player, error)
}

// Handler handles HTTP requests for players.
type Handler struct {
	svc Service
}

// NewHandler creates a new players HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers player routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.handleRegister)
	r.Get("/{address}", h.handleGet)
}

// RegisterLeaderboardRoute registers the leaderboard route.
func (h *Handler) RegisterLeaderboardRoute(r chi.Router) {
	r.Get("/leaderboard", h.handleLeaderboard)
}

// PlayerResponse is a player profile.
type PlayerResponse struct {
	Address           string    `json:"address"`
	Score             int       `json:"score"`
	Tier              string    `json:"tier"`
	CompletedMissions []string  `json:"completedMissions"`
	CreatedAt         time.Time `json:"createdAt"`
}

func newPlayerResponse(p *domain.Player) PlayerResponse {
	return PlayerResponse{
		Address:           p.Address,
		Score:             p.Score,
		Tier:              string(p.Tier),
		CompletedMissions: p.CompletedMissions,
		CreatedAt:         p.CreatedAt,
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Player not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch player")
		return
	}
	writeJSON(w, http.StatusOK, newPlayerResponse(p))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}

	var req struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	p, err := h.svc.Register(r.Context(), req.Address)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAddress) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register player")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"player":  newPlayerResponse(p),
	})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	players, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load leaderboard")
		return
	}

	type entry struct {
		Rank              int    `json:"rank"`
		Address           string `json:"address"`
		Score             int    `json:"score"`
		Tier              string `json:"tier"`
		MissionsCompleted int    `json:"missionsCompleted"`
	}
	entries := make([]entry, len(players))
	for i, p := range players {
		entries[i] = entry{
			Rank:              i + 1,
			Address:           p.Address,
			Score:             p.Score,
			Tier:              string(p.Tier),
			MissionsCompleted: len(p.CompletedMissions),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
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
