// Package transport provides HTTP handlers for missions and their verification.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/verification/domain"
)

// Service defines the verification service interface for HTTP transport.
type Service interface {
	VerifyAndComplete(ctx context.Context, req domain.CompleteRequest) (*domain.CompleteResult, error)
	VerifyAnswers(ctx context.Context, missionID string, answers map[string]int) (*domain.Result, error)
	VerifyLocation(ctx context.Context, missionID string, loc domain.Location) (*domain.Result, error)
	VerifyTransaction(ctx context.Context, missionID, txHash, wallet string) (*domain.Result, error)
}

// Catalog is the read-only mission catalog served to clients.
type Catalog interface {
	Views() []catalog.MissionView
	View(id string) (catalog.MissionView, error)
	Questions(id string) ([]catalog.QuestionView, error)
}

// Handler handles HTTP requests for missions.
type Handler struct {
	svc     Service
	catalog Catalog
}

// NewHandler creates a new missions HTTP handler.
func NewHandler(svc Service, cat Catalog) *Handler {
	return &Handler{svc: svc, catalog: cat}
}

// RegisterMissionRoutes registers the catalog and verification routes on a
// missions router.
func (h *Handler) RegisterMissionRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/questions", h.handleQuestions)
	r.Post("/{id}/verify-answers", h.handleVerifyAnswers)
	r.Post("/{id}/verify-location", h.handleVerifyLocation)
	r.Post("/{id}/verify-transaction", h.handleVerifyTransaction)
}

// RegisterCompleteRoute registers the mission completion route.
func (h *Handler) RegisterCompleteRoute(r chi.Router) {
	r.Post("/complete-mission", h.handleComplete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"missions": h.catalog.Views()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.catalog.View(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Mission not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.catalog.Questions(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotQuiz) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Mission is not a quiz")
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Mission not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *Handler) handleVerifyAnswers(w http.ResponseWriter, r *http.Request) {
	var req VerifyAnswersRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Answers == nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "answers is required")
		return
	}

	res, err := h.svc.VerifyAnswers(r.Context(), chi.URLParam(r, "id"), req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizResponse(res))
}

func (h *Handler) handleVerifyLocation(w http.ResponseWriter, r *http.Request) {
	var req VerifyLocationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "lat and lon are required")
		return
	}

	res, err := h.svc.VerifyLocation(r.Context(), chi.URLParam(r, "id"), req.ToDomain())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerdictResponse{Verified: res.Verified, Reason: res.Reason})
}

func (h *Handler) handleVerifyTransaction(w http.ResponseWriter, r *http.Request) {
	var req VerifyTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TxHash == "" || req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "txHash and walletAddress are required")
		return
	}

	res, err := h.svc.VerifyTransaction(r.Context(), chi.URLParam(r, "id"), req.TxHash, req.WalletAddress)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerdictResponse{Verified: res.Verified, Reason: res.Reason})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req CompleteMissionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.MissionID == "" || req.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "missionId and walletAddress are required")
		return
	}

	res, err := h.svc.VerifyAndComplete(r.Context(), req.ToDomain())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCompleteMissionResponse(res))
}

// Helper functions

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Mission not found")
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrWrongMethod):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "ALREADY_COMPLETED", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Verification failed")
	}
}

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
