// Package transport provides HTTP handlers for location proofs.
package transport

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zktrails/zktrails/internal/proofs/domain"
)

// Service defines the proof service interface for HTTP transport.
type Service interface {
	GenerateLocation(ctx context.Context, req domain.LocationRequest) (*domain.Proof, error)
	Get(ctx context.Context, id string) (*domain.Proof, error)
	Status(ctx context.Context) domain.Status
}

// Handler handles HTTP requests for proofs.
type Handler struct {
	svc Service
}

// NewHandler creates a new proofs HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers proof routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/location", h.handleGenerateLocation)
	r.Get("/{id}", h.handleGet)
}

// RegisterStatusRoute registers the proving engine status route.
func (h *Handler) RegisterStatusRoute(r chi.Router) {
	r.Get("/zk/status", h.handleStatus)
}

// LocationRequest is the request body for POST /proofs/location.
type LocationRequest struct {
	MissionID     string   `json:"missionId"`
	WalletAddress string   `json:"walletAddress"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
}

// ProofResponse is a generated proof with hex-encoded bytes.
type ProofResponse struct {
	ID            string  `json:"id"`
	Proof         string  `json:"proof"`
	PublicInputs  *string `json:"publicInputs"`
	MissionID     string  `json:"missionId"`
	WalletAddress string  `json:"walletAddress"`
	Timestamp     int64   `json:"timestamp"`
}

func newProofResponse(p *domain.Proof) ProofResponse {
	resp := ProofResponse{
		ID:            p.ID,
		Proof:         hex.EncodeToString(p.Proof),
		MissionID:     p.MissionID,
		WalletAddress: p.Wallet,
		Timestamp:     p.CreatedAt.Unix(),
	}
	if p.PublicInputs != nil {
		pub := hex.EncodeToString(p.PublicInputs)
		resp.PublicInputs = &pub
	}
	return resp
}

// StatusResponse describes the proving engine.
type StatusResponse struct {
	Status            string   `json:"status"`
	Engine            string   `json:"engine"`
	Nargo             string   `json:"nargo"`
	Barretenberg      string   `json:"barretenberg"`
	Circuits          []string `json:"circuits"`
	MissionsAvailable int      `json:"missionsAvailable"`
}

func (h *Handler) handleGenerateLocation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}

	var req LocationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}
	if req.MissionID == "" || req.WalletAddress == "" || req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing required fields: lat, lon, missionId, walletAddress")
		return
	}

	p, err := h.svc.GenerateLocation(r.Context(), domain.LocationRequest{
		MissionID: req.MissionID,
		Wallet:    req.WalletAddress,
		Lat:       *req.Lat,
		Lon:       *req.Lon,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProofResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProofResponse(p))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Status(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:            st.Status,
		Engine:            st.Engine,
		Nargo:             st.Nargo,
		Barretenberg:      st.Barretenberg,
		Circuits:          st.Circuits,
		MissionsAvailable: st.MissionsAvailable,
	})
}

// Helper functions

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "PROVER_UNAVAILABLE", "Proof generation is disabled")
	case errors.Is(err, domain.ErrGeneration):
		writeError(w, http.StatusUnprocessableEntity, "PROOF_FAILED", "Proof generation failed")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
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
