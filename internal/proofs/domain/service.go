// Package domain generates and stores zero-knowledge location proofs for
// physical missions.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/observability/metrics"
	"github.com/zktrails/zktrails/internal/prover"
	"github.com/zktrails/zktrails/internal/storage"
	"github.com/zktrails/zktrails/internal/validation"
)

// Common errors returned by the proof service.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("prover unavailable")
	ErrGeneration   = errors.New("proof generation failed")
)

// Prover runs the external proving toolchain.
type Prover interface {
	ProveLocation(ctx context.Context, in prover.LocationInputs) (*prover.Output, error)
	Versions(ctx context.Context) prover.Versions
	Circuit() string
}

// Store is the subset of storage used by the proof service.
type Store interface {
	CreateProof(ctx context.Context, p *storage.Proof) error
	GetProof(ctx context.Context, id string) (*storage.Proof, error)
}

// MissionSource resolves missions by id.
type MissionSource interface {
	Get(id string) (*catalog.Mission, error)
	Len() int
}

// LocationRequest asks for a proof that a wallet stands inside a mission zone.
type LocationRequest struct {
	MissionID string
	Wallet    string
	Lat       float64
	Lon       float64
}

// Proof is a generated proof.
type Proof struct {
	ID           string
	MissionID    string
	Wallet       string
	Proof        []byte
	PublicInputs []byte
	CreatedAt    time.Time
}

// Status describes the proving engine.
type Status struct {
	Status            string
	Engine            string
	Nargo             string
	Barretenberg      string
	Circuits          []string
	MissionsAvailable int
}

type service struct {
	prover   Prover
	store    Store
	missions MissionSource
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewService creates a proof service. A nil prover disables generation.
func NewService(p Prover, store Store, missions MissionSource, clock clockwork.Clock, logger *slog.Logger) *service {
	return &service{
		prover:   p,
		store:    store,
		missions: missions,
		clock:    clock,
		logger:   logger,
	}
}

// GenerateLocation proves the reported position against the mission's zone
// and stores the proof. The circuit, not this service, decides whether the
// position is inside the zone: an outside position fails generation.
func (s *service) GenerateLocation(ctx context.Context, req LocationRequest) (*Proof, error) {
	m, err := s.missions.Get(req.MissionID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: mission %s", ErrNotFound, req.MissionID)
		}
		return nil, err
	}
	if m.Geofence == nil {
		return nil, fmt.Errorf("%w: mission %s is not a location mission", ErrInvalidInput, m.ID)
	}
	if err := validation.ValidateAccountID(req.Wallet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateCoordinates(req.Lat, req.Lon); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.prover == nil {
		return nil, ErrUnavailable
	}

	now := s.clock.Now()
	g := m.Geofence
	in := prover.LocationInputs{
		ZoneLatMin:  int64(g.LatMin),
		ZoneLatMax:  int64(g.LatMax),
		ZoneLonMin:  int64(g.LonMin),
		ZoneLonMax:  int64(g.LonMax),
		CurrentTime: now.Unix(),
		MaxAge:      int64(g.MaxAgeSeconds),
		UserLat:     int64(catalog.ToMicroDegrees(req.Lat)),
		UserLon:     int64(catalog.ToMicroDegrees(req.Lon)),
		UserTime:    now.Unix(),
	}

	start := s.clock.Now()
	out, err := s.prover.ProveLocation(ctx, in)
	if err != nil {
		metrics.ProofGeneration("failed", s.clock.Since(start))
		s.logger.Warn("location proof failed", "mission_id", m.ID, "wallet", req.Wallet, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	metrics.ProofGeneration("generated", s.clock.Since(start))

	rec := &storage.Proof{
		ID:           uuid.New().String(),
		MissionID:    m.ID,
		Wallet:       req.Wallet,
		Proof:        out.Proof,
		PublicInputs: out.PublicInputs,
		CreatedAt:    now,
	}
	if err := s.store.CreateProof(context.WithoutCancel(ctx), rec); err != nil {
		return nil, fmt.Errorf("storing proof: %w", err)
	}
	return fromStorage(rec), nil
}

// Get returns a stored proof.
func (s *service) Get(ctx context.Context, id string) (*Proof, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: proof %s", ErrNotFound, id)
	}
	rec, err := s.store.GetProof(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: proof %s", ErrNotFound, id)
		}
		return nil, err
	}
	return fromStorage(rec), nil
}

// Status reports toolchain versions.
func (s *service) Status(ctx context.Context) Status {
	st := Status{
		Status:            "disabled",
		Engine:            "UltraHonk via Barretenberg",
		Nargo:             "not installed",
		Barretenberg:      "not installed",
		Circuits:          []string{},
		MissionsAvailable: s.missions.Len(),
	}
	if s.prover == nil {
		return st
	}
	v := s.prover.Versions(ctx)
	st.Status = "operational"
	st.Nargo = v.Nargo
	st.Barretenberg = v.BB
	st.Circuits = []string{s.prover.Circuit()}
	return st
}

func fromStorage(p *storage.Proof) *Proof {
	return &Proof{
		ID:           p.ID,
		MissionID:    p.MissionID,
		Wallet:       p.Wallet,
		Proof:        p.Proof,
		PublicInputs: p.PublicInputs,
		CreatedAt:    p.CreatedAt,
	}
}
