package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/prover"
	"github.com/zktrails/zktrails/internal/storage"
)

const testWallet = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

type mockProver struct {
	got prover.LocationInputs
	err error
}

func (m *mockProver) ProveLocation(ctx context.Context, in prover.LocationInputs) (*prover.Output, error) {
	m.got = in
	if m.err != nil {
		return nil, m.err
	}
	return &prover.Output{Proof: []byte{0xca, 0xfe}, PublicInputs: []byte{0x02}}, nil
}

func (m *mockProver) Versions(ctx context.Context) prover.Versions {
	return prover.Versions{Nargo: "1.0.0-beta.9", BB: "0.87.0"}
}

func (m *mockProver) Circuit() string { return "location_proof" }

func newTestService(t *testing.T, p Prover) (*service, *clockwork.FakeClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "proofs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	clock := clockwork.NewFakeClockAt(time.Unix(1_760_000_000, 0))
	return NewService(p, db, catalog.Default(), clock, logger), clock
}

func TestGenerateLocation(t *testing.T) {
	p := &mockProver{}
	svc, _ := newTestService(t, p)
	ctx := context.Background()

	proof, err := svc.GenerateLocation(ctx, LocationRequest{MissionID: "m0", Wallet: testWallet, Lat: 40.4145, Lon: -3.7065})
	require.NoError(t, err)
	assert.NotEmpty(t, proof.ID)
	assert.Equal(t, []byte{0xca, 0xfe}, proof.Proof)

	assert.Equal(t, prover.LocationInputs{
		ZoneLatMin:  40413000,
		ZoneLatMax:  40416000,
		ZoneLonMin:  -3708000,
		ZoneLonMax:  -3705000,
		CurrentTime: 1_760_000_000,
		MaxAge:      300,
		UserLat:     40414500,
		UserLon:     -3706500,
		UserTime:    1_760_000_000,
	}, p.got)

	stored, err := svc.Get(ctx, proof.ID)
	require.NoError(t, err)
	assert.Equal(t, proof.Proof, stored.Proof)
	assert.Equal(t, []byte{0x02}, stored.PublicInputs)
	assert.Equal(t, "m0", stored.MissionID)
}

func TestGenerateLocation_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  LocationRequest
		want error
	}{
		{"unknown mission", LocationRequest{MissionID: "m9", Wallet: testWallet, Lat: 40.4145, Lon: -3.7065}, ErrNotFound},
		{"not a location mission", LocationRequest{MissionID: "m5", Wallet: testWallet, Lat: 40.4145, Lon: -3.7065}, ErrInvalidInput},
		{"bad wallet", LocationRequest{MissionID: "m0", Wallet: "nope", Lat: 40.4145, Lon: -3.7065}, ErrInvalidInput},
		{"bad coordinates", LocationRequest{MissionID: "m0", Wallet: testWallet, Lat: 91, Lon: 0}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, &mockProver{})
			_, err := svc.GenerateLocation(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateLocation_ProverFailure(t *testing.T) {
	svc, _ := newTestService(t, &mockProver{err: errors.New("nargo execute: Failed constraint")})

	_, err := svc.GenerateLocation(context.Background(), LocationRequest{MissionID: "m0", Wallet: testWallet, Lat: 1, Lon: 1})
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestGenerateLocation_Disabled(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.GenerateLocation(context.Background(), LocationRequest{MissionID: "m0", Wallet: testWallet, Lat: 40.4145, Lon: -3.7065})
	assert.ErrorIs(t, err, ErrUnavailable)

	st := svc.Status(context.Background())
	assert.Equal(t, "disabled", st.Status)
	assert.Empty(t, st.Circuits)
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t, &mockProver{})

	_, err := svc.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "6f1c1c1e-7a4c-4b8e-9f55-2d2d2d2d2d2d")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatus(t *testing.T) {
	svc, _ := newTestService(t, &mockProver{})

	st := svc.Status(context.Background())
	assert.Equal(t, "operational", st.Status)
	assert.Equal(t, "1.0.0-beta.9", st.Nargo)
	assert.Equal(t, "0.87.0", st.Barretenberg)
	assert.Equal(t, []string{"location_proof"}, st.Circuits)
	assert.Equal(t, 6, st.MissionsAvailable)
}
