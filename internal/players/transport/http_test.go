package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zktrails/zktrails/internal/players/domain"
)

const testAddress = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

// mockService implements Service for testing
type mockService struct {
	players map[string]*domain.Player
}

func (m *mockService) Get(ctx context.Context, address string) (*domain.Player, error) {
	if p, ok := m.players[address]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockService) Register(ctx context.Context, address string) (*domain.Player, error) {
	if address != testAddress {
		return nil, domain.ErrInvalidAddress
	}
	p := &domain.Player{Address: address, Tier: domain.TierRookie, CompletedMissions: []string{}}
	m.players[address] = p
	return p, nil
}

func (m *mockService) Leaderboard(ctx context.Context, limit int) ([]domain.Player, error) {
	var out []domain.Player
	for _, p := range m.players {
		out = append(out, *p)
	}
	return out, nil
}

func setupRouter(svc Service) *chi.Mux {
	r := chi.NewRouter()
	h := NewHandler(svc)
	r.Route("/players", h.RegisterRoutes)
	h.RegisterLeaderboardRoute(r)
	return r
}

func TestHandler_Players(t *testing.T) {
	svc := &mockService{players: map[string]*domain.Player{}}
	router := setupRouter(svc)

	t.Run("missing player", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/players/"+testAddress, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("register", func(t *testing.T) {
		body := `{"address":"` + testAddress + `"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/players/", bytes.NewBufferString(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Success bool           `json:"success"`
			Player  PlayerResponse `json:"player"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "ROOKIE", resp.Player.Tier)
	})

	t.Run("register invalid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/players/", bytes.NewBufferString(`{"address":"x"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/players/"+testAddress, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp PlayerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, testAddress, resp.Address)
	})

	t.Run("leaderboard", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/leaderboard?limit=5", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string][]map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp["leaderboard"], 1)
		assert.Equal(t, float64(1), resp["leaderboard"][0]["rank"])
	})
}
