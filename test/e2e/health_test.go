//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHealth_Endpoints tests all health check endpoints
func TestHealth_Endpoints(t *testing.T) {
	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		t.Run(path+" returns 200", func(t *testing.T) {
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testCtx.TestServer.URL+path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}

	t.Run("health reports contracts", func(t *testing.T) {
		h, err := newClient("").Health(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 6, h.Missions)
		assert.Equal(t, hubID, h.Contracts["gameHub"])
		assert.Equal(t, managerID, h.Contracts["missionManager"])
		assert.True(t, h.LedgerWrites)
		assert.False(t, h.Prover)
	})
}

// TestCORS_Headers tests that CORS headers are set correctly
func TestCORS_Headers(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, testCtx.TestServer.URL+"/api/v1/complete-mission", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://trails.example")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-API-Key")
}
