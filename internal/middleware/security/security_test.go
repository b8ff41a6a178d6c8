package security

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestFilterMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		// service routes
		{"complete mission", "POST", "/api/v1/complete-mission", http.StatusOK},
		{"verify location", "POST", "/api/v1/missions/m1/verify-location", http.StatusOK},
		{"quiz questions", "GET", "/api/v1/missions/m5/questions", http.StatusOK},
		{"location proof", "POST", "/api/v1/proofs/location", http.StatusOK},
		{"proof by id", "GET", "/api/v1/proofs/3f2c9d1e-0000-4000-8000-000000000001", http.StatusOK},
		{"operator sessions", "GET", "/api/v1/admin/sessions?status=STARTED", http.StatusOK},
		{"operator completions", "GET", "/api/v1/admin/completions", http.StatusOK},
		{"player profile", "GET", "/api/v1/players/" + testWallet, http.StatusOK},
		{"leaderboard", "GET", "/api/v1/leaderboard?limit=5", http.StatusOK},
		{"zk status", "GET", "/zk/status", http.StatusOK},
		{"readiness", "GET", "/readyz", http.StatusOK},
		{"liveness", "GET", "/healthz", http.StatusOK},

		// scanner targets
		{"dotenv", "GET", "/.env", http.StatusBadRequest},
		{"dotenv upper", "GET", "/.ENV", http.StatusBadRequest},
		{"git config", "GET", "/.git/config", http.StatusBadRequest},
		{"aws credentials", "GET", "/.aws/credentials", http.StatusBadRequest},
		{"wordpress login", "POST", "/wp-login.php", http.StatusBadRequest},
		{"wordpress admin mixed case", "GET", "/Wp-Admin/", http.StatusBadRequest},
		{"root admin panel", "GET", "/admin/login", http.StatusBadRequest},
		{"spring actuator", "GET", "/actuator/env", http.StatusBadRequest},
		{"cgi", "GET", "/cgi-bin/test.cgi", http.StatusBadRequest},

		// traversal aimed at service routes
		{"proof id traversal", "GET", "/api/v1/proofs/../../etc/passwd", http.StatusBadRequest},
		{"encoded mission traversal", "GET", "/api/v1/missions/%2e%2e%2fadmin", http.StatusBadRequest},
		{"encoded backslash traversal", "GET", "/api/v1/players/..%5c..%5cwin.ini", http.StatusBadRequest},
		{"null byte in proof id", "GET", "/api/v1/proofs/abc%00.json", http.StatusBadRequest},
	}

	handler := FilterMiddleware(true)(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestFilterMiddleware_Disabled(t *testing.T) {
	handler := FilterMiddleware(false)(okHandler())

	for _, path := range []string{"/.env", "/wp-login.php", "/api/v1/proofs/../../etc/passwd"} {
		req := httptest.NewRequest("GET", path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestFilterMiddleware_ResponseFormat(t *testing.T) {
	called := false
	handler := FilterMiddleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/.env", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "BAD_REQUEST", response.Error.Code)
	assert.Equal(t, "Invalid request", response.Error.Message, "the reason is not disclosed")
}

// proofHandler decodes a location proof request the way the transport does.
func proofHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		var req struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Padding   string  `json:"padding"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func proofBody(padding int) string {
	return `{"latitude":40.4168,"longitude":-3.7038,"padding":"` + strings.Repeat("x", padding) + `"}`
}

func TestMaxBodySizeMiddleware(t *testing.T) {
	const mb = 1024 * 1024

	tests := []struct {
		name          string
		body          string
		undeclared    bool
		want          int
		handlerCalled bool
	}{
		{"small proof request", proofBody(16), false, http.StatusOK, true},
		{"declared over limit", proofBody(2 * mb), false, http.StatusRequestEntityTooLarge, false},
		{"chunked over limit", proofBody(2 * mb), true, http.StatusRequestEntityTooLarge, true},
		{"just under limit", proofBody(mb - 128), false, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := MaxBodySizeMiddleware(1)(proofHandler(&called))

			req := httptest.NewRequest("POST", "/api/v1/proofs/location", strings.NewReader(tt.body))
			if tt.undeclared {
				req.ContentLength = -1
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			assert.Equal(t, tt.handlerCalled, called)
			if !tt.handlerCalled {
				assert.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")
			}
		})
	}
}

func TestMaxBodySizeMiddleware_ReadsWithoutBody(t *testing.T) {
	handler := MaxBodySizeMiddleware(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Empty(t, b)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/admin/completions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireJSON(t *testing.T) {
	handler := RequireJSON(okHandler())

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		want        int
	}{
		{"completion json", "POST", "/api/v1/complete-mission", `{"missionId":"m5"}`, "application/json", http.StatusOK},
		{"proof json with charset", "POST", "/api/v1/proofs/location", `{"latitude":1}`, "application/json; charset=utf-8", http.StatusOK},
		{"answers as form", "POST", "/api/v1/missions/m5/verify-answers", "answers=1", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"completion without content type", "POST", "/api/v1/complete-mission", `{"missionId":"m5"}`, "", http.StatusUnsupportedMediaType},
		{"completion as text", "POST", "/api/v1/complete-mission", `{"missionId":"m5"}`, "text/plain", http.StatusUnsupportedMediaType},
		{"empty post", "POST", "/api/v1/complete-mission", "", "", http.StatusOK},
		{"operator read ignores content type", "GET", "/api/v1/admin/sessions", "", "text/plain", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnsupportedMediaType {
				assert.Contains(t, rr.Body.String(), "UNSUPPORTED_MEDIA_TYPE")
			}
		})
	}
}
