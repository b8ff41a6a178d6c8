package auth

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zktrails/zktrails/internal/storage"
)

const (
	validKey  = "zkt_key_0123456789abcdef0123456789abcdef0123456789abcdef"
	bearerKey = "zkt_key_fedcba9876543210fedcba9876543210fedcba9876543210"
)

type mockValidator struct {
	keys  map[string]*storage.APIKey
	calls int
}

func (m *mockValidator) ValidateAPIKey(ctx context.Context, key string) (*storage.APIKey, error) {
	m.calls++
	if apiKey, ok := m.keys[key]; ok {
		return apiKey, nil
	}
	return nil, storage.ErrNotFound
}

func statusOnly(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
}

func serve(mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, context.Context) {
	var captured context.Context
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Context()
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)
	return rec, captured
}

func TestMiddleware_ValidKey(t *testing.T) {
	store := &mockValidator{keys: map[string]*storage.APIKey{
		validKey: {ID: "key-123", Name: "ops"},
	}}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", validKey)
	rec, ctx := serve(Middleware(store, statusOnly), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	apiKey := GetAPIKeyFromContext(ctx)
	require.NotNil(t, apiKey)
	assert.Equal(t, "key-123", apiKey.ID)
	assert.Equal(t, "ops", OperatorFromContext(ctx))
}

func TestMiddleware_InvalidKey(t *testing.T) {
	store := &mockValidator{keys: map[string]*storage.APIKey{}}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", validKey)
	rec, _ := serve(Middleware(store, statusOnly), req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, store.calls)
}

func TestMiddleware_MalformedKeySkipsLookup(t *testing.T) {
	store := &mockValidator{keys: map[string]*storage.APIKey{}}

	for _, key := range []string{"cf_key_abc", "zkt_key_", "zkt_key_XYZ", "zkt_key_0123 OR 1=1"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-API-Key", key)
		rec, _ := serve(Middleware(store, statusOnly), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, key)
	}
	assert.Zero(t, store.calls)
}

func TestMiddleware_MissingKey(t *testing.T) {
	store := &mockValidator{keys: map[string]*storage.APIKey{}}

	rec, _ := serve(Middleware(store, statusOnly), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_BearerToken(t *testing.T) {
	store := &mockValidator{keys: map[string]*storage.APIKey{
		bearerKey: {ID: "key-456", Name: "bearer-test"},
	}}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+bearerKey)
	rec, ctx := serve(Middleware(store, statusOnly), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	apiKey := GetAPIKeyFromContext(ctx)
	require.NotNil(t, apiKey)
	assert.Equal(t, "key-456", apiKey.ID)
}

func TestAuditLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := &mockValidator{keys: map[string]*storage.APIKey{
		validKey: {ID: "key-123", Name: "ops"},
	}}

	chain := func(next http.Handler) http.Handler {
		return Middleware(store, statusOnly)(AuditLog(logger)(next))
	}
	req := httptest.NewRequest("GET", "/admin/sessions", nil)
	req.Header.Set("X-API-Key", validKey)
	rec, _ := serve(chain, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "operator=ops")
	assert.Contains(t, buf.String(), "path=/admin/sessions")
	assert.NotContains(t, buf.String(), validKey)
}
