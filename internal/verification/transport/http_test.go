package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/verification/domain"
)

const testWallet = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

// mockService implements Service for testing
type mockService struct {
	complete    domain.CompleteRequest
	location    domain.Location
	err         error
	completeRes *domain.CompleteResult
}

func (m *mockService) VerifyAndComplete(ctx context.Context, req domain.CompleteRequest) (*domain.CompleteResult, error) {
	m.complete = req
	if m.err != nil {
		return nil, m.err
	}
	return m.completeRes, nil
}

func (m *mockService) VerifyAnswers(ctx context.Context, missionID string, answers map[string]int) (*domain.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Result{
		Verified: true,
		Reason:   "Quiz passed with 4/5 correct",
		Quiz:     &domain.QuizScore{Correct: 4, Total: 5, Passed: true, ScorePercent: 80},
	}, nil
}

func (m *mockService) VerifyLocation(ctx context.Context, missionID string, loc domain.Location) (*domain.Result, error) {
	m.location = loc
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Result{Verified: loc.Lat == 40.414, Reason: "checked"}, nil
}

func (m *mockService) VerifyTransaction(ctx context.Context, missionID, txHash, wallet string) (*domain.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Result{Verified: false, Reason: `Memo mismatch: expected "ZK-TRAILS-QUEST", got "WRONG"`}, nil
}

func setupRouter(svc Service) *chi.Mux {
	r := chi.NewRouter()
	h := NewHandler(svc, catalog.Default())
	r.Route("/missions", h.RegisterMissionRoutes)
	h.RegisterCompleteRoute(r)
	return r
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ListMissions_Redacted(t *testing.T) {
	router := setupRouter(&mockService{})

	rec := do(router, "GET", "/missions/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Missions []map[string]any `json:"missions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Missions, 6)
	assert.Equal(t, "m0", resp.Missions[0]["id"])

	body := rec.Body.String()
	for _, secret := range []string{"latMin", "lat_min", "40413000", "correctIndex", "CorrectIndex"} {
		assert.NotContains(t, body, secret)
	}
}

func TestHandler_GetMission(t *testing.T) {
	router := setupRouter(&mockService{})

	rec := do(router, "GET", "/missions/m4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view catalog.MissionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, catalog.MethodMemoTransaction, view.Method)

	rec = do(router, "GET", "/missions/m9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Questions(t *testing.T) {
	router := setupRouter(&mockService{})

	rec := do(router, "GET", "/missions/m5/questions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correctIndex")

	var resp struct {
		Questions []catalog.QuestionView `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Questions, 5)

	assert.Equal(t, http.StatusBadRequest, do(router, "GET", "/missions/m0/questions", "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, "GET", "/missions/zz/questions", "").Code)
}

func TestHandler_VerifyAnswers(t *testing.T) {
	router := setupRouter(&mockService{})

	rec := do(router, "POST", "/missions/m5/verify-answers", `{"answers":{"q1":1}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QuizResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, QuizResponse{Correct: 4, Total: 5, Passed: true, ScorePercent: 80, Verified: true, Reason: "Quiz passed with 4/5 correct"}, resp)

	assert.Equal(t, http.StatusBadRequest, do(router, "POST", "/missions/m5/verify-answers", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "POST", "/missions/m5/verify-answers", `nope`).Code)
}

func TestHandler_VerifyLocation(t *testing.T) {
	svc := &mockService{}
	router := setupRouter(svc)

	rec := do(router, "POST", "/missions/m0/verify-location", `{"lat":40.414,"lon":-3.706,"timestamp":1760000000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VerdictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Verified)
	require.NotNil(t, svc.location.ReportedAt)
	assert.Equal(t, int64(1760000000), svc.location.ReportedAt.Unix())

	assert.Equal(t, http.StatusBadRequest, do(router, "POST", "/missions/m0/verify-location", `{"lat":40.414}`).Code)
}

func TestHandler_VerifyTransaction(t *testing.T) {
	router := setupRouter(&mockService{})

	rec := do(router, "POST", "/missions/m4/verify-transaction", `{"txHash":"abc","walletAddress":"`+testWallet+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VerdictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Verified)
	assert.Contains(t, resp.Reason, "WRONG")

	assert.Equal(t, http.StatusBadRequest, do(router, "POST", "/missions/m4/verify-transaction", `{"txHash":"abc"}`).Code)
}

func TestHandler_CompleteMission(t *testing.T) {
	svc := &mockService{completeRes: &domain.CompleteResult{
		Verified:     true,
		Reason:       "Location verified",
		TxHash:       "local-1760000000123",
		OnChain:      false,
		GameHubEnded: true,
		Reward:       100,
		SessionID:    123,
	}}
	router := setupRouter(svc)

	body := fmt.Sprintf(`{"missionId":"m0","walletAddress":%q,"sessionId":123,"evidence":{"lat":40.414,"lon":-3.706}}`, testWallet)
	rec := do(router, "POST", "/complete-mission", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["verified"])
	assert.Equal(t, "local-1760000000123", resp["txHash"])
	assert.Equal(t, false, resp["onChain"])
	assert.Equal(t, true, resp["gameHubEnded"])
	assert.Equal(t, float64(100), resp["reward"])

	assert.Equal(t, "m0", svc.complete.MissionID)
	assert.Equal(t, uint32(123), svc.complete.SessionID)
	require.NotNil(t, svc.complete.Evidence.Location)
	assert.Equal(t, -3.706, svc.complete.Evidence.Location.Lon)
}

func TestHandler_CompleteMission_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"invalid json", "{", nil, http.StatusBadRequest},
		{"missing mission", `{"walletAddress":"` + testWallet + `"}`, nil, http.StatusBadRequest},
		{"unknown mission", `{"missionId":"m9","walletAddress":"` + testWallet + `"}`, domain.ErrNotFound, http.StatusNotFound},
		{"bad evidence", `{"missionId":"m0","walletAddress":"` + testWallet + `"}`, domain.ErrInvalidInput, http.StatusBadRequest},
		{"already completed", `{"missionId":"m0","walletAddress":"` + testWallet + `"}`, domain.ErrAlreadyCompleted, http.StatusConflict},
		{"unexpected", `{"missionId":"m0","walletAddress":"` + testWallet + `"}`, assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&mockService{err: tt.err})
			rec := do(router, "POST", "/complete-mission", tt.body)
			assert.Equal(t, tt.want, rec.Code)

			var resp map[string]map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"]["code"])
		})
	}
}
