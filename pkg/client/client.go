// Package client provides a Go client for the ZK-Trails API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a ZK-Trails API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new client. The API key is only needed for operator routes.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// Proof generation can take minutes
			Timeout: 3 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Mission is the public view of a catalog mission.
type Mission struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Category           string        `json:"category,omitempty"`
	Type               string        `json:"type"`
	VerificationMethod string        `json:"verificationMethod"`
	Reward             int           `json:"reward"`
	XP                 int           `json:"xp"`
	Difficulty         string        `json:"difficulty,omitempty"`
	ZoneName           string        `json:"zoneName,omitempty"`
	MaxAgeSeconds      int           `json:"maxAgeSeconds,omitempty"`
	QuestionCount      int           `json:"questionCount,omitempty"`
	Requirements       *Requirements `json:"requirements,omitempty"`
}

// Requirements describes what a ledger mission expects.
type Requirements struct {
	ContractID   string `json:"contractId,omitempty"`
	TokenIn      string `json:"tokenIn,omitempty"`
	TokenOut     string `json:"tokenOut,omitempty"`
	MinAmount    int64  `json:"minAmount,omitempty"`
	QuestAddress string `json:"questAddress,omitempty"`
	RequiredMemo string `json:"requiredMemo,omitempty"`
}

// Question is a quiz question without its answer.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Verdict is the result of a standalone verification.
type Verdict struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}

// QuizResult is the result of scoring quiz answers.
type QuizResult struct {
	Correct      int    `json:"correct"`
	Total        int    `json:"total"`
	Passed       bool   `json:"passed"`
	ScorePercent int    `json:"scorePercent"`
	Verified     bool   `json:"verified"`
	Reason       string `json:"reason"`
}

// Location is a reported position. Timestamp is unix seconds.
type Location struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp *int64  `json:"timestamp,omitempty"`
}

// Evidence carries the proof for one verification method.
type Evidence struct {
	Answers   map[string]int `json:"answers,omitempty"`
	Lat       *float64       `json:"lat,omitempty"`
	Lon       *float64       `json:"lon,omitempty"`
	Timestamp *int64         `json:"timestamp,omitempty"`
	TxHash    string         `json:"txHash,omitempty"`
}

// CompleteRequest is the request for completing a mission.
type CompleteRequest struct {
	MissionID     string   `json:"missionId"`
	WalletAddress string   `json:"walletAddress"`
	SessionID     uint32   `json:"sessionId,omitempty"`
	Evidence      Evidence `json:"evidence"`
}

// CompleteResult is the outcome of a completion attempt.
type CompleteResult struct {
	Verified     bool        `json:"verified"`
	Reason       string      `json:"reason"`
	TxHash       string      `json:"txHash,omitempty"`
	OnChain      bool        `json:"onChain"`
	GameHubEnded bool        `json:"gameHubEnded"`
	Reward       int         `json:"reward"`
	SessionID    uint32      `json:"sessionId,omitempty"`
	Quiz         *QuizResult `json:"quiz,omitempty"`
}

// StartResult identifies a newly started session.
type StartResult struct {
	SessionID      uint32 `json:"sessionId"`
	GameHubStarted bool   `json:"gameHubStarted"`
}

// Session is the operator view of a session.
type Session struct {
	SessionID      uint32     `json:"sessionId"`
	MissionID      string     `json:"missionId"`
	Player1        string     `json:"player1"`
	Player2        string     `json:"player2"`
	State          string     `json:"state"`
	GameHubStarted bool       `json:"gameHubStarted"`
	GameHubEnded   bool       `json:"gameHubEnded"`
	StartedAt      time.Time  `json:"startedAt"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
}

// Completion is a settled mission completion.
type Completion struct {
	ID            string    `json:"id"`
	MissionID     string    `json:"missionId"`
	WalletAddress string    `json:"walletAddress"`
	SessionID     uint32    `json:"sessionId,omitempty"`
	Reward        int       `json:"reward"`
	TxHash        string    `json:"txHash"`
	OnChain       bool      `json:"onChain"`
	Evidence      string    `json:"evidence"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Player is a player profile.
type Player struct {
	Address           string    `json:"address"`
	Score             int       `json:"score"`
	Tier              string    `json:"tier"`
	CompletedMissions []string  `json:"completedMissions"`
	CreatedAt         time.Time `json:"createdAt"`
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	Rank              int    `json:"rank"`
	Address           string `json:"address"`
	Score             int    `json:"score"`
	Tier              string `json:"tier"`
	MissionsCompleted int    `json:"missionsCompleted"`
}

// Proof is a generated location proof, hex encoded.
type Proof struct {
	ID            string  `json:"id"`
	Proof         string  `json:"proof"`
	PublicInputs  *string `json:"publicInputs"`
	MissionID     string  `json:"missionId"`
	WalletAddress string  `json:"walletAddress"`
	Timestamp     int64   `json:"timestamp"`
}

// ProverStatus reports the proving toolchain.
type ProverStatus struct {
	Status            string   `json:"status"`
	Engine            string   `json:"engine"`
	Nargo             string   `json:"nargo"`
	Barretenberg      string   `json:"barretenberg"`
	Circuits          []string `json:"circuits"`
	MissionsAvailable int      `json:"missionsAvailable"`
}

// Health is the service health report.
type Health struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Network      string            `json:"network"`
	Missions     int               `json:"missions"`
	Contracts    map[string]string `json:"contracts"`
	LedgerWrites bool              `json:"ledgerWrites"`
	Prover       bool              `json:"prover"`
}

// CompletionFilter narrows an operator completion listing.
type CompletionFilter struct {
	Wallet    string
	MissionID string
	Limit     int
}

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Health fetches the service health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListMissions lists the mission catalog.
func (c *Client) ListMissions(ctx context.Context) ([]Mission, error) {
	var resp struct {
		Missions []Mission `json:"missions"`
	}
	if err := c.get(ctx, "/api/v1/missions", &resp); err != nil {
		return nil, err
	}
	return resp.Missions, nil
}

// GetMission gets a mission by ID.
func (c *Client) GetMission(ctx context.Context, id string) (*Mission, error) {
	var resp Mission
	if err := c.get(ctx, "/api/v1/missions/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Questions gets the quiz questions for a mission.
func (c *Client) Questions(ctx context.Context, missionID string) ([]Question, error) {
	var resp struct {
		Questions []Question `json:"questions"`
	}
	if err := c.get(ctx, missionPath(missionID, "questions"), &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// VerifyAnswers scores quiz answers without settling.
func (c *Client) VerifyAnswers(ctx context.Context, missionID string, answers map[string]int) (*QuizResult, error) {
	var resp QuizResult
	body := map[string]any{"answers": answers}
	if err := c.post(ctx, missionPath(missionID, "verify-answers"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyLocation checks a position against a mission geofence without settling.
func (c *Client) VerifyLocation(ctx context.Context, missionID string, loc Location) (*Verdict, error) {
	var resp Verdict
	if err := c.post(ctx, missionPath(missionID, "verify-location"), loc, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyTransaction checks a ledger transaction without settling.
func (c *Client) VerifyTransaction(ctx context.Context, missionID, txHash, wallet string) (*Verdict, error) {
	var resp Verdict
	body := map[string]string{"txHash": txHash, "walletAddress": wallet}
	if err := c.post(ctx, missionPath(missionID, "verify-transaction"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartMission opens a session for a mission attempt.
func (c *Client) StartMission(ctx context.Context, missionID, wallet string) (*StartResult, error) {
	var resp StartResult
	body := map[string]string{"walletAddress": wallet}
	if err := c.post(ctx, missionPath(missionID, "start"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteMission verifies evidence and settles on success.
func (c *Client) CompleteMission(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	var resp CompleteResult
	if err := c.post(ctx, "/api/v1/complete-mission", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateLocationProof asks the server to prove a position is inside a mission zone.
func (c *Client) GenerateLocationProof(ctx context.Context, missionID, wallet string, lat, lon float64) (*Proof, error) {
	var resp Proof
	body := map[string]any{"missionId": missionID, "walletAddress": wallet, "lat": lat, "lon": lon}
	if err := c.post(ctx, "/api/v1/proofs/location", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProof fetches a previously generated proof.
func (c *Client) GetProof(ctx context.Context, id string) (*Proof, error) {
	var resp Proof
	if err := c.get(ctx, "/api/v1/proofs/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProverStatus reports whether proof generation is available.
func (c *Client) ProverStatus(ctx context.Context) (*ProverStatus, error) {
	var resp ProverStatus
	if err := c.get(ctx, "/api/v1/zk/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPlayer fetches a player profile.
func (c *Client) GetPlayer(ctx context.Context, address string) (*Player, error) {
	var resp Player
	if err := c.get(ctx, "/api/v1/players/"+url.PathEscape(address), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterPlayer creates a player profile if it does not exist.
func (c *Client) RegisterPlayer(ctx context.Context, address string) (*Player, error) {
	var resp struct {
		Player Player `json:"player"`
	}
	if err := c.post(ctx, "/api/v1/players", map[string]string{"address": address}, &resp); err != nil {
		return nil, err
	}
	return &resp.Player, nil
}

// Leaderboard lists the top players.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	path := "/api/v1/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Leaderboard, nil
}

// ListSessions lists sessions, optionally filtered by state. Requires an API key.
func (c *Client) ListSessions(ctx context.Context, state string, limit int) ([]Session, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.get(ctx, withQuery("/api/v1/admin/sessions", q), &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// GetSession fetches one session. Requires an API key.
func (c *Client) GetSession(ctx context.Context, sessionID uint32) (*Session, error) {
	var resp Session
	path := "/api/v1/admin/sessions/" + strconv.FormatUint(uint64(sessionID), 10)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCompletions lists settled completions. Requires an API key.
func (c *Client) ListCompletions(ctx context.Context, filter CompletionFilter) ([]Completion, error) {
	q := url.Values{}
	if filter.Wallet != "" {
		q.Set("wallet", filter.Wallet)
	}
	if filter.MissionID != "" {
		q.Set("mission", filter.MissionID)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	var resp struct {
		Completions []Completion `json:"completions"`
	}
	if err := c.get(ctx, withQuery("/api/v1/admin/completions", q), &resp); err != nil {
		return nil, err
	}
	return resp.Completions, nil
}

func missionPath(id, action string) string {
	return "/api/v1/missions/" + url.PathEscape(id) + "/" + action
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
	}
	errResp.Error.StatusCode = resp.StatusCode
	return &errResp.Error
}
