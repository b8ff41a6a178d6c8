//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/chains"
	"github.com/zktrails/zktrails/internal/config"
	"github.com/zktrails/zktrails/internal/server"
	"github.com/zktrails/zktrails/internal/storage"
	"github.com/zktrails/zktrails/pkg/client"
)

const (
	questTx   = "3389e9f0f1a65f19736cacf544c2e825313e8447f569233bb8db39aa607c8889"
	wrongTx   = "c0ffee00f1a65f19736cacf544c2e825313e8447f569233bb8db39aa607c8889"
	hubID     = "CGAMEHUBE2E"
	managerID = "CMISSIONMANAGERE2E"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	TestServer        *httptest.Server
	Server            *server.Server
	Store             storage.Store
	Ledger            *fakeLedger
}

// fakeLedger stands in for both the explorer and the contract invoker.
type fakeLedger struct {
	mu           sync.Mutex
	txs          map[string]*chains.Transaction
	calls        []chains.Invocation
	failSettling bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{txs: make(map[string]*chains.Transaction)}
}

func (l *fakeLedger) addTx(tx chains.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs[tx.Hash] = &tx
}

func (l *fakeLedger) setFailSettling(fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failSettling = fail
}

func (l *fakeLedger) Transaction(ctx context.Context, hash string) (*chains.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.txs[hash]
	if !ok {
		return nil, chains.ErrTxNotFound
	}
	cp := *tx
	return &cp, nil
}

func (l *fakeLedger) Operations(ctx context.Context, hash string) ([]chains.Operation, error) {
	return []chains.Operation{{ID: "1", Type: "payment"}}, nil
}

func (l *fakeLedger) Invoke(ctx context.Context, inv chains.Invocation) chains.CallResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, inv)
	if inv.Function == "complete_mission" && l.failSettling {
		return chains.Failed(chains.OutcomeError, "simulated RPC outage")
	}
	return chains.Submitted(chains.OutcomeSuccess, fmt.Sprintf("tx%04d", len(l.calls)))
}

func (l *fakeLedger) countCalls(function string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c.Function == function {
			n++
		}
	}
	return n
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("zktrails"),
		postgres.WithUsername("zktrails"),
		postgres.WithPassword("zktrails"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// startServerE starts the zktrails server in-process against Postgres
func startServerE(tc *TestContext) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Storage = config.StorageConfig{Type: "postgres", Postgres: config.PostgresConfig{URL: tc.ConnString}}
	cfg.Auth.Type = "api-key"
	cfg.RateLimit.Enabled = false
	cfg.Sessions.Store = "database"
	cfg.Sessions.SweeperEnabled = false
	cfg.GameHub.ContractID = hubID
	cfg.GameHub.MissionManagerContractID = managerID
	cfg.Missions.SingleCompletion = true

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	ledger := newFakeLedger()
	srv, err := server.New(cfg, server.Deps{
		Store:    store,
		Catalog:  catalog.Default(),
		Explorer: ledger,
		Invoker:  ledger,
		Clock:    clockwork.NewRealClock(),
	}, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	tc.Store = store
	tc.Server = srv
	tc.Ledger = ledger
	tc.TestServer = httptest.NewServer(srv.Handler())
	return nil
}

// newClient creates a new API client for the test server
func newClient(apiKey string) *client.Client {
	return client.New(testCtx.TestServer.URL, apiKey)
}

// createTestAPIKey creates a test API key using the store directly
func createTestAPIKey(t *testing.T, name string) string {
	key, err := testCtx.Store.CreateAPIKey(context.Background(), name)
	require.NoError(t, err, "Failed to create API key")
	return key
}

// assertHTTPError asserts that an error is an APIError with the expected code
func assertHTTPError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	require.Error(t, err, "Expected an error")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "Error should be an APIError")
	require.Equal(t, expectedCode, apiErr.Code, "Error code mismatch")
}

func ptr[T any](v T) *T { return &v }
