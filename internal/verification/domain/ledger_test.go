package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/chains"
)

const (
	testWallet  = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"
	otherWallet = "GAAZI4TCR3TY5OJHCTJC2A4QSY6CJWJH5IAJTGKIN2ER7LBNVKOCCWN7"
	testTxHash  = "3389e9f0f1a65f19736cacf544c2e825313e8447f569233bb8db39aa607c8889"
)

// mockExplorer implements chains.Explorer for testing
type mockExplorer struct {
	txs    map[string]*chains.Transaction
	ops    map[string][]chains.Operation
	txErr  error
	opsErr error
	calls  int
}

func newMockExplorer() *mockExplorer {
	return &mockExplorer{
		txs: make(map[string]*chains.Transaction),
		ops: make(map[string][]chains.Operation),
	}
}

func (m *mockExplorer) add(hash, source, memo string, opTypes ...string) {
	m.txs[hash] = &chains.Transaction{Hash: hash, SourceAccount: source, Memo: memo, Successful: true}
	for i, t := range opTypes {
		m.ops[hash] = append(m.ops[hash], chains.Operation{ID: string(rune('1' + i)), Type: t})
	}
}

func (m *mockExplorer) Transaction(ctx context.Context, hash string) (*chains.Transaction, error) {
	m.calls++
	if m.txErr != nil {
		return nil, m.txErr
	}
	tx, ok := m.txs[hash]
	if !ok {
		return nil, chains.ErrTxNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *mockExplorer) Operations(ctx context.Context, hash string) ([]chains.Operation, error) {
	if m.opsErr != nil {
		return nil, m.opsErr
	}
	return m.ops[hash], nil
}

func newTestLedgerVerifier(explorer chains.Explorer) *LedgerVerifier {
	return NewLedgerVerifier(explorer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustMission(t *testing.T, id string) *catalog.Mission {
	t.Helper()
	m, err := catalog.Default().Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestLedgerVerifier_Memo(t *testing.T) {
	explorer := newMockExplorer()
	v := newTestLedgerVerifier(explorer)
	m := mustMission(t, "m4")

	explorer.add(testTxHash, testWallet, "ZK-TRAILS-QUEST", "payment")
	res := v.Verify(context.Background(), m, testTxHash, testWallet)
	assert.True(t, res.Verified, res.Reason)

	explorer.add(testTxHash, testWallet, "WRONG", "payment")
	res = v.Verify(context.Background(), m, testTxHash, testWallet)
	assert.False(t, res.Verified)
	assert.Contains(t, res.Reason, "ZK-TRAILS-QUEST")
	assert.Contains(t, res.Reason, "WRONG")
}

func TestLedgerVerifier_Methods(t *testing.T) {
	tests := []struct {
		name     string
		mission  string
		ops      []string
		verified bool
		reason   string
	}{
		{"swap with contract call", "m1", []string{"invoke_host_function"}, true, ""},
		{"swap without contract call", "m1", []string{"payment"}, false, reasonNoSwap},
		{"swap without operations", "m1", nil, false, reasonNoSwap},
		{"dex sell offer", "m2", []string{"payment", "manage_sell_offer"}, true, ""},
		{"dex path payment", "m2", []string{"path_payment_strict_receive"}, true, ""},
		{"dex without trade", "m2", []string{"invoke_host_function"}, false, reasonNoTrade},
		{"governance accepts any transaction", "m3", []string{"payment"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			explorer := newMockExplorer()
			explorer.add(testTxHash, testWallet, "", tt.ops...)
			v := newTestLedgerVerifier(explorer)

			res := v.Verify(context.Background(), mustMission(t, tt.mission), testTxHash, testWallet)
			assert.Equal(t, tt.verified, res.Verified, res.Reason)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, res.Reason)
			}
		})
	}
}

func TestLedgerVerifier_ShortCircuits(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		v := newTestLedgerVerifier(newMockExplorer())
		res := v.Verify(context.Background(), mustMission(t, "m1"), testTxHash, testWallet)
		assert.False(t, res.Verified)
		assert.Equal(t, reasonTxNotFound, res.Reason)
	})

	t.Run("source mismatch", func(t *testing.T) {
		explorer := newMockExplorer()
		explorer.add(testTxHash, otherWallet, "ZK-TRAILS-QUEST", "invoke_host_function")
		v := newTestLedgerVerifier(explorer)

		for _, id := range []string{"m1", "m2", "m3", "m4"} {
			res := v.Verify(context.Background(), mustMission(t, id), testTxHash, testWallet)
			assert.False(t, res.Verified, id)
			assert.Equal(t, reasonSourceMismatch, res.Reason, id)
		}
	})

	t.Run("failed transaction", func(t *testing.T) {
		explorer := newMockExplorer()
		explorer.add(testTxHash, testWallet, "", "invoke_host_function")
		explorer.txs[testTxHash].Successful = false
		v := newTestLedgerVerifier(explorer)

		res := v.Verify(context.Background(), mustMission(t, "m1"), testTxHash, testWallet)
		assert.False(t, res.Verified)
		assert.Equal(t, reasonTxFailed, res.Reason)
	})

	t.Run("not a ledger mission", func(t *testing.T) {
		explorer := newMockExplorer()
		v := newTestLedgerVerifier(explorer)
		res := v.Verify(context.Background(), mustMission(t, "m0"), testTxHash, testWallet)
		assert.False(t, res.Verified)
		assert.Zero(t, explorer.calls)
	})
}

func TestLedgerVerifier_UpstreamErrorsCollapse(t *testing.T) {
	t.Run("transaction lookup", func(t *testing.T) {
		explorer := newMockExplorer()
		explorer.txErr = errors.New("dial tcp: connection refused")
		v := newTestLedgerVerifier(explorer)

		res := v.Verify(context.Background(), mustMission(t, "m1"), testTxHash, testWallet)
		assert.False(t, res.Verified)
		assert.Equal(t, reasonRetry, res.Reason)
		assert.NotContains(t, res.Reason, "dial tcp")
	})

	t.Run("operations lookup", func(t *testing.T) {
		explorer := newMockExplorer()
		explorer.add(testTxHash, testWallet, "")
		explorer.opsErr = errors.New("unexpected status 503")
		v := newTestLedgerVerifier(explorer)

		res := v.Verify(context.Background(), mustMission(t, "m2"), testTxHash, testWallet)
		assert.False(t, res.Verified)
		assert.Equal(t, reasonRetry, res.Reason)
	})
}
