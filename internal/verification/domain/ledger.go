package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/chains"
)

const (
	reasonTxNotFound     = "Transaction not found"
	reasonSourceMismatch = "Transaction source mismatch"
	reasonTxFailed       = "Transaction failed on the ledger"
	reasonNoSwap         = "Transaction has no swap operation"
	reasonNoTrade        = "Transaction has no trade operation"
	reasonRetry          = "Verification error — try again"
	reasonNotLedger      = "Mission does not accept transaction proofs"
)

// contractInvocationOp is the operation type of a smart-contract call.
const contractInvocationOp = "invoke_host_function"

// tradeOps are the operation types that count as a DEX trade.
var tradeOps = map[string]bool{
	"manage_sell_offer":           true,
	"manage_buy_offer":            true,
	"create_passive_sell_offer":   true,
	"path_payment_strict_send":    true,
	"path_payment_strict_receive": true,
}

// LedgerVerifier checks transactions on the ledger explorer. The explorer is
// the single source of truth: replay and double-spend checks are left to
// the caller.
type LedgerVerifier struct {
	explorer chains.Explorer
	logger   *slog.Logger
}

// NewLedgerVerifier creates a LedgerVerifier.
func NewLedgerVerifier(explorer chains.Explorer, logger *slog.Logger) *LedgerVerifier {
	return &LedgerVerifier{explorer: explorer, logger: logger}
}

// Verify classifies a transaction against a ledger mission. Explorer
// failures collapse to a generic retry verdict and are logged.
func (v *LedgerVerifier) Verify(ctx context.Context, m *catalog.Mission, txHash, wallet string) Result {
	if !m.Method.IsLedger() {
		return Result{Reason: reasonNotLedger}
	}

	tx, err := v.explorer.Transaction(ctx, txHash)
	if err != nil {
		if errors.Is(err, chains.ErrTxNotFound) {
			return Result{Reason: reasonTxNotFound}
		}
		return v.retry(m, txHash, "fetching transaction", err)
	}
	if tx.SourceAccount != wallet {
		return Result{Reason: reasonSourceMismatch}
	}
	if !tx.Successful {
		return Result{Reason: reasonTxFailed}
	}

	switch m.Method {
	case catalog.MethodSwapTransaction:
		ok, err := v.hasOperation(ctx, txHash, func(t string) bool { return t == contractInvocationOp })
		if err != nil {
			return v.retry(m, txHash, "fetching operations", err)
		}
		if !ok {
			return Result{Reason: reasonNoSwap}
		}
		return Result{Verified: true, Reason: "Swap transaction verified"}

	case catalog.MethodDexTrade:
		ok, err := v.hasOperation(ctx, txHash, func(t string) bool { return tradeOps[t] })
		if err != nil {
			return v.retry(m, txHash, "fetching operations", err)
		}
		if !ok {
			return Result{Reason: reasonNoTrade}
		}
		return Result{Verified: true, Reason: "DEX trade verified"}

	case catalog.MethodGovernanceVote:
		// Any successful transaction from the wallet counts as a vote
		return Result{Verified: true, Reason: "Governance vote verified"}

	case catalog.MethodMemoTransaction:
		want := ""
		if m.Memo != nil {
			want = m.Memo.RequiredMemo
		}
		if tx.Memo != want {
			return Result{Reason: fmt.Sprintf("Memo mismatch: expected %q, got %q", want, tx.Memo)}
		}
		return Result{Verified: true, Reason: "Memo transaction verified"}
	}
	return Result{Reason: reasonNotLedger}
}

// VerifyAttempt verifies the transaction evidence of an attempt.
func (v *LedgerVerifier) VerifyAttempt(ctx context.Context, a Attempt) (Result, error) {
	if a.Evidence.TxHash == "" {
		return Result{}, fmt.Errorf("%w: txHash is required", ErrInvalidInput)
	}
	return v.Verify(ctx, a.Mission, a.Evidence.TxHash, a.Wallet), nil
}

func (v *LedgerVerifier) hasOperation(ctx context.Context, txHash string, match func(string) bool) (bool, error) {
	ops, err := v.explorer.Operations(ctx, txHash)
	if err != nil {
		return false, err
	}
	for _, op := range ops {
		if match(op.Type) {
			return true, nil
		}
	}
	return false, nil
}

func (v *LedgerVerifier) retry(m *catalog.Mission, txHash, step string, err error) Result {
	v.logger.Error("ledger verification failed",
		"mission_id", m.ID,
		"tx_hash", txHash,
		"step", step,
		"error", err,
	)
	return Result{Reason: reasonRetry}
}
