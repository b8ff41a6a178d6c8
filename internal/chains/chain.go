// Package chains defines the ledger collaborators used by zktrails: a read-only
// explorer for transaction inspection and an invoker for signed contract calls.
package chains

import (
	"context"
	"errors"
	"time"
)

// ErrTxNotFound is returned by an Explorer when the ledger has no such transaction.
var ErrTxNotFound = errors.New("transaction not found")

// Transaction is the subset of a ledger transaction used for verification.
type Transaction struct {
	Hash          string
	SourceAccount string
	Memo          string
	MemoType      string
	Successful    bool
	CreatedAt     time.Time
}

// Operation is a single operation within a transaction.
type Operation struct {
	ID   string
	Type string
}

// Explorer reads transactions from a ledger indexer.
type Explorer interface {
	Transaction(ctx context.Context, hash string) (*Transaction, error)
	Operations(ctx context.Context, hash string) ([]Operation, error)
}

// Outcome is the submission status reported by the ledger RPC.
type Outcome string

const (
	OutcomePending       Outcome = "PENDING"
	OutcomeSuccess       Outcome = "SUCCESS"
	OutcomeDuplicate     Outcome = "DUPLICATE"
	OutcomeTryAgainLater Outcome = "TRY_AGAIN_LATER"
	OutcomeError         Outcome = "ERROR"
	OutcomeFailed        Outcome = "FAILED"
)

// Acceptable reports whether the outcome counts as a successful submission.
// DUPLICATE means the ledger already holds an identical call.
func (o Outcome) Acceptable() bool {
	switch o {
	case OutcomePending, OutcomeSuccess, OutcomeDuplicate:
		return true
	}
	return false
}

// CallResult records what happened to a tolerant external call. It is a value,
// never an error, so callers can always inspect what was tried.
type CallResult struct {
	Attempted bool
	Succeeded bool
	Status    Outcome
	TxHash    string
	Detail    string
}

// Skipped builds the result of a call that was never attempted.
func Skipped(detail string) CallResult {
	return CallResult{Detail: detail}
}

// Failed builds the result of an attempted call that did not go through.
func Failed(status Outcome, detail string) CallResult {
	return CallResult{Attempted: true, Status: status, Detail: detail}
}

// Submitted builds the result of a call the RPC answered.
func Submitted(status Outcome, txHash string) CallResult {
	return CallResult{
		Attempted: true,
		Succeeded: status.Acceptable(),
		Status:    status,
		TxHash:    txHash,
	}
}

// Arg is a named contract function argument, rendered as a string.
type Arg struct {
	Name  string
	Value string
}

// Invocation is a single contract function call.
type Invocation struct {
	ContractID string
	Function   string
	Args       []Arg
}

// Invoker signs and submits contract invocations with the server's admin key.
// Implementations report failures in the CallResult instead of returning errors.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) CallResult
}
