package stellar

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zktrails/zktrails/internal/chains"
	"github.com/zktrails/zktrails/internal/command"
)

// SubmitterConfig configures contract call submission.
type SubmitterConfig struct {
	Binary            string // stellar CLI
	RPCURL            string
	NetworkPassphrase string
	Fee               int
	Timeout           time.Duration
}

// Submitter is a chains.Invoker that builds, simulates and signs a contract
// call with the stellar CLI, then submits it through Soroban RPC so the raw
// submission status (PENDING, DUPLICATE, ...) is visible.
type Submitter struct {
	cfg      SubmitterConfig
	identity *Identity
	rpc      *RPC
	runner   command.Runner
	logger   *slog.Logger
}

// NewSubmitter creates a Submitter signing with identity.
func NewSubmitter(cfg SubmitterConfig, identity *Identity, rpc *RPC, runner command.Runner, logger *slog.Logger) *Submitter {
	if cfg.Binary == "" {
		cfg.Binary = "stellar"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Fee <= 0 {
		cfg.Fee = 100000
	}
	if runner == nil {
		runner = command.ExecRunner{}
	}
	return &Submitter{cfg: cfg, identity: identity, rpc: rpc, runner: runner, logger: logger}
}

// Invoke submits inv. The call runs on a context detached from the caller's
// cancellation and bounded by the configured timeout, so a client disconnect
// does not abandon a submission half way.
func (s *Submitter) Invoke(ctx context.Context, inv chains.Invocation) chains.CallResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result := s.invoke(ctx, inv)

	level := slog.LevelInfo
	if !result.Succeeded {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "contract call",
		"contract", inv.ContractID,
		"function", inv.Function,
		"status", result.Status,
		"tx_hash", result.TxHash,
		"detail", result.Detail,
		"duration", time.Since(start),
	)
	return result
}

func (s *Submitter) invoke(ctx context.Context, inv chains.Invocation) chains.CallResult {
	env := []string{
		"STELLAR_RPC_URL=" + s.cfg.RPCURL,
		"STELLAR_NETWORK_PASSPHRASE=" + s.cfg.NetworkPassphrase,
		"STELLAR_ACCOUNT=" + s.identity.Secret(),
	}

	args := []string{
		"contract", "invoke",
		"--id", inv.ContractID,
		"--fee", strconv.Itoa(s.cfg.Fee),
		"--build-only",
		"--", inv.Function,
	}
	for _, a := range inv.Args {
		args = append(args, "--"+a.Name, a.Value)
	}

	unsigned, err := s.runner.Run(ctx, env, nil, s.cfg.Binary, args...)
	if err != nil {
		return chains.Failed(chains.OutcomeError, fmt.Sprintf("building transaction: %v", err))
	}

	simulated, err := s.runner.Run(ctx, env, unsigned, s.cfg.Binary, "tx", "simulate")
	if err != nil {
		return chains.Failed(chains.OutcomeError, fmt.Sprintf("simulating transaction: %v", err))
	}

	signEnv := append(env, "STELLAR_SIGN_WITH_KEY="+s.identity.Secret())
	signed, err := s.runner.Run(ctx, signEnv, simulated, s.cfg.Binary, "tx", "sign")
	if err != nil {
		return chains.Failed(chains.OutcomeError, fmt.Sprintf("signing transaction: %v", err))
	}

	sent, err := s.rpc.SendTransaction(ctx, strings.TrimSpace(string(signed)))
	if err != nil {
		return chains.Failed(chains.OutcomeError, fmt.Sprintf("sending transaction: %v", err))
	}

	result := chains.Submitted(chains.Outcome(sent.Status), sent.Hash)
	if !result.Succeeded && sent.ErrorResultXDR != "" {
		result.Detail = "error result " + sent.ErrorResultXDR
	}
	return result
}

// Disabled is a chains.Invoker used when no admin credential is configured.
// Every call is reported as not attempted.
type Disabled struct {
	Reason string
}

// Invoke implements chains.Invoker.
func (d Disabled) Invoke(ctx context.Context, inv chains.Invocation) chains.CallResult {
	return chains.Skipped(d.Reason)
}
