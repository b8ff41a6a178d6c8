package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/chains"
	"github.com/zktrails/zktrails/internal/chains/stellar"
	"github.com/zktrails/zktrails/internal/command"
	"github.com/zktrails/zktrails/internal/config"
	proofsDomain "github.com/zktrails/zktrails/internal/proofs/domain"
	"github.com/zktrails/zktrails/internal/prover"
	"github.com/zktrails/zktrails/internal/storage"
)

// Deps are the collaborators the server wires its services from.
type Deps struct {
	Store    storage.Store
	Catalog  *catalog.Catalog
	Explorer chains.Explorer
	Invoker  chains.Invoker
	Prover   proofsDomain.Prover // nil disables proof generation
	Ledger   LedgerHealth        // nil skips the ledger readiness check
	Clock    clockwork.Clock
}

// LedgerHealth reports whether the ledger RPC node is serving.
type LedgerHealth interface {
	GetHealth(ctx context.Context) (*stellar.Health, error)
}

// NewDeps builds the production collaborators. A missing admin identity
// disables ledger writes instead of failing startup.
func NewDeps(cfg *config.Config, store storage.Store, logger *slog.Logger) (Deps, error) {
	cat := catalog.Default()
	if cfg.Missions.CatalogPath != "" {
		var err error
		if cat, err = catalog.Load(cfg.Missions.CatalogPath); err != nil {
			return Deps{}, fmt.Errorf("loading mission catalog: %w", err)
		}
	}
	logger.Info("mission catalog loaded", "version", cat.Version(), "missions", cat.Len())

	opts := []stellar.HorizonOption{stellar.WithRateLimit(cfg.Ledger.ExplorerRPS)}
	if cfg.Cache.Enabled {
		opts = append(opts, stellar.WithCache(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSeconds)*time.Second))
	}
	explorer := stellar.NewHorizon(cfg.Ledger.HorizonURL, opts...)

	rpc := stellar.NewRPC(cfg.Ledger.RPCURL, nil)
	invoker, err := newInvoker(cfg, rpc, logger)
	if err != nil {
		return Deps{}, err
	}

	deps := Deps{
		Store:    store,
		Catalog:  cat,
		Explorer: explorer,
		Invoker:  invoker,
		Ledger:   rpc,
		Clock:    clockwork.NewRealClock(),
	}
	if cfg.Prover.Enabled {
		deps.Prover = prover.New(command.ExecRunner{}, prover.Config{
			CircuitDir:  cfg.Prover.CircuitDir,
			CircuitName: cfg.Prover.CircuitName,
			Nargo:       cfg.Prover.NargoBinary,
			BB:          cfg.Prover.BBBinary,
		}, logger)
	}
	return deps, nil
}

func newInvoker(cfg *config.Config, rpc *stellar.RPC, logger *slog.Logger) (chains.Invoker, error) {
	home, _ := os.UserHomeDir()
	identity, err := stellar.LoadIdentity(cfg.Ledger.AdminSecret, cfg.Ledger.IdentityName, home)
	if errors.Is(err, stellar.ErrNoIdentity) {
		logger.Warn("no admin identity found, ledger writes disabled",
			"identity", cfg.Ledger.IdentityName,
			"hint", "set STELLAR_ADMIN_SECRET or run 'zktrails-server identity import'",
		)
		return stellar.Disabled{Reason: "admin identity not configured"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading admin identity: %w", err)
	}

	logger.Info("ledger writes enabled", "admin", identity)
	return stellar.NewSubmitter(stellar.SubmitterConfig{
		Binary:            cfg.Ledger.StellarBinary,
		RPCURL:            cfg.Ledger.RPCURL,
		NetworkPassphrase: cfg.Ledger.NetworkPassphrase,
		Fee:               cfg.Ledger.Fee,
		Timeout:           cfg.Ledger.CallTimeout,
	}, identity, rpc, command.ExecRunner{}, logger), nil
}
