// Package prover drives the external Noir toolchain (nargo + bb) that
// produces UltraHonk location proofs.
package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/zktrails/zktrails/internal/command"
)

// ErrNoProof is returned when bb exits cleanly without writing a proof.
var ErrNoProof = errors.New("prover produced no proof")

const notInstalled = "not installed"

// Config locates the circuit and toolchain binaries.
type Config struct {
	CircuitDir  string
	CircuitName string
	Nargo       string
	BB          string
	Timeout     time.Duration // per step; zero means 2 minutes
}

// LocationInputs are the circuit inputs. Coordinates are micro-degrees and
// times are unix seconds.
type LocationInputs struct {
	ZoneLatMin  int64
	ZoneLatMax  int64
	ZoneLonMin  int64
	ZoneLonMax  int64
	CurrentTime int64
	MaxAge      int64
	UserLat     int64
	UserLon     int64
	UserTime    int64
}

// proverFile mirrors the circuit's main() parameters. Noir reads field
// values as strings.
type proverFile struct {
	ZoneLatMin  string `toml:"zone_lat_min"`
	ZoneLatMax  string `toml:"zone_lat_max"`
	ZoneLonMin  string `toml:"zone_lon_min"`
	ZoneLonMax  string `toml:"zone_lon_max"`
	CurrentTime string `toml:"current_time"`
	MaxAge      string `toml:"max_age"`
	UserLat     string `toml:"user_lat"`
	UserLon     string `toml:"user_lon"`
	UserTime    string `toml:"user_time"`
}

func (in LocationInputs) file() proverFile {
	s := func(v int64) string { return strconv.FormatInt(v, 10) }
	return proverFile{
		ZoneLatMin:  s(in.ZoneLatMin),
		ZoneLatMax:  s(in.ZoneLatMax),
		ZoneLonMin:  s(in.ZoneLonMin),
		ZoneLonMax:  s(in.ZoneLonMax),
		CurrentTime: s(in.CurrentTime),
		MaxAge:      s(in.MaxAge),
		UserLat:     s(in.UserLat),
		UserLon:     s(in.UserLon),
		UserTime:    s(in.UserTime),
	}
}

// Output is an opaque proof as written by bb.
type Output struct {
	Proof        []byte
	PublicInputs []byte // nil when bb wrote none
}

// Versions reports the installed toolchain.
type Versions struct {
	Nargo string
	BB    string
}

// Prover runs proofs. Compilation happens once and is serialized; each
// execution writes its own inputs, witness and output directory.
type Prover struct {
	runner command.Runner
	cfg    Config
	logger *slog.Logger

	compileMu sync.Mutex
	compiled  bool
}

// New creates a prover.
func New(runner command.Runner, cfg Config, logger *slog.Logger) *Prover {
	if cfg.Nargo == "" {
		cfg.Nargo = "nargo"
	}
	if cfg.BB == "" {
		cfg.BB = "bb"
	}
	if cfg.CircuitName == "" {
		cfg.CircuitName = filepath.Base(cfg.CircuitDir)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Prover{runner: runner, cfg: cfg, logger: logger}
}

// Circuit returns the circuit name.
func (p *Prover) Circuit() string {
	return p.cfg.CircuitName
}

// ProveLocation writes the inputs, executes the circuit and proves the witness.
func (p *Prover) ProveLocation(ctx context.Context, in LocationInputs) (*Output, error) {
	if err := p.compile(ctx); err != nil {
		return nil, err
	}

	run := "run_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	inputsPath := filepath.Join(p.cfg.CircuitDir, run+".toml")
	witnessPath := filepath.Join(p.cfg.CircuitDir, "target", run+".gz")

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(in.file()); err != nil {
		return nil, fmt.Errorf("encoding prover inputs: %w", err)
	}
	if err := os.WriteFile(inputsPath, buf.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("writing prover inputs: %w", err)
	}
	defer os.Remove(inputsPath)
	defer os.Remove(witnessPath)

	if _, err := p.run(ctx, p.cfg.Nargo, "execute", run,
		"--prover-name", run,
		"--program-dir", p.cfg.CircuitDir,
	); err != nil {
		return nil, err
	}

	outDir, err := os.MkdirTemp("", "zktrails-proof-")
	if err != nil {
		return nil, fmt.Errorf("creating proof output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	bytecode := filepath.Join(p.cfg.CircuitDir, "target", p.cfg.CircuitName+".json")
	if _, err := p.run(ctx, p.cfg.BB, "prove",
		"-b", bytecode,
		"-w", witnessPath,
		"-o", outDir,
		"--scheme", "ultra_honk",
	); err != nil {
		return nil, err
	}

	proof, err := os.ReadFile(filepath.Join(outDir, "proof"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoProof
	}
	if err != nil {
		return nil, fmt.Errorf("reading proof: %w", err)
	}
	out := &Output{Proof: proof}
	if pub, err := os.ReadFile(filepath.Join(outDir, "public_inputs")); err == nil {
		out.PublicInputs = pub
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading public inputs: %w", err)
	}

	p.logger.Debug("location proof generated", "circuit", p.cfg.CircuitName, "bytes", len(proof))
	return out, nil
}

func (p *Prover) compile(ctx context.Context) error {
	p.compileMu.Lock()
	defer p.compileMu.Unlock()
	if p.compiled {
		return nil
	}
	if _, err := p.run(ctx, p.cfg.Nargo, "compile", "--program-dir", p.cfg.CircuitDir); err != nil {
		return err
	}
	p.compiled = true
	return nil
}

// Versions asks each binary for its version. A missing binary reports
// "not installed".
func (p *Prover) Versions(ctx context.Context) Versions {
	return Versions{
		Nargo: p.version(ctx, p.cfg.Nargo),
		BB:    p.version(ctx, p.cfg.BB),
	}
}

func (p *Prover) version(ctx context.Context, bin string) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := p.runner.Run(ctx, nil, nil, bin, "--version")
	if err != nil {
		return notInstalled
	}
	v := strings.TrimSpace(string(out))
	if v == "" {
		return "unknown"
	}
	return v
}

func (p *Prover) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return p.runner.Run(ctx, nil, nil, bin, args...)
}
