package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zktrails/zktrails/pkg/client"
)

// evidenceFlags collects the evidence for any verification method.
type evidenceFlags struct {
	answers   string
	lat       float64
	lon       float64
	timestamp int64
	txHash    string
	hasLat    bool
	hasLon    bool
}

func (e *evidenceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&e.answers, "answers", "", "quiz answers, e.g. q1=1,q2=0")
	cmd.Flags().Float64Var(&e.lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&e.lon, "lon", 0, "longitude in degrees")
	cmd.Flags().Int64Var(&e.timestamp, "timestamp", 0, "unix time the position was taken (default: none)")
	cmd.Flags().StringVar(&e.txHash, "tx", "", "ledger transaction hash")
}

func (e *evidenceFlags) resolve(cmd *cobra.Command) {
	e.hasLat = cmd.Flags().Changed("lat")
	e.hasLon = cmd.Flags().Changed("lon")
}

func (e *evidenceFlags) evidence() (client.Evidence, error) {
	var ev client.Evidence
	if e.answers != "" {
		answers, err := parseAnswers(e.answers)
		if err != nil {
			return ev, err
		}
		ev.Answers = answers
	}
	if e.hasLat != e.hasLon {
		return ev, errors.New("--lat and --lon must be given together")
	}
	if e.hasLat {
		lat, lon := e.lat, e.lon
		ev.Lat, ev.Lon = &lat, &lon
		if e.timestamp > 0 {
			ts := e.timestamp
			ev.Timestamp = &ts
		}
	}
	ev.TxHash = e.txHash
	if ev.Answers == nil && ev.Lat == nil && ev.TxHash == "" {
		return ev, errors.New("evidence required: --answers, --lat/--lon, or --tx")
	}
	return ev, nil
}

func createStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <mission>",
		Short: "Start a mission session",
		Long: `Open a session for a mission attempt. Pass the printed session ID to
'zktrails complete --session' so the attempt is closed on the game hub.

EXAMPLES:
  zktrails start m0 --wallet G...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := requireWallet()
			if err != nil {
				return err
			}
			return runStart(cmd.Context(), newClient(), cmd.OutOrStdout(), args[0], w)
		},
	}
}

func runStart(ctx context.Context, c *client.Client, out io.Writer, missionID, walletAddr string) error {
	res, err := c.StartMission(ctx, missionID, walletAddr)
	if err != nil {
		return fmt.Errorf("failed to start mission: %w", err)
	}
	fmt.Fprintf(out, "Session %d started for %s\n", res.SessionID, missionID)
	if !res.GameHubStarted {
		fmt.Fprintln(out, "  (game hub not notified; the attempt is tracked locally)")
	}
	return nil
}

func createCompleteCmd() *cobra.Command {
	var ev evidenceFlags
	var sessionID uint32
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "complete <mission>",
		Short: "Submit evidence and settle a mission",
		Long: `Verify evidence for a mission and, when it passes, record the completion.

EXAMPLES:
  # Location mission inside an open session
  zktrails complete m0 --lat 40.4145 --lon -3.7065 --session 123456

  # Transaction mission
  zktrails complete m4 --tx 3389e9f0...

  # Quiz mission
  zktrails complete m5 --answers q1=1,q2=2,q3=3,q4=0,q5=2
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := requireWallet()
			if err != nil {
				return err
			}
			ev.resolve(cmd)
			evidence, err := ev.evidence()
			if err != nil {
				return err
			}
			req := client.CompleteRequest{
				MissionID:     args[0],
				WalletAddress: w,
				SessionID:     sessionID,
				Evidence:      evidence,
			}
			return runComplete(cmd.Context(), newClient(), cmd.OutOrStdout(), req, jsonOutput)
		},
	}

	ev.register(cmd)
	cmd.Flags().Uint32Var(&sessionID, "session", 0, "session ID from 'zktrails start'")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runComplete(ctx context.Context, c *client.Client, out io.Writer, req client.CompleteRequest, jsonOutput bool) error {
	res, err := c.CompleteMission(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to complete mission: %w", err)
	}

	if jsonOutput {
		return printJSON(out, res)
	}

	fmt.Fprintf(out, "[%s] %s\n", verdictMark(res.Verified), res.Reason)
	if q := res.Quiz; q != nil {
		fmt.Fprintf(out, "  Quiz:     %d/%d (%d%%)\n", q.Correct, q.Total, q.ScorePercent)
	}
	if !res.Verified {
		return nil
	}
	fmt.Fprintf(out, "  Reward:   %d\n", res.Reward)
	if res.OnChain {
		fmt.Fprintf(out, "  Tx:       %s\n", res.TxHash)
	} else {
		fmt.Fprintf(out, "  Recorded: %s (off-chain)\n", res.TxHash)
	}
	if res.SessionID != 0 {
		fmt.Fprintf(out, "  Session:  %d (game hub ended: %t)\n", res.SessionID, res.GameHubEnded)
	}
	return nil
}

func createVerifyCmd() *cobra.Command {
	var ev evidenceFlags

	cmd := &cobra.Command{
		Use:   "verify <mission>",
		Short: "Check evidence without settling",
		Long: `Run a mission's verifier against evidence without recording anything.

EXAMPLES:
  zktrails verify m0 --lat 40.4145 --lon -3.7065
  zktrails verify m4 --tx 3389e9f0... --wallet G...
  zktrails verify m5 --answers q1=1,q2=2
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev.resolve(cmd)
			evidence, err := ev.evidence()
			if err != nil {
				return err
			}
			return runVerify(cmd.Context(), newClient(), cmd.OutOrStdout(), args[0], getWallet(), evidence)
		},
	}
	ev.register(cmd)
	return cmd
}

func runVerify(ctx context.Context, c *client.Client, out io.Writer, missionID, walletAddr string, ev client.Evidence) error {
	switch {
	case ev.Answers != nil:
		res, err := c.VerifyAnswers(ctx, missionID, ev.Answers)
		if err != nil {
			return fmt.Errorf("failed to verify answers: %w", err)
		}
		fmt.Fprintf(out, "[%s] %s (%d/%d)\n", verdictMark(res.Verified), res.Reason, res.Correct, res.Total)
	case ev.Lat != nil:
		res, err := c.VerifyLocation(ctx, missionID, client.Location{Lat: *ev.Lat, Lon: *ev.Lon, Timestamp: ev.Timestamp})
		if err != nil {
			return fmt.Errorf("failed to verify location: %w", err)
		}
		fmt.Fprintf(out, "[%s] %s\n", verdictMark(res.Verified), res.Reason)
	default:
		if walletAddr == "" {
			return errors.New("wallet address required to verify a transaction")
		}
		res, err := c.VerifyTransaction(ctx, missionID, ev.TxHash, walletAddr)
		if err != nil {
			return fmt.Errorf("failed to verify transaction: %w", err)
		}
		fmt.Fprintf(out, "[%s] %s\n", verdictMark(res.Verified), res.Reason)
	}
	return nil
}

func createProveCmd() *cobra.Command {
	var lat, lon float64
	var output string

	cmd := &cobra.Command{
		Use:   "prove <mission>",
		Short: "Generate a zero-knowledge location proof",
		Long: `Ask the server to prove a position lies inside a mission zone without
revealing it on the ledger. Generation can take a minute or more.

EXAMPLES:
  zktrails prove m0 --lat 40.4145 --lon -3.7065 --output proof.json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := requireWallet()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
				return errors.New("--lat and --lon are required")
			}
			return runProve(cmd.Context(), newClient(), cmd.OutOrStdout(), args[0], w, lat, lon, output)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in degrees")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the proof JSON to a file")

	return cmd
}

func runProve(ctx context.Context, c *client.Client, out io.Writer, missionID, walletAddr string, lat, lon float64, output string) error {
	p, err := c.GenerateLocationProof(ctx, missionID, walletAddr, lat, lon)
	if err != nil {
		return fmt.Errorf("failed to generate proof: %w", err)
	}

	if output != "" {
		if err := writeJSONFile(output, p); err != nil {
			return err
		}
		fmt.Fprintf(out, "Proof %s written to %s (%d bytes)\n", p.ID, output, len(p.Proof)/2)
		return nil
	}
	return printJSON(out, p)
}
