package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zktrails/zktrails/pkg/client"
)

func createStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health and prover status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), newClient(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, c *client.Client, out io.Writer) error {
	h, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	fmt.Fprintf(out, "Server:   %s (%s)\n", getServer(), h.Status)
	fmt.Fprintf(out, "Network:  %s\n", h.Network)
	fmt.Fprintf(out, "Missions: %d\n", h.Missions)
	for name, id := range h.Contracts {
		if id == "" {
			id = "(not configured)"
		}
		fmt.Fprintf(out, "  %-15s %s\n", name+":", id)
	}
	writes := "enabled"
	if !h.LedgerWrites {
		writes = "disabled"
	}
	fmt.Fprintf(out, "Ledger writes: %s\n", writes)

	zk, err := c.ProverStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get prover status: %w", err)
	}
	fmt.Fprintf(out, "Prover:   %s", zk.Status)
	if zk.Status != "disabled" {
		fmt.Fprintf(out, " (nargo %s, bb %s)", zk.Nargo, zk.Barretenberg)
	}
	fmt.Fprintln(out)
	return nil
}
