package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zktrails/zktrails/pkg/client"
)

func createPlayerCmd() *cobra.Command {
	var jsonOutput bool
	var register bool

	cmd := &cobra.Command{
		Use:   "player [address]",
		Short: "Show a player profile",
		Long: `Show score, tier and completed missions for a wallet.

EXAMPLES:
  zktrails player G...
  zktrails player --wallet G... --register
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := getWallet()
			if len(args) == 1 {
				addr = args[0]
			}
			if addr == "" {
				return fmt.Errorf("wallet address required")
			}
			return runPlayer(cmd.Context(), newClient(), cmd.OutOrStdout(), addr, register, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&register, "register", false, "create the profile if it does not exist")

	return cmd
}

func runPlayer(ctx context.Context, c *client.Client, out io.Writer, addr string, register, jsonOutput bool) error {
	var p *client.Player
	var err error
	if register {
		p, err = c.RegisterPlayer(ctx, addr)
	} else {
		p, err = c.GetPlayer(ctx, addr)
	}
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}

	if jsonOutput {
		return printJSON(out, p)
	}

	fmt.Fprintf(out, "Player %s\n", p.Address)
	fmt.Fprintf(out, "  Tier:      %s\n", p.Tier)
	fmt.Fprintf(out, "  Score:     %d\n", p.Score)
	if len(p.CompletedMissions) > 0 {
		fmt.Fprintf(out, "  Completed: %s\n", strings.Join(p.CompletedMissions, ", "))
	} else {
		fmt.Fprintln(out, "  Completed: (none)")
	}
	return nil
}

func createLeaderboardCmd() *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd.Context(), newClient(), cmd.OutOrStdout(), limit, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of players to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runLeaderboard(ctx context.Context, c *client.Client, out io.Writer, limit int, jsonOutput bool) error {
	entries, err := c.Leaderboard(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}

	if jsonOutput {
		return printJSON(out, map[string]any{"leaderboard": entries})
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No players yet")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tTIER\tSCORE\tMISSIONS")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n", e.Rank, truncateAddress(e.Address), e.Tier, e.Score, e.MissionsCompleted)
	}
	return w.Flush()
}
