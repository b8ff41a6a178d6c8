package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zktrails/zktrails/pkg/client"
)

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands (require an API key)",
	}
	cmd.AddCommand(createAdminSessionsCmd())
	cmd.AddCommand(createAdminCompletionsCmd())
	return cmd
}

func createAdminSessionsCmd() *cobra.Command {
	var state string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sessions [session-id]",
		Short: "List sessions or show one",
		Long: `List mission sessions, optionally filtered by state.

EXAMPLES:
  zktrails admin sessions --state STARTED
  zktrails admin sessions 123456
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			if len(args) == 1 {
				var id uint32
				if _, err := fmt.Sscan(args[0], &id); err != nil {
					return fmt.Errorf("invalid session ID %q", args[0])
				}
				s, err := c.GetSession(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("failed to get session: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), s)
			}
			return runAdminSessions(cmd.Context(), c, cmd.OutOrStdout(), state, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by state (STARTED, ENDED, ABANDONED)")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of sessions to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runAdminSessions(ctx context.Context, c *client.Client, out io.Writer, state string, limit int, jsonOutput bool) error {
	sessions, err := c.ListSessions(ctx, state, limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if jsonOutput {
		return printJSON(out, map[string]any{"sessions": sessions})
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tMISSION\tPLAYER\tSTATE\tHUB\tSTARTED")
	for _, s := range sessions {
		hub := "-"
		switch {
		case s.GameHubEnded:
			hub = "ended"
		case s.GameHubStarted:
			hub = "started"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.SessionID, s.MissionID, truncateAddress(s.Player1), s.State, hub, s.StartedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func createAdminCompletionsCmd() *cobra.Command {
	var filter client.CompletionFilter
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "completions",
		Short: "List settled completions",
		Long: `List settled mission completions.

EXAMPLES:
  zktrails admin completions --mission m4
  zktrails admin completions --player G... --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCompletions(cmd.Context(), newClient(), cmd.OutOrStdout(), filter, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&filter.Wallet, "player", "", "filter by wallet address")
	cmd.Flags().StringVar(&filter.MissionID, "mission", "", "filter by mission ID")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "number of completions to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runAdminCompletions(ctx context.Context, c *client.Client, out io.Writer, filter client.CompletionFilter, jsonOutput bool) error {
	completions, err := c.ListCompletions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list completions: %w", err)
	}

	if jsonOutput {
		return printJSON(out, map[string]any{"completions": completions})
	}

	if len(completions) == 0 {
		fmt.Fprintln(out, "No completions found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MISSION\tPLAYER\tREWARD\tLEDGER\tREFERENCE\tAT")
	for _, c := range completions {
		ledger := "local"
		if c.OnChain {
			ledger = "on-chain"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			c.MissionID, truncateAddress(c.WalletAddress), c.Reward, ledger, truncateAddress(c.TxHash), c.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
