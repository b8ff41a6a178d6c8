package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zktrails/zktrails/pkg/client"
)

func createMissionsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "missions",
		Short: "Browse the mission catalog",
		Long: `List missions, or show one mission in detail.

EXAMPLES:
  zktrails missions
  zktrails missions show m0
  zktrails missions questions m5
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMissionsList(cmd.Context(), newClient(), cmd.OutOrStdout(), jsonOutput)
		},
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <mission>",
		Short: "Show a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMissionShow(cmd.Context(), newClient(), cmd.OutOrStdout(), args[0], jsonOutput)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "questions <mission>",
		Short: "Show the questions of a quiz mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMissionQuestions(cmd.Context(), newClient(), cmd.OutOrStdout(), args[0], jsonOutput)
		},
	})

	return cmd
}

func runMissionsList(ctx context.Context, c *client.Client, out io.Writer, jsonOutput bool) error {
	missions, err := c.ListMissions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list missions: %w", err)
	}

	if jsonOutput {
		return printJSON(out, map[string]any{"missions": missions, "count": len(missions)})
	}

	if len(missions) == 0 {
		fmt.Fprintln(out, "No missions found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMETHOD\tREWARD\tXP\tTITLE")
	for _, m := range missions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", m.ID, m.VerificationMethod, m.Reward, m.XP, m.Title)
	}
	return w.Flush()
}

func runMissionShow(ctx context.Context, c *client.Client, out io.Writer, id string, jsonOutput bool) error {
	m, err := c.GetMission(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get mission: %w", err)
	}

	if jsonOutput {
		return printJSON(out, m)
	}

	fmt.Fprintf(out, "%s: %s\n", m.ID, m.Title)
	if m.Description != "" {
		fmt.Fprintf(out, "  %s\n", m.Description)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Verification: %s\n", m.VerificationMethod)
	fmt.Fprintf(out, "  Reward:       %d (XP %d)\n", m.Reward, m.XP)
	if m.Difficulty != "" {
		fmt.Fprintf(out, "  Difficulty:   %s\n", m.Difficulty)
	}
	if m.ZoneName != "" {
		fmt.Fprintf(out, "  Zone:         %s\n", m.ZoneName)
	}
	if m.MaxAgeSeconds > 0 {
		fmt.Fprintf(out, "  Max age:      %ds\n", m.MaxAgeSeconds)
	}
	if m.QuestionCount > 0 {
		fmt.Fprintf(out, "  Questions:    %d\n", m.QuestionCount)
	}
	if r := m.Requirements; r != nil {
		if r.RequiredMemo != "" {
			fmt.Fprintf(out, "  Memo:         %s\n", r.RequiredMemo)
		}
		if r.ContractID != "" {
			fmt.Fprintf(out, "  Contract:     %s\n", r.ContractID)
		}
		if r.TokenIn != "" || r.TokenOut != "" {
			fmt.Fprintf(out, "  Pair:         %s -> %s\n", r.TokenIn, r.TokenOut)
		}
		if r.MinAmount > 0 {
			fmt.Fprintf(out, "  Min amount:   %d\n", r.MinAmount)
		}
	}
	return nil
}

func runMissionQuestions(ctx context.Context, c *client.Client, out io.Writer, id string, jsonOutput bool) error {
	questions, err := c.Questions(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get questions: %w", err)
	}

	if jsonOutput {
		return printJSON(out, map[string]any{"questions": questions})
	}

	for _, q := range questions {
		fmt.Fprintf(out, "%s. %s\n", q.ID, q.Question)
		for i, opt := range q.Options {
			fmt.Fprintf(out, "   [%d] %s\n", i, opt)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Answer with: zktrails complete %s --answers %s=<n>,...\n", id, firstID(questions))
	return nil
}

func firstID(questions []client.Question) string {
	if len(questions) == 0 {
		return "q1"
	}
	return questions[0].ID
}
