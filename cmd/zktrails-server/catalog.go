package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zktrails/zktrails/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect mission catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a catalog file and print its missions",
		Long: `Validate a YAML mission catalog before pointing MISSIONS_CATALOG at it.

EXAMPLES:
  zktrails-server catalog validate ./missions.yaml
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), c)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the built-in catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCatalog(cmd.OutOrStdout(), catalog.Default())
		},
	})
	return cmd
}

func printCatalog(out io.Writer, c *catalog.Catalog) error {
	fmt.Fprintf(out, "catalog version %s, %d missions\n\n", c.Version(), c.Len())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMETHOD\tREWARD\tXP\tTITLE")
	for _, m := range c.List() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", m.ID, m.Method, m.Reward, m.XP, m.Title)
	}
	return w.Flush()
}
