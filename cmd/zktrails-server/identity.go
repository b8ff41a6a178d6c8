package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zktrails/zktrails/internal/chains/stellar"
	"github.com/zktrails/zktrails/internal/config"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the admin signing identity",
	}
	cmd.AddCommand(newIdentityImportCmd())
	cmd.AddCommand(newIdentityShowCmd())
	return cmd
}

func newIdentityImportCmd() *cobra.Command {
	var name string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store the admin secret key as a stellar CLI identity",
		Long: `Store the admin secret key where both this server and the stellar CLI
look for identities (~/.config/stellar/identity/<name>.toml).

The secret is read from the terminal without echo, or from stdin with --stdin.

EXAMPLES:
  zktrails-server identity import --name admin
  echo "$SECRET" | zktrails-server identity import --stdin
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolving home directory: %w", err)
			}
			seed, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), fromStdin)
			if err != nil {
				return err
			}
			return runIdentityImport(cmd.OutOrStdout(), home, name, seed)
		},
	}

	cmd.Flags().StringVar(&name, "name", "admin", "identity name")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the secret from stdin")
	return cmd
}

func newIdentityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the admin account the server would sign with",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			home, _ := os.UserHomeDir()
			id, err := stellar.LoadIdentity(cfg.Ledger.AdminSecret, cfg.Ledger.IdentityName, home)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account: %s\nsource:  %s\n", id.Account(), id.Source())
			return nil
		},
	}
}

func readSecret(in io.Reader, prompt io.Writer, fromStdin bool) (string, error) {
	if f, ok := in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Secret key (S...): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runIdentityImport(out io.Writer, home, name, seed string) error {
	id, err := stellar.NewIdentity(seed, "import")
	if err != nil {
		return err
	}
	path := stellar.IdentityPaths(home, name)[0]
	if err := stellar.WriteIdentity(path, seed); err != nil {
		return err
	}
	fmt.Fprintf(out, "Identity %q written to %s\n", name, path)
	fmt.Fprintf(out, "   account: %s\n", id.Account())
	return nil
}
