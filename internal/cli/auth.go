package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/zktrails/zktrails/pkg/client"
)

var errInvalidAPIKey = errors.New("invalid API key")

// Credentials holds operator API keys keyed by server URL.
type Credentials struct {
	Servers map[string]ServerCredential `yaml:"servers"`
}

// ServerCredential is one saved operator key.
type ServerCredential struct {
	APIKey  string `yaml:"api_key"`
	Name    string `yaml:"name,omitempty"`
	SavedAt string `yaml:"saved_at,omitempty"`
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage operator API keys",
		Long: `Operator routes (/api/v1/admin/...) need an API key when the server
runs with AUTH_TYPE=api-key. Keys are created on the server host with
'zktrails-server keys create' and saved here per server URL.`,
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())
	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var serverURL, key, name string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Validate and save an operator API key",
		Example: `  zktrails auth login
  zktrails auth login --server https://api.zktrails.example --name prod
  echo "$ZKTRAILS_API_KEY" | zktrails auth login`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL == "" {
				serverURL = getServer()
			}
			if key == "" {
				var err error
				key, err = promptAPIKey(cmd.InOrStdin(), cmd.ErrOrStderr(), serverURL)
				if err != nil {
					return err
				}
			}
			return runAuthLogin(cmd.Context(), cmd.OutOrStdout(), serverURL, key, name)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "server URL (default from config)")
	cmd.Flags().StringVar(&key, "api-key", "", "API key (prompts if not provided)")
	cmd.Flags().StringVar(&name, "name", "", "label shown by 'auth status'")
	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var serverURL string
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget a saved API key",
		Example: `  zktrails auth logout
  zktrails auth logout --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return runAuthLogoutAll(cmd.OutOrStdout())
			}
			if serverURL == "" {
				serverURL = getServer()
			}
			return runAuthLogout(cmd.OutOrStdout(), serverURL)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "server URL (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "remove every saved key")
	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List servers with a saved API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}
}

// promptAPIKey reads a key without echo from a terminal, or one line from
// anything else.
func promptAPIKey(in io.Reader, prompt io.Writer, serverURL string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(prompt, "API key for %s: ", serverURL)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogin(ctx context.Context, out io.Writer, serverURL, key, name string) error {
	if key == "" {
		return errors.New("API key cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := checkAPIKey(ctx, serverURL, key); err != nil {
		return err
	}

	if err := saveCredential(serverURL, ServerCredential{
		APIKey:  key,
		Name:    name,
		SavedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Fprintf(out, "Authenticated to %s (key: %s)\n", serverURL, maskAPIKey(key))
	fmt.Fprintf(out, "Saved to %s\n", credentialsFilePath())
	return nil
}

// checkAPIKey asks an operator route for one session. Only an UNAUTHORIZED
// answer rejects the key; servers running without auth accept anything.
func checkAPIKey(ctx context.Context, serverURL, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := client.New(serverURL, key).ListSessions(ctx, "", 1)
	if err == nil {
		return nil
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == "UNAUTHORIZED" {
			return errInvalidAPIKey
		}
		return nil
	}
	return fmt.Errorf("contacting %s: %w", serverURL, err)
}

func runAuthLogout(out io.Writer, serverURL string) error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if creds == nil {
		fmt.Fprintf(out, "No credentials found for %s\n", serverURL)
		return nil
	}
	if _, ok := creds.Servers[serverURL]; !ok {
		fmt.Fprintf(out, "No credentials found for %s\n", serverURL)
		return nil
	}

	delete(creds.Servers, serverURL)
	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	fmt.Fprintf(out, "Logged out from %s\n", serverURL)
	return nil
}

func runAuthLogoutAll(out io.Writer) error {
	if err := os.Remove(credentialsFilePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	fmt.Fprintln(out, "All credentials cleared")
	return nil
}

func runAuthStatus(out io.Writer) error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if creds == nil || len(creds.Servers) == 0 {
		fmt.Fprintln(out, "Not authenticated to any servers")
		fmt.Fprintln(out, "Run 'zktrails auth login' to save an operator key")
		return nil
	}

	servers := make([]string, 0, len(creds.Servers))
	for s := range creds.Servers {
		servers = append(servers, s)
	}
	sort.Strings(servers)

	fmt.Fprintln(out, "Authenticated servers:")
	for _, s := range servers {
		cred := creds.Servers[s]
		label := "key: " + maskAPIKey(cred.APIKey)
		if cred.Name != "" {
			label = cred.Name + ", " + label
		}
		fmt.Fprintf(out, "  %s (%s)\n", s, label)
	}
	return nil
}

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zktrails"
	}
	return filepath.Join(home, ".zktrails")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

// loadCredentials returns the os error unchanged when the file is missing.
func loadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", credentialsFilePath(), err)
	}
	if creds.Servers == nil {
		creds.Servers = make(map[string]ServerCredential)
	}
	return &creds, nil
}

func writeCredentials(creds *Credentials) error {
	if err := os.MkdirAll(credentialsDir(), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(credentialsFilePath(), data, 0600)
}

func saveCredential(serverURL string, cred ServerCredential) error {
	creds, err := loadCredentials()
	switch {
	case os.IsNotExist(err):
		creds = &Credentials{Servers: make(map[string]ServerCredential)}
	case err != nil:
		return err
	}
	creds.Servers[serverURL] = cred
	return writeCredentials(creds)
}

func getCredential(serverURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	return creds.Servers[serverURL].APIKey
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
