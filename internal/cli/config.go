package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"zktrails.toml", ".zktrails.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Server string `toml:"server"`
	Wallet string `toml:"wallet,omitempty"`
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL string
	var walletAddr string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a zktrails.toml configuration file in the current directory.

EXAMPLES:
  zktrails config init --server https://api.zktrails.example --wallet G...
  zktrails config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), "zktrails.toml", serverURL, walletAddr, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", defaultServer, "server URL")
	cmd.Flags().StringVar(&walletAddr, "wallet", "", "default player wallet address")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigInit(out io.Writer, path, serverURL, walletAddr string, force bool) error {
	if !force {
		for _, name := range append([]string{path}, projectConfigFiles...) {
			if _, err := os.Stat(name); err == nil {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", name)
			}
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# ZK-Trails CLI configuration")
	if err := toml.NewEncoder(f).Encode(ProjectConfig{Server: serverURL, Wallet: walletAddr}); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", path)
	fmt.Fprintf(out, "  Server: %s\n", serverURL)
	if walletAddr != "" {
		fmt.Fprintf(out, "  Wallet: %s\n", walletAddr)
	}
	return nil
}

func runConfigShow(out io.Writer) error {
	fmt.Fprintln(out, "Configuration sources (in order of precedence):")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "   --server, --api-key, --wallet, --config")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "2. Environment variables")
	for _, name := range []string{"ZKTRAILS_SERVER", "ZKTRAILS_WALLET", "ZKTRAILS_API_KEY"} {
		v := os.Getenv(name)
		switch {
		case v == "":
			v = "(not set)"
		case name == "ZKTRAILS_API_KEY":
			v = maskAPIKey(v)
		}
		fmt.Fprintf(out, "   %s=%s\n", name, v)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "3. Project config (zktrails.toml)")
	projectConfig, configPath, err := loadProjectConfig()
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(out, "   (not found)")
	case err != nil:
		fmt.Fprintf(out, "   Error: %v\n", err)
	default:
		fmt.Fprintf(out, "   Loaded from: %s\n", configPath)
		if projectConfig.Server != "" {
			fmt.Fprintf(out, "   server: %s\n", projectConfig.Server)
		}
		if projectConfig.Wallet != "" {
			fmt.Fprintf(out, "   wallet: %s\n", projectConfig.Wallet)
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "4. Credentials (~/.zktrails/credentials)")
	creds, err := loadCredentials()
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(out, "   (not found)")
	case err != nil:
		fmt.Fprintf(out, "   Error: %v\n", err)
	case len(creds.Servers) == 0:
		fmt.Fprintln(out, "   (no credentials stored)")
	default:
		for server, cred := range creds.Servers {
			fmt.Fprintf(out, "   %s: %s\n", server, maskAPIKey(cred.APIKey))
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Effective configuration:")
	fmt.Fprintf(out, "   Server:  %s\n", getServer())
	if w := getWallet(); w != "" {
		fmt.Fprintf(out, "   Wallet:  %s\n", w)
	} else {
		fmt.Fprintln(out, "   Wallet:  (not set)")
	}
	if key := getAPIKey(); key != "" {
		fmt.Fprintf(out, "   API Key: %s\n", maskAPIKey(key))
	} else {
		fmt.Fprintln(out, "   API Key: (not set)")
	}

	return nil
}

// loadProjectConfig loads the project config from the first matching config file.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	if cfgFile != "" {
		config, err := loadProjectConfigFromPath(cfgFile)
		if err != nil {
			return nil, cfgFile, err
		}
		return config, cfgFile, nil
	}

	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			config, err := loadProjectConfigFromPath(name)
			if err != nil {
				return nil, name, err
			}
			return config, name, nil
		}
	}
	return nil, "", os.ErrNotExist
}

// loadProjectConfigFromPath loads a project config from a specific path
func loadProjectConfigFromPath(path string) (*ProjectConfig, error) {
	var config ProjectConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return &config, nil
}

// loadProjectConfigSilent loads the project config without returning errors for missing files.
// Parse failures are reported on stderr.
func loadProjectConfigSilent() *ProjectConfig {
	config, _, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		return nil
	}
	return config
}
