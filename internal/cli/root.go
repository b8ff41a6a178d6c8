package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:3001"

var (
	cfgFile string
	server  string
	apiKey  string
	wallet  string
)

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "zktrails",
		Short:   "ZK-Trails mission CLI",
		Long:    `zktrails browses missions, submits evidence, and inspects settlements on a ZK-Trails server.`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: zktrails.toml)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "server URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for operator commands")
	rootCmd.PersistentFlags().StringVar(&wallet, "wallet", "", "player wallet address (default from config)")

	rootCmd.AddCommand(createMissionsCmd())
	rootCmd.AddCommand(createStartCmd())
	rootCmd.AddCommand(createCompleteCmd())
	rootCmd.AddCommand(createVerifyCmd())
	rootCmd.AddCommand(createProveCmd())
	rootCmd.AddCommand(createPlayerCmd())
	rootCmd.AddCommand(createLeaderboardCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createConfigCmd())
	rootCmd.AddCommand(createStatusCmd())

	return rootCmd
}

// getServer returns the server URL from flag, env, or config file
func getServer() string {
	// 1. Command line flag
	if server != "" {
		return server
	}

	// 2. Environment variable
	if env := os.Getenv("ZKTRAILS_SERVER"); env != "" {
		return env
	}

	// 3. Project config file (TOML)
	if config := loadProjectConfigSilent(); config != nil && config.Server != "" {
		return config.Server
	}

	return defaultServer
}

// getAPIKey returns the API key from flag, env, or credentials file
func getAPIKey() string {
	if apiKey != "" {
		return apiKey
	}

	if env := os.Getenv("ZKTRAILS_API_KEY"); env != "" {
		return env
	}

	// Credentials file (keyed by server URL)
	if cred := getCredential(getServer()); cred != "" {
		return cred
	}

	return ""
}

// getWallet returns the player wallet from flag, env, or config file
func getWallet() string {
	if wallet != "" {
		return wallet
	}
	if env := os.Getenv("ZKTRAILS_WALLET"); env != "" {
		return env
	}
	if config := loadProjectConfigSilent(); config != nil {
		return config.Wallet
	}
	return ""
}
