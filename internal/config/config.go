package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Cache     CacheConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Proxy     ProxyConfig
	Metrics   MetricsConfig
	Ledger    LedgerConfig
	GameHub   GameHubConfig
	Sessions  SessionsConfig
	Prover    ProverConfig
	Missions  MissionsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	IdleTimeout    int // seconds
	RequestTimeout int // seconds
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type     string // "sqlite" or "postgres"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// AuthConfig holds authentication settings for operator routes
type AuthConfig struct {
	Type string // "none" or "api-key"
}

// CacheConfig holds settings for the ledger transaction cache
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
	TTLSeconds int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int
	BurstSize      int
	CleanupMinutes int
	// CostlyPerMin limits proof generation and mission completion
	CostlyPerMin int
}

// SecurityConfig holds security filter settings
type SecurityConfig struct {
	FilterEnabled bool
	MaxBodySizeMB int
}

// ProxyConfig holds trusted proxy settings for X-Forwarded-For handling
type ProxyConfig struct {
	TrustProxy     bool
	TrustedProxies []string // CIDR notation
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// LedgerConfig holds Stellar network settings
type LedgerConfig struct {
	HorizonURL        string
	RPCURL            string
	NetworkPassphrase string
	StellarBinary     string
	AdminSecret       string // resolved at startup, never logged
	IdentityName      string
	ExplorerRPS       int
	CallTimeout       time.Duration
	Fee               int
}

// GameHubConfig holds the game-hub and mission-manager contract settings
type GameHubConfig struct {
	ContractID               string
	MissionManagerContractID string
	Player2Placeholder       string
}

// SessionsConfig holds session store settings
type SessionsConfig struct {
	Store          string // "memory" or "database"
	TTL            time.Duration
	SweepInterval  time.Duration
	SweeperEnabled bool
}

// ProverConfig holds settings for the external proving toolchain
type ProverConfig struct {
	Enabled     bool
	CircuitDir  string
	NargoBinary string
	BBBinary    string
	CircuitName string
}

// MissionsConfig holds catalog settings
type MissionsConfig struct {
	CatalogPath      string
	SingleCompletion bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 3001),
			Host:           getEnv("HOST", "0.0.0.0"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 180),
			IdleTimeout:    getEnvInt("SERVER_IDLE_TIMEOUT", 120),
			RequestTimeout: getEnvInt("SERVER_REQUEST_TIMEOUT", 30),
		},
		Storage: StorageConfig{
			Type: getEnv("STORAGE_TYPE", "sqlite"),
			Postgres: PostgresConfig{
				URL: getEnv("DATABASE_URL", ""),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("SQLITE_PATH", "./data/zktrails.db"),
			},
		},
		Auth: AuthConfig{
			Type: getEnv("AUTH_TYPE", "none"),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 1024),
			TTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 600),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin: getEnvInt("RATE_LIMIT_RPM", 300),
			BurstSize:      getEnvInt("RATE_LIMIT_BURST", 50),
			CleanupMinutes: getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", 10),
			CostlyPerMin:   getEnvInt("RATE_LIMIT_COSTLY_RPM", 30),
		},
		Security: SecurityConfig{
			FilterEnabled: getEnvBool("SECURITY_FILTER_ENABLED", true),
			MaxBodySizeMB: getEnvInt("SECURITY_MAX_BODY_SIZE_MB", 1),
		},
		Proxy: ProxyConfig{
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
			TrustedProxies: getEnvStringSlice("TRUSTED_PROXIES", []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", false),
			Port:    getEnvInt("METRICS_PORT", 9090),
		},
		Ledger: LedgerConfig{
			HorizonURL:        getEnv("STELLAR_HORIZON_URL", "https://horizon-testnet.stellar.org"),
			RPCURL:            getEnv("STELLAR_RPC_URL", "https://soroban-testnet.stellar.org"),
			NetworkPassphrase: getEnv("STELLAR_NETWORK_PASSPHRASE", "Test SDF Network ; September 2015"),
			StellarBinary:     getEnv("STELLAR_BINARY", "stellar"),
			AdminSecret:       os.Getenv("STELLAR_ADMIN_SECRET"),
			IdentityName:      getEnv("STELLAR_IDENTITY", "admin"),
			ExplorerRPS:       getEnvInt("STELLAR_EXPLORER_RPS", 10),
			CallTimeout:       getEnvDuration("STELLAR_CALL_TIMEOUT", 30*time.Second),
			Fee:               getEnvInt("STELLAR_FEE", 100000),
		},
		GameHub: GameHubConfig{
			ContractID:               getEnv("GAME_HUB_CONTRACT", ""),
			MissionManagerContractID: getEnv("MISSION_MANAGER_CONTRACT", "CAVJDRDVMH36E2AXJRJZYIPTERLP672WLPGSCAK7IDNJF4MQF42YXHH4"),
			Player2Placeholder:       getEnv("GAME_HUB_PLAYER2", ""),
		},
		Sessions: SessionsConfig{
			Store:          getEnv("SESSION_STORE", "memory"),
			TTL:            getEnvDuration("SESSION_TTL", 2*time.Hour),
			SweepInterval:  getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			SweeperEnabled: getEnvBool("SESSION_SWEEPER_ENABLED", true),
		},
		Prover: ProverConfig{
			Enabled:     getEnvBool("PROVER_ENABLED", true),
			CircuitDir:  getEnv("PROVER_CIRCUIT_DIR", "./circuits/location_proof"),
			NargoBinary: getEnv("PROVER_NARGO_BINARY", "nargo"),
			BBBinary:    getEnv("PROVER_BB_BINARY", "bb"),
			CircuitName: getEnv("PROVER_CIRCUIT_NAME", "location_proof"),
		},
		Missions: MissionsConfig{
			CatalogPath:      getEnv("MISSIONS_CATALOG", ""),
			SingleCompletion: getEnvBool("MISSIONS_SINGLE_COMPLETION", false),
		},
	}

	// If DATABASE_URL is set, default to postgres
	if cfg.Storage.Postgres.URL != "" && cfg.Storage.Type == "sqlite" {
		cfg.Storage.Type = "postgres"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
