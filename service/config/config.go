package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for tunables that are rarely overridden.
const (
	DefaultRPCURL            = "https://api.mainnet-beta.solana.com"
	DefaultSubmitMaxAttempts = 5
	DefaultConfirmMaxPolls   = 30
	DefaultPollInterval      = time.Second
	DefaultCacheSize         = 512
	DefaultCacheTTL          = 5 * time.Minute
)

// Config holds all application configuration loaded from environment
// variables. Required fields are validated at startup so a misconfigured
// process fails fast; optional integrations (journal, events, follow-up)
// are left empty and the binaries degrade those features.
type Config struct {
	// Server configuration
	ServerHost string
	ServerPort string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL    string
	WalletSecretKey string // optional; empty runs the relay in read-only mode

	// Submission tuning
	SubmitMaxAttempts   int
	ConfirmMaxPolls     int
	ConfirmPollInterval time.Duration

	// Concentration cache tuning
	ConcentrationCacheSize int
	ConcentrationCacheTTL  time.Duration

	// Optional integrations; empty disables the feature.
	DatabaseURL string
	NATSURL     string

	// Temporal configuration (address empty disables follow-up workflows)
	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string
}

// Load reads configuration from environment variables and validates it.
// Returns an error listing every invalid field rather than stopping at the
// first one.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerHost = getEnvOrDefault("SERVER_HOST", "0.0.0.0")
	cfg.ServerPort = getEnvOrDefault("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration. SOLANA_RPC_URL wins; HELIUS_RPC_URL is the
	// conventional name for a paid endpoint and is honored when the
	// generic key is unset. Both unset falls back to the public default.
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		cfg.SolanaRPCURL = os.Getenv("HELIUS_RPC_URL")
	}
	if cfg.SolanaRPCURL == "" {
		cfg.SolanaRPCURL = DefaultRPCURL
	}

	// The signing key is optional: without it the service still serves
	// read queries and rejects submissions with a clear error.
	cfg.WalletSecretKey = os.Getenv("WALLET_SECRET_KEY")

	// Submission tuning
	maxAttempts, err := parseInt("SUBMIT_MAX_ATTEMPTS", DefaultSubmitMaxAttempts)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SubmitMaxAttempts = maxAttempts
	}

	maxPolls, err := parseInt("CONFIRM_MAX_POLLS", DefaultConfirmMaxPolls)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmMaxPolls = maxPolls
	}

	pollInterval, err := parseDuration("CONFIRM_POLL_INTERVAL", DefaultPollInterval.String())
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmPollInterval = pollInterval
	}

	// Concentration cache tuning
	cacheSize, err := parseInt("CONCENTRATION_CACHE_SIZE", DefaultCacheSize)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConcentrationCacheSize = cacheSize
	}

	cacheTTL, err := parseDuration("CONCENTRATION_CACHE_TTL", DefaultCacheTTL.String())
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConcentrationCacheTTL = cacheTTL
	}

	// Optional integrations
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Temporal configuration
	cfg.TemporalAddress = os.Getenv("TEMPORAL_ADDRESS")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "relay-confirmation")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ServerAddr returns the host:port the HTTP server binds to.
func (c *Config) ServerAddr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// JournalEnabled reports whether a submission journal is configured.
func (c *Config) JournalEnabled() bool { return c.DatabaseURL != "" }

// EventsEnabled reports whether lifecycle event publishing is configured.
func (c *Config) EventsEnabled() bool { return c.NATSURL != "" }

// FollowUpEnabled reports whether durable confirmation follow-up is
// configured.
func (c *Config) FollowUpEnabled() bool { return c.TemporalAddress != "" }

// Validate checks the configuration's internal consistency.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.SubmitMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("SubmitMaxAttempts must be at least 1"))
	}

	if c.ConfirmMaxPolls < 1 {
		errs = append(errs, fmt.Errorf("ConfirmMaxPolls must be at least 1"))
	}

	if c.ConfirmPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("ConfirmPollInterval must be positive"))
	}

	if c.ConcentrationCacheSize < 1 {
		errs = append(errs, fmt.Errorf("ConcentrationCacheSize must be at least 1"))
	}

	if c.ConcentrationCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("ConcentrationCacheTTL must be positive"))
	}

	if c.TemporalAddress != "" {
		if c.TemporalNamespace == "" {
			errs = append(errs, fmt.Errorf("TemporalNamespace is required when TemporalAddress is set"))
		}
		if c.TemporalTaskQueue == "" {
			errs = append(errs, fmt.Errorf("TemporalTaskQueue is required when TemporalAddress is set"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
