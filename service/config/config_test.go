package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultRPCURL, cfg.SolanaRPCURL)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultSubmitMaxAttempts, cfg.SubmitMaxAttempts)
	assert.Equal(t, DefaultConfirmMaxPolls, cfg.ConfirmMaxPolls)
	assert.Equal(t, DefaultPollInterval, cfg.ConfirmPollInterval)
	assert.Equal(t, DefaultCacheSize, cfg.ConcentrationCacheSize)
	assert.Equal(t, DefaultCacheTTL, cfg.ConcentrationCacheTTL)

	// Optional integrations are off unless configured.
	assert.False(t, cfg.JournalEnabled())
	assert.False(t, cfg.EventsEnabled())
	assert.False(t, cfg.FollowUpEnabled())
	assert.Empty(t, cfg.WalletSecretKey)
}

func TestLoad_ExplicitRPCURLWins(t *testing.T) {
	os.Setenv("SOLANA_RPC_URL", "https://rpc.example.test")
	os.Setenv("HELIUS_RPC_URL", "https://helius.example.test")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.test", cfg.SolanaRPCURL)
}

func TestLoad_HeliusURLUsedWhenPrimaryUnset(t *testing.T) {
	os.Setenv("HELIUS_RPC_URL", "https://helius.example.test")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://helius.example.test", cfg.SolanaRPCURL)
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVER_HOST", "127.0.0.1")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SUBMIT_MAX_ATTEMPTS", "3")
	os.Setenv("CONFIRM_MAX_POLLS", "60")
	os.Setenv("CONFIRM_POLL_INTERVAL", "500ms")
	os.Setenv("CONCENTRATION_CACHE_SIZE", "64")
	os.Setenv("CONCENTRATION_CACHE_TTL", "2m")
	os.Setenv("DATABASE_URL", "postgres://localhost/relay_test")
	os.Setenv("NATS_URL", "nats://localhost:4222")
	os.Setenv("TEMPORAL_ADDRESS", "localhost:7233")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.ServerAddr())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.SubmitMaxAttempts)
	assert.Equal(t, 60, cfg.ConfirmMaxPolls)
	assert.Equal(t, 500*time.Millisecond, cfg.ConfirmPollInterval)
	assert.Equal(t, 64, cfg.ConcentrationCacheSize)
	assert.Equal(t, 2*time.Minute, cfg.ConcentrationCacheTTL)
	assert.True(t, cfg.JournalEnabled())
	assert.True(t, cfg.EventsEnabled())
	assert.True(t, cfg.FollowUpEnabled())
	assert.Equal(t, "default", cfg.TemporalNamespace)
	assert.Equal(t, "relay-confirmation", cfg.TemporalTaskQueue)
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	os.Setenv("CONFIRM_POLL_INTERVAL", "invalid")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_InvalidMaxAttempts(t *testing.T) {
	os.Setenv("SUBMIT_MAX_ATTEMPTS", "five")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid integer")
}

func TestLoad_ZeroMaxAttemptsRejected(t *testing.T) {
	os.Setenv("SUBMIT_MAX_ATTEMPTS", "0")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SubmitMaxAttempts")
}

func TestValidate_NegativeCacheTTL(t *testing.T) {
	cfg := &Config{
		SolanaRPCURL:           DefaultRPCURL,
		SubmitMaxAttempts:      5,
		ConfirmMaxPolls:        30,
		ConfirmPollInterval:    time.Second,
		ConcentrationCacheSize: 512,
		ConcentrationCacheTTL:  -time.Minute,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ConcentrationCacheTTL")
}

func TestValidate_TemporalRequiresQueue(t *testing.T) {
	cfg := &Config{
		SolanaRPCURL:           DefaultRPCURL,
		SubmitMaxAttempts:      5,
		ConfirmMaxPolls:        30,
		ConfirmPollInterval:    time.Second,
		ConcentrationCacheSize: 512,
		ConcentrationCacheTTL:  5 * time.Minute,
		TemporalAddress:        "localhost:7233",
		TemporalNamespace:      "default",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TemporalTaskQueue")
}

func cleanupEnv() {
	for _, key := range []string{
		"SOLANA_RPC_URL",
		"HELIUS_RPC_URL",
		"WALLET_SECRET_KEY",
		"SERVER_HOST",
		"SERVER_PORT",
		"LOG_LEVEL",
		"SUBMIT_MAX_ATTEMPTS",
		"CONFIRM_MAX_POLLS",
		"CONFIRM_POLL_INTERVAL",
		"CONCENTRATION_CACHE_SIZE",
		"CONCENTRATION_CACHE_TTL",
		"DATABASE_URL",
		"NATS_URL",
		"TEMPORAL_ADDRESS",
		"TEMPORAL_NAMESPACE",
		"TEMPORAL_TASK_QUEUE",
	} {
		os.Unsetenv(key)
	}
}
