package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REGISTRY_BACKEND", "")
	t.Setenv("LEDGER_URL", "")
	t.Setenv("LEDGER_TIMEOUT_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendPostgres, cfg.Registry.Backend)
	require.True(t, cfg.Ledger.Simulated())
	require.Equal(t, 60*time.Second, cfg.Ledger.Timeout())
	require.Equal(t, "0.0.0.0:3001", cfg.App.Addr())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("REGISTRY_BACKEND", "mysql")
	_, err := Load()
	require.Error(t, err)
}

func TestLedgerTimeoutIsAlwaysFinite(t *testing.T) {
	require.Equal(t, 60*time.Second, LedgerConfig{TimeoutSeconds: 0}.Timeout())
	require.Equal(t, 60*time.Second, LedgerConfig{TimeoutSeconds: -5}.Timeout())
	require.Equal(t, 5*time.Second, LedgerConfig{TimeoutSeconds: 5}.Timeout())
}

func TestLedgerURLTrailingSlashTrimmed(t *testing.T) {
	t.Setenv("REGISTRY_BACKEND", "memory")
	t.Setenv("LEDGER_URL", "http://localhost:3002/")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3002", cfg.Ledger.URL)
	require.False(t, cfg.Ledger.Simulated())
}
