package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  env: dev\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.App.HTTPAddr)
	assert.Equal(t, "auto", cfg.Market.ActiveSource)
	assert.Equal(t, "ETHUSDT", cfg.Market.Symbol)
	assert.Equal(t, 5, cfg.Market.TimeoutSeconds)
	assert.Equal(t, float64(100), cfg.Treasury.SweepThreshold)
	assert.True(t, cfg.Chain.EnableOnchainSweep)
	assert.Equal(t, "data/yudha.sqlite", cfg.Store.Path)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
app:
  http_addr: ":8080"
market:
  active_source: binance
treasury:
  sweep_threshold: 250
chain:
  enable_onchain_sweep: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "binance", cfg.Market.ActiveSource)
	assert.Equal(t, float64(250), cfg.Treasury.SweepThreshold)
	assert.False(t, cfg.Chain.EnableOnchainSweep)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("ENABLE_ONCHAIN_SWEEP", "0")
	path := writeConfig(t, "app:\n  env: dev\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.False(t, cfg.Chain.EnableOnchainSweep)
}

func TestLoadRejectsBadSource(t *testing.T) {
	path := writeConfig(t, "market:\n  active_source: kraken\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateAgents(t *testing.T) {
	path := writeConfig(t, `
agents:
  - key: a1
    personality: p
  - key: A1
    personality: p
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultPersonas(t *testing.T) {
	cfg := &Config{}
	personas := cfg.Personas()
	require.Len(t, personas, 4)
	assert.Equal(t, "DEGEN_DAVE", personas[0].Key)
	assert.Equal(t, "CORPORATE_KEN", personas[3].Key)

	p, ok := cfg.FindPersona("degen_dave")
	require.True(t, ok)
	assert.Equal(t, "Degen Dave", p.Name)

	bridge, ok := cfg.FindPersona("CHAD_BRIDGE")
	require.True(t, ok)
	assert.True(t, bridge.EmitBridgeEvents)

	_, ok = cfg.FindPersona("NOBODY")
	assert.False(t, ok)
}
