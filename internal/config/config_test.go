package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, DriverPlaywright, cfg.Browser.Driver)
	assert.Equal(t, 10*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, "v2", cfg.Agent.Variant)
	assert.Equal(t, 100, cfg.Agent.MaxSteps)
	assert.Equal(t, 10, cfg.Agent.MaxActionsPerStep)
	assert.Equal(t, 400, cfg.Agent.MaxErrorLength)
	assert.Contains(t, cfg.Agent.IncludeAttributes, "aria-label")
	assert.False(t, cfg.Monitor.Enabled)
	assert.Equal(t, MonitorModeAlternate, cfg.Monitor.Mode)
	assert.Equal(t, 120*time.Second, cfg.LLM.Agent.APITimeout)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Monitor.Provider)
}

// -- Validation Logic Tests --

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LLM.Agent.APIKey = "sk-test"
	cfg.LLM.Monitor.APIKey = "sk-test"
	return cfg
}

func TestConfigValidation(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("Invalid Max Steps", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.MaxSteps = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "agent.max_steps must be a positive integer")
	})

	t.Run("Invalid Variant", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Variant = "v4"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "agent.variant")
	})

	t.Run("V3 Requires Monitor", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Variant = "v3"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "set monitor.enabled")

		cfg.Monitor.Enabled = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Invalid Driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.Browser.Driver = "selenium"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.driver")
	})

	t.Run("Monitor Mode Checked Only When Enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Monitor.Mode = "sideways"
		assert.NoError(t, cfg.Validate())

		cfg.Monitor.Enabled = true
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "monitor configuration invalid")
	})

	t.Run("Missing API Key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Agent.APIKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_key is required")

		cfg.LLM.Agent.BaseURL = "http://localhost:11434/v1"
		assert.NoError(t, cfg.Validate(), "a local endpoint does not need a key")
	})

	t.Run("Unsupported Provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Agent.Provider = "anthropic-direct"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported provider")
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	yamlConfig := []byte(`
agent:
  variant: v3
  max_steps: 12
monitor:
  enabled: true
  mode: parallel
  every_n_steps: 2
llm:
  agent:
    api_key: agent-key
  monitor:
    provider: gemini
    model: gemini-2.0-flash
    api_key: monitor-key
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "v3", cfg.Agent.Variant)
	assert.Equal(t, 12, cfg.Agent.MaxSteps)
	assert.Equal(t, 10, cfg.Agent.MaxActionsPerStep, "unset keys keep their defaults")
	assert.Equal(t, MonitorModeParallel, cfg.Monitor.Mode)
	assert.Equal(t, 2, cfg.Monitor.EveryNSteps)
	assert.Equal(t, ProviderGemini, cfg.LLM.Monitor.Provider)
	assert.Equal(t, "monitor-key", cfg.LLM.Monitor.APIKey)
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("agent.max_failures", 0)
	v.Set("llm.agent.api_key", "k")

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
