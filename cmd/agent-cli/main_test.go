package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfigFile(t *testing.T) {
	t.Helper()
	old := cfgFile
	t.Cleanup(func() { cfgFile = old })
	cfgFile = ""
}

func TestInitializeConfig_EnvOverridesDefaults(t *testing.T) {
	resetConfigFile(t)
	t.Setenv("BROWSER_AGENT_AGENT_MAX_STEPS", "7")

	v := viper.New()
	require.NoError(t, initializeConfig(v))
	assert.Equal(t, 7, v.GetInt("agent.max_steps"))
	assert.Equal(t, "v2", v.GetString("agent.variant"))
}

func TestInitializeConfig_File(t *testing.T) {
	resetConfigFile(t)
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  variant: v3\nmonitor:\n  enabled: true\n  mode: parallel\n"), 0o644))
	cfgFile = path

	v := viper.New()
	require.NoError(t, initializeConfig(v))
	assert.Equal(t, "v3", v.GetString("agent.variant"))
	assert.True(t, v.GetBool("monitor.enabled"))
	assert.Equal(t, "parallel", v.GetString("monitor.mode"))
}

func TestInitializeConfig_BadFile(t *testing.T) {
	resetConfigFile(t)
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: [unclosed"), 0o644))
	cfgFile = path

	err := initializeConfig(viper.New())
	assert.ErrorContains(t, err, "error reading config file")
}

func TestRunCmd_FlagsOverrideConfig(t *testing.T) {
	resetConfigFile(t)
	t.Setenv("OPENAI_API_KEY", "test-key")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad variant", []string{"run", "--url", "https://example.com", "--task", "t", "--variant", "v9"}, "agent.variant must be one of"},
		{"zero steps", []string{"run", "--url", "https://example.com", "--task", "t", "--max-steps", "0"}, "agent.max_steps must be a positive integer"},
		{"bad driver", []string{"run", "--url", "https://example.com", "--task", "t", "--driver", "selenium"}, "browser.driver must be"},
		{"v3 without monitor", []string{"run", "--url", "https://example.com", "--task", "t", "--variant", "v3"}, "set monitor.enabled"},
		{"bad monitor mode", []string{"run", "--url", "https://example.com", "--task", "t", "--monitor", "--monitor-mode", "sometimes"}, "monitor configuration invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd(viper.New())
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			err := cmd.Execute()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
