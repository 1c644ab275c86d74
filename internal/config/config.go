package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of a browser agent run.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig controls the zap logger and its optional rotating log file.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal color names.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig selects the browser driver and how it is launched.
type BrowserConfig struct {
	Driver            string        `mapstructure:"driver" yaml:"driver"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	UserDataDir       string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// AgentConfig bounds the acting loop.
type AgentConfig struct {
	Variant           string   `mapstructure:"variant" yaml:"variant"`
	MaxSteps          int      `mapstructure:"max_steps" yaml:"max_steps"`
	MaxActionsPerStep int      `mapstructure:"max_actions_per_step" yaml:"max_actions_per_step"`
	MaxFailures       int      `mapstructure:"max_failures" yaml:"max_failures"`
	MaxErrorLength    int      `mapstructure:"max_error_length" yaml:"max_error_length"`
	ModelRetries      int      `mapstructure:"model_retries" yaml:"model_retries"`
	UseVision         bool     `mapstructure:"use_vision" yaml:"use_vision"`
	IncludeAttributes []string `mapstructure:"include_attributes" yaml:"include_attributes"`
	HistoryPath       string   `mapstructure:"history_path" yaml:"history_path"`
	Plan              bool     `mapstructure:"plan" yaml:"plan"`
	Summarize         bool     `mapstructure:"summarize" yaml:"summarize"`
	LoopThreshold     int      `mapstructure:"loop_threshold" yaml:"loop_threshold"`
}

// MonitorConfig controls the read-only auditing loop.
type MonitorConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Mode        string `mapstructure:"mode" yaml:"mode"`
	EveryNSteps int    `mapstructure:"every_n_steps" yaml:"every_n_steps"`
	TrustDone   bool   `mapstructure:"trust_done" yaml:"trust_done"`
	FeedAudit   bool   `mapstructure:"feed_audit" yaml:"feed_audit"`
	UseVision   bool   `mapstructure:"use_vision" yaml:"use_vision"`
}

// LLMConfig carries one model configuration per role.
type LLMConfig struct {
	Agent   LLMModelConfig `mapstructure:"agent" yaml:"agent"`
	Monitor LLMModelConfig `mapstructure:"monitor" yaml:"monitor"`
}

// LLMModelConfig describes how to reach a single model endpoint.
type LLMModelConfig struct {
	Provider          string        `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxElapsed        time.Duration `mapstructure:"max_elapsed" yaml:"max_elapsed"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	JSONMode          bool          `mapstructure:"json_mode" yaml:"json_mode"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"

	MonitorModeAlternate = "alternate"
	MonitorModeParallel  = "parallel"
)

// NewDefaultConfig returns a configuration populated only from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "browser-agent")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverPlaywright)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 1100)
	v.SetDefault("browser.user_data_dir", ".playwright_data")
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.settle_delay", "1s")

	// -- Agent --
	v.SetDefault("agent.variant", "v2")
	v.SetDefault("agent.max_steps", 100)
	v.SetDefault("agent.max_actions_per_step", 10)
	v.SetDefault("agent.max_failures", 3)
	v.SetDefault("agent.max_error_length", 400)
	v.SetDefault("agent.model_retries", 0)
	v.SetDefault("agent.use_vision", true)
	v.SetDefault("agent.include_attributes", []string{
		"title", "type", "name", "role", "tabindex", "aria-label", "placeholder", "value", "alt", "aria-expanded",
	})
	v.SetDefault("agent.history_path", "")
	v.SetDefault("agent.plan", false)
	v.SetDefault("agent.summarize", true)
	v.SetDefault("agent.loop_threshold", 3)

	// -- Monitor --
	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.mode", MonitorModeAlternate)
	v.SetDefault("monitor.every_n_steps", 1)
	v.SetDefault("monitor.trust_done", false)
	v.SetDefault("monitor.feed_audit", false)
	v.SetDefault("monitor.use_vision", true)

	// -- LLM --
	for _, role := range []string{"agent", "monitor"} {
		prefix := "llm." + role + "."
		v.SetDefault(prefix+"provider", ProviderOpenAI)
		v.SetDefault(prefix+"model", "gpt-4o")
		v.SetDefault(prefix+"temperature", 0.0)
		v.SetDefault(prefix+"max_tokens", 4096)
		v.SetDefault(prefix+"api_timeout", "120s")
		v.SetDefault(prefix+"max_elapsed", "3m")
		v.SetDefault(prefix+"requests_per_minute", 0)
		v.SetDefault(prefix+"json_mode", true)
	}
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	_ = v.BindEnv("llm.agent.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.monitor.api_key", "OPENAI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.LLM.Agent.fillAPIKey()
	cfg.LLM.Monitor.fillAPIKey()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (m *LLMModelConfig) fillAPIKey() {
	if m.APIKey != "" {
		return
	}
	switch strings.ToLower(m.Provider) {
	case ProviderGemini:
		m.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		m.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if c.Agent.MaxActionsPerStep <= 0 {
		return fmt.Errorf("agent.max_actions_per_step must be a positive integer")
	}
	if c.Agent.MaxFailures <= 0 {
		return fmt.Errorf("agent.max_failures must be a positive integer")
	}
	if c.Agent.MaxErrorLength <= 0 {
		return fmt.Errorf("agent.max_error_length must be a positive integer")
	}
	switch strings.ToLower(c.Agent.Variant) {
	case "v1", "v2", "v3":
	default:
		return fmt.Errorf("agent.variant must be one of v1, v2, v3 (got %q)", c.Agent.Variant)
	}
	if strings.EqualFold(c.Agent.Variant, "v3") && !c.Monitor.Enabled {
		return fmt.Errorf("agent.variant v3 delegates evaluation and planning to the monitor; set monitor.enabled")
	}
	switch c.Browser.Driver {
	case DriverPlaywright, DriverChromedp:
	default:
		return fmt.Errorf("browser.driver must be %q or %q (got %q)", DriverPlaywright, DriverChromedp, c.Browser.Driver)
	}
	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor configuration invalid: %w", err)
	}
	if err := c.LLM.Agent.Validate(); err != nil {
		return fmt.Errorf("llm.agent configuration invalid: %w", err)
	}
	if c.Monitor.Enabled {
		if err := c.LLM.Monitor.Validate(); err != nil {
			return fmt.Errorf("llm.monitor configuration invalid: %w", err)
		}
	}
	return nil
}

// Validate checks the monitor configuration.
func (m *MonitorConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Mode != MonitorModeAlternate && m.Mode != MonitorModeParallel {
		return fmt.Errorf("mode must be %q or %q (got %q)", MonitorModeAlternate, MonitorModeParallel, m.Mode)
	}
	if m.EveryNSteps <= 0 {
		return fmt.Errorf("every_n_steps must be a positive integer")
	}
	return nil
}

// Validate checks a single model configuration.
func (m *LLMModelConfig) Validate() error {
	switch strings.ToLower(m.Provider) {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported provider %q", m.Provider)
	}
	if m.Model == "" {
		return fmt.Errorf("model is required")
	}
	if m.APIKey == "" && m.BaseURL == "" {
		return fmt.Errorf("api_key is required for provider %q", m.Provider)
	}
	return nil
}
