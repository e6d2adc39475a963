package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultMaxTokens        = 2096
	defaultTemperature      = 0.5
	defaultMaxSteps         = 6
	defaultVerbosityLevel   = 1
	defaultAgentDescription = "Compliance agent for New Zealand startups"
)

// AgentConfig is the agent document: model parameters, the ordered tool
// list exposed to the agent, and its execution limits.
type AgentConfig struct {
	Model             ModelConfig `mapstructure:"model" json:"model"`
	Tools             []string    `mapstructure:"tools" json:"tools"`
	MaxSteps          int         `mapstructure:"max_steps" json:"max_steps"`
	VerbosityLevel    int         `mapstructure:"verbosity_level" json:"verbosity_level"`
	Name              string      `mapstructure:"name" json:"name,omitempty"`
	Description       string      `mapstructure:"description" json:"description"`
	PlanningInterval  *int        `mapstructure:"planning_interval" json:"planning_interval,omitempty"`
	AuthorizedImports []string    `mapstructure:"authorized_imports" json:"authorized_imports,omitempty"`
	Path              string      `mapstructure:"-" json:"-"`
}

// ModelConfig wraps the model backend parameters.
type ModelConfig struct {
	Class string    `mapstructure:"class" json:"class,omitempty"`
	Data  ModelData `mapstructure:"data" json:"data"`
}

// ModelData holds the parameters passed to the model backend.
type ModelData struct {
	ModelID     string  `mapstructure:"model_id" json:"model_id"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	APIBase     string  `mapstructure:"api_base" json:"api_base,omitempty"`
}

// DisplayName returns the configured agent name or a stable fallback.
func (c AgentConfig) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return "NZ_Compliance_Agent"
}

// PlanningEvery returns the planning interval in steps, or 0 when planning is disabled.
func (c AgentConfig) PlanningEvery() int {
	if c.PlanningInterval == nil || *c.PlanningInterval <= 0 {
		return 0
	}
	return *c.PlanningInterval
}

// LoadAgentConfig reads the agent document at path. A missing or malformed
// document, or one without a model id or tools, yields a ConfigError.
func LoadAgentConfig(path string) (AgentConfig, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultAgentConfigPath
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AgentConfig{}, configErrorf(path, "agent configuration file %q not found", path)
		}
		return AgentConfig{}, &ConfigError{Source: path, Err: err}
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	v.SetDefault("model.data.max_tokens", defaultMaxTokens)
	v.SetDefault("model.data.temperature", defaultTemperature)
	v.SetDefault("max_steps", defaultMaxSteps)
	v.SetDefault("verbosity_level", defaultVerbosityLevel)
	v.SetDefault("description", defaultAgentDescription)

	if err := v.ReadInConfig(); err != nil {
		return AgentConfig{}, configErrorf(path, "invalid agent configuration: %w", err)
	}

	var cfg AgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AgentConfig{}, configErrorf(path, "decode agent configuration: %w", err)
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return AgentConfig{}, &ConfigError{Source: path, Err: err}
	}
	return cfg, nil
}

// Validate checks the fields the agent cannot run without.
func (c AgentConfig) Validate() error {
	if strings.TrimSpace(c.Model.Data.ModelID) == "" {
		return fmt.Errorf("model.data.model_id is required")
	}
	if len(c.Tools) == 0 {
		return fmt.Errorf("tools must list at least one tool")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.Model.Data.MaxTokens <= 0 {
		return fmt.Errorf("model.data.max_tokens must be positive, got %d", c.Model.Data.MaxTokens)
	}
	return nil
}
