// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration:
// the runtime settings bound to CLI flags, the agent document (agent.json),
// the prompt template document (prompts.yaml) and the model backend secret.
package appconfig

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// DefaultAgentConfigPath is the default path to the agent document.
	DefaultAgentConfigPath = "agent.json"
	// DefaultPromptsPath is the default path to the prompt template document.
	DefaultPromptsPath = "prompts.yaml"
	// DefaultResultsDir is where evaluation summaries are written.
	DefaultResultsDir = "eval_logs"
	// DefaultAddr is the listen address of the web frontend.
	DefaultAddr = "127.0.0.1:7860"
	// defaultLogFile is used when no log file is configured.
	defaultLogFile = "compliance-agent.log"
)

// UI names accepted by the ui setting.
const (
	UITerminal = "tui"
	UIWeb      = "web"
)

// Config represents the top-level application configuration after flags,
// config file and defaults have been merged.
type Config struct {
	Eval            bool   `mapstructure:"eval" json:"eval"`
	Debug           bool   `mapstructure:"debug" json:"debug"`
	LogFile         string `mapstructure:"logFile" json:"logFile,omitempty"`
	AgentConfigPath string `mapstructure:"agentConfig" json:"agentConfig,omitempty"`
	PromptsPath     string `mapstructure:"prompts" json:"prompts,omitempty"`
	ResultsDir      string `mapstructure:"resultsDir" json:"resultsDir,omitempty"`
	SuitePath       string `mapstructure:"suite" json:"suite,omitempty"`
	UI              string `mapstructure:"ui" json:"ui,omitempty"`
	Addr            string `mapstructure:"addr" json:"addr,omitempty"`
	ConfigPath      string `mapstructure:"-" json:"-"`
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := strings.TrimSpace(c.LogFile); path != "" {
		return path
	}
	return defaultLogFile
}

// AgentConfigFile returns the agent document path, applying a default if not set.
func (c Config) AgentConfigFile() string {
	if path := strings.TrimSpace(c.AgentConfigPath); path != "" {
		return path
	}
	return DefaultAgentConfigPath
}

// PromptsFile returns the prompt template path, applying a default if not set.
func (c Config) PromptsFile() string {
	if path := strings.TrimSpace(c.PromptsPath); path != "" {
		return path
	}
	return DefaultPromptsPath
}

// ResultsDirectory returns the evaluation output directory.
func (c Config) ResultsDirectory() string {
	if dir := strings.TrimSpace(c.ResultsDir); dir != "" {
		return dir
	}
	return DefaultResultsDir
}

// ListenAddr returns the web frontend address.
func (c Config) ListenAddr() string {
	if addr := strings.TrimSpace(c.Addr); addr != "" {
		return addr
	}
	return DefaultAddr
}

// Frontend returns the normalized interactive frontend name.
func (c Config) Frontend() string {
	if strings.EqualFold(strings.TrimSpace(c.UI), UIWeb) {
		return UIWeb
	}
	return UITerminal
}

// Load reads the application config file at path. A missing file yields the
// zero Config so flags and defaults apply; unreadable or malformed files are
// a ConfigError.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, &ConfigError{Source: path, Err: err}
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, configErrorf(path, "could not parse config file: %w", err)
	}
	config.ConfigPath = path
	return config, nil
}
