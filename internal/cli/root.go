// internal/cli/root.go
// Package cli wires the compliance-agent command line: evaluation mode,
// the interactive frontends and configuration inspection.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"

	"github.com/fatih/color"
	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
)

var boolKeys = []string{"eval", "debug"}

var stringKeys = []string{"logFile", "agentConfig", "prompts", "resultsDir", "suite", "ui", "addr"}

var rootCmd = &cobra.Command{
	Use:          "compliance-agent",
	Short:        "compliance-agent: NZ startup compliance assistant and evaluation harness",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		// Flags the user did not set take their value from the config file.
		for _, name := range boolKeys {
			if !cmd.Flags().Changed(name) {
				_ = cmd.Flags().Set(name, strconv.FormatBool(viper.GetBool(name)))
			}
		}

		var cfg appconfig.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		cfg.ConfigPath = viper.ConfigFileUsed()
		currentConfig = &cfg

		if cmd.Flags().Changed("logFile") || cfg.Debug {
			var echo io.Writer
			if cfg.Debug && cfg.Eval {
				echo = os.Stderr
			}
			if err := logging.Init(cfg.LogFilePath(), echo); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.Eval {
			return runEval(cmd.Context(), cfg, cmd.OutOrStdout())
		}
		return runInteractive(cmd.Context(), cfg)
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")

	rootCmd.PersistentFlags().Bool("eval", false, "run the evaluation suite instead of the interactive frontend")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("logFile", "", "log file path (default compliance-agent.log)")
	rootCmd.PersistentFlags().String("agentConfig", appconfig.DefaultAgentConfigPath, "agent document")
	rootCmd.PersistentFlags().String("prompts", appconfig.DefaultPromptsPath, "prompt templates document")
	rootCmd.PersistentFlags().String("resultsDir", appconfig.DefaultResultsDir, "directory for evaluation summaries")
	rootCmd.PersistentFlags().String("suite", "", "JSON test suite (default: built-in battery)")
	rootCmd.PersistentFlags().String("ui", appconfig.UITerminal, "interactive frontend: tui or web")
	rootCmd.PersistentFlags().String("addr", appconfig.DefaultAddr, "listen address for the web frontend")

	for _, name := range append(append([]string{}, boolKeys...), stringKeys...) {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// ensureConfigLoaded reads the config file when one exists.
func ensureConfigLoaded() error {
	viper.SetDefault("eval", false)
	viper.SetDefault("debug", false)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &appconfig.ConfigError{Source: viper.ConfigFileUsed(), Err: err}
	}
	return nil
}

// getConfig returns the merged configuration snapshot.
func getConfig() *appconfig.Config {
	if currentConfig == nil {
		return &appconfig.Config{}
	}
	return currentConfig
}
