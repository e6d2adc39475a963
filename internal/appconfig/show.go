package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg Config, agent *AgentConfig) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:           %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Eval Mode:       %v\n", cfg.Eval)
	fmt.Fprintf(out, "  Frontend:        %s\n", cfg.Frontend())
	fmt.Fprintf(out, "  Listen Address:  %s\n", cfg.ListenAddr())
	fmt.Fprintf(out, "  Log File:        %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Agent Config:    %s\n", cfg.AgentConfigFile())
	fmt.Fprintf(out, "  Prompts:         %s\n", cfg.PromptsFile())
	fmt.Fprintf(out, "  Results Dir:     %s\n", cfg.ResultsDirectory())
	if cfg.SuitePath != "" {
		fmt.Fprintf(out, "  Test Suite:      %s\n", cfg.SuitePath)
	}
	if agent == nil {
		return
	}

	fmt.Fprintln(out, "\nAgent:")
	fmt.Fprintf(out, "  Name:            %s\n", agent.DisplayName())
	fmt.Fprintf(out, "  Model:           %s\n", agent.Model.Data.ModelID)
	fmt.Fprintf(out, "  Max Tokens:      %d\n", agent.Model.Data.MaxTokens)
	fmt.Fprintf(out, "  Temperature:     %.2f\n", agent.Model.Data.Temperature)
	fmt.Fprintf(out, "  Tools:           %s\n", strings.Join(agent.Tools, ", "))
	fmt.Fprintf(out, "  Max Steps:       %d\n", agent.MaxSteps)
	fmt.Fprintf(out, "  Verbosity:       %d\n", agent.VerbosityLevel)
	if every := agent.PlanningEvery(); every > 0 {
		fmt.Fprintf(out, "  Planning Every:  %d steps\n", every)
	}
	fmt.Fprintf(out, "  API Key Env:     %s\n", SecretEnvVar(agent.Model.Data.ModelID))
}
