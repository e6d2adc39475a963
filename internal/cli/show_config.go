package cli

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/spf13/cobra"
)

// showCmd groups commands that display resources.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for displaying resources",
}

var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON configs are loaded properly and overridden by flags accordingly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		runShowConfig(cmd.OutOrStdout(), getConfig(), verbose)
		return nil
	},
}

func init() {
	showConfigCmd.Flags().BoolP("verbose", "v", false, "dump the full agent document")
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}

func runShowConfig(out io.Writer, cfg *appconfig.Config, verbose bool) {
	agentCfg, err := appconfig.LoadAgentConfig(cfg.AgentConfigFile())
	if err != nil {
		appconfig.ShowConfig(out, cfg.ConfigPath, *cfg, nil)
		fmt.Fprintf(out, "\nAgent config unavailable: %v\n", err)
		return
	}
	appconfig.ShowConfig(out, cfg.ConfigPath, *cfg, &agentCfg)
	if verbose {
		fmt.Fprintln(out)
		pp.Fprintln(out, agentCfg)
	}
}
