package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/session"
	"github.com/mwiater/compliance-agent/internal/tui"
	"github.com/mwiater/compliance-agent/internal/web"
	"github.com/spf13/cobra"
)

// Swapped in tests.
var (
	runTUI = tui.Run
	runWeb = func(ctx context.Context, addr string, build session.Factory) error {
		return web.NewServer(addr, build).ListenAndServe(ctx)
	}
)

// serveCmd starts the web frontend regardless of the ui setting.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web chat frontend",
	Long:  `The 'serve' command serves the single-page chat frontend and its websocket endpoint on --addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *getConfig()
		cfg.UI = appconfig.UIWeb
		return runInteractive(cmd.Context(), &cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runInteractive starts the configured frontend with one agent shared by
// every session.
func runInteractive(ctx context.Context, cfg *appconfig.Config) error {
	comps, err := loadComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.close()

	switch cfg.Frontend() {
	case appconfig.UIWeb:
		fmt.Printf("Serving %s on http://%s\n", comps.agentCfg.DisplayName(), cfg.ListenAddr())
		return runWeb(ctx, cfg.ListenAddr(), comps.factory())
	default:
		err := runTUI(ctx, session.New(comps.factory()))
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
}
