package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/evaluation"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/results"
)

// runEval runs the test suite against the configured agent, saves the
// summary and prints the report. Per-case failures never make it fail;
// configuration and save failures do.
func runEval(ctx context.Context, cfg *appconfig.Config, out io.Writer) error {
	comps, err := loadComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.close()

	cases, err := evaluation.LoadSuite(cfg.SuitePath)
	if err != nil {
		return err
	}
	harness, err := evaluation.New(comps.base, cases,
		evaluation.WithOutput(out),
		evaluation.WithAgentName(comps.agentCfg.DisplayName()),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Running %d compliance evaluation cases against %s\n\n", len(cases), comps.agentCfg.Model.Data.ModelID)
	summary := harness.RunEvaluation(ctx)
	summary.ModelUsage = comps.usage.Snapshot()

	path, err := results.NewStore(cfg.ResultsDirectory()).Save(summary)
	if err != nil {
		return fmt.Errorf("save evaluation results: %w", err)
	}
	logging.LogEvent("evaluation %s saved to %s", summary.Metadata.RunID, path)

	evaluation.WriteReport(out, summary, path)
	return nil
}
