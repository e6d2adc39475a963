// Package evaluation runs a fixed battery of compliance questions through
// an agent, scores each answer heuristically and aggregates the results.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/mwiater/compliance-agent/internal/agent"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/util"
)

// Harness drives a Runner over a sequence of test cases, one at a time.
type Harness struct {
	runner    agent.Runner
	cases     []TestCase
	agentName string
	out       io.Writer
	now       func() time.Time
	newRunID  func() string
}

// Option configures a Harness.
type Option func(*Harness)

// WithOutput sets where progress lines are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Harness) { h.out = w }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) { h.now = now }
}

// WithAgentName sets the agent name recorded in the summary metadata.
func WithAgentName(name string) Option {
	return func(h *Harness) { h.agentName = name }
}

// WithRunID replaces the run id generator.
func WithRunID(gen func() string) Option {
	return func(h *Harness) { h.newRunID = gen }
}

// New builds a Harness. The runner must be non-nil and test ids unique.
func New(runner agent.Runner, cases []TestCase, opts ...Option) (*Harness, error) {
	if runner == nil {
		return nil, errors.New("evaluation requires an agent runner")
	}
	if err := validateCases(cases); err != nil {
		return nil, err
	}
	h := &Harness{
		runner:    runner,
		cases:     append([]TestCase{}, cases...),
		agentName: DefaultAgentName,
		out:       os.Stdout,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Cases returns a copy of the test cases in run order.
func (h *Harness) Cases() []TestCase {
	return append([]TestCase{}, h.cases...)
}

// RunEvaluation runs every case in order and summarizes the results. A
// failing case is recorded as a degraded result and never stops the batch.
func (h *Harness) RunEvaluation(ctx context.Context) Summary {
	started := h.now()
	total := len(h.cases)
	results := make([]Result, 0, total)

	fmt.Fprintf(h.out, "Starting compliance agent evaluation (%d tests)...\n", total)
	for i, tc := range h.cases {
		iteration := i + 1
		fmt.Fprintf(h.out, "\n[%d/%d] %s - Query: %s\n", iteration, total, tc.ID, tc.Query)

		result := h.runCase(ctx, tc)
		results = append(results, result)

		if result.Failed() {
			color.New(color.FgRed).Fprintf(h.out, "[%d/%d] %s - Failed: %s\n", iteration, total, tc.ID, util.Preview(result.Error, 200))
			logging.LogEvent("evaluation case %s failed (%s): %s", tc.ID, result.ErrorKind, result.Error)
			continue
		}
		color.New(color.FgGreen).Fprintf(h.out, "[%d/%d] %s - Completed in %.2fs, quality %d/%d, tools=%v (%s)\n",
			iteration, total, tc.ID, result.ExecutionTimeSeconds, result.QualityScore, result.MaxQualityScore, result.ToolsUsed, result.ToolsDetection)
		logging.LogEvent("evaluation case %s: quality=%d time=%.2fs tools=%v", tc.ID, result.QualityScore, result.ExecutionTimeSeconds, result.ToolsUsed)
	}

	return Summarize(results, Metadata{
		Timestamp:         started,
		RunID:             h.newRunID(),
		AgentName:         h.agentName,
		EvaluationVersion: EvaluationVersion,
	})
}

func (h *Harness) runCase(ctx context.Context, tc TestCase) Result {
	start := h.now()

	var (
		response  string
		used      []string
		detection string
		err       error
	)
	if traced, ok := h.runner.(agent.TracedRunner); ok {
		var trace agent.Trace
		response, trace, err = traced.RunTraced(ctx, tc.Query)
		used, detection = trace.ToolsUsed, DetectionTrace
	} else {
		response, err = h.runner.Run(ctx, tc.Query)
		if err == nil {
			used, detection = InferToolsUsed(response), DetectionHeuristic
		}
	}

	end := h.now()
	elapsed := end.Sub(start)
	if err != nil {
		kind := agent.Classify(err, 0).Kind
		return degraded(tc, err, string(kind), elapsed, end)
	}

	if used == nil {
		used = []string{}
	}
	result := Score(tc, response, elapsed, used, end)
	result.ToolsDetection = detection
	return result
}
