package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/providers"
	"github.com/mwiater/compliance-agent/internal/results"
	"github.com/mwiater/compliance-agent/internal/session"
	"github.com/mwiater/compliance-agent/internal/tools"
)

// calendarModel looks up the calendar once per question and then answers.
type calendarModel struct {
	mu    sync.Mutex
	calls int
}

func (m *calendarModel) Name() string { return "fake" }
func (m *calendarModel) Close() error { return nil }

func (m *calendarModel) Complete(_ context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	m.mu.Lock()
	m.calls++
	id := m.calls
	m.mu.Unlock()

	last := req.History[len(req.History)-1]
	if last.Role == providers.RoleTool {
		answer := "GST returns are due on the 28th of the month after each taxable period; file with Inland Revenue."
		return providers.Completion{ToolCalls: []providers.ToolCall{{ID: "final", Name: tools.FinalAnswerName, Arguments: map[string]any{"answer": answer}}}}, nil
	}
	return providers.Completion{ToolCalls: []providers.ToolCall{{ID: fmt.Sprintf("call_%d", id), Name: tools.CalendarName, Arguments: map[string]any{}}}}, nil
}

func stubBackend(t *testing.T, model providers.ChatModel) {
	t.Helper()
	origModel, origSecret := newChatModel, loadSecret
	t.Cleanup(func() {
		newChatModel, loadSecret = origModel, origSecret
	})
	newChatModel = func(*appconfig.AgentConfig, string, *http.Client) (providers.ChatModel, error) {
		return model, nil
	}
	loadSecret = func(string, ...string) (string, error) { return "test-key", nil }
}

func writeAgentConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "agent.json")
	doc := `{
  "model": {"data": {"model_id": "anthropic/claude-sonnet-4-5"}},
  "tools": ["get_compliance_calendar", "compliance_web_search", "final_answer"],
  "max_steps": 4,
  "authorized_imports": ["datetime"]
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRunEval(t *testing.T) {
	stubBackend(t, &calendarModel{})
	dir := t.TempDir()
	cfg := &appconfig.Config{
		AgentConfigPath: writeAgentConfig(t, dir),
		PromptsPath:     filepath.Join(dir, "absent.yaml"),
		ResultsDir:      filepath.Join(dir, "eval_logs"),
	}

	var out bytes.Buffer
	require.NoError(t, runEval(context.Background(), cfg, &out))

	entries, err := os.ReadDir(cfg.ResultsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "eval_results_"))

	summary, err := results.Load(filepath.Join(cfg.ResultsDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Metrics.TotalTests)
	assert.Equal(t, 5, summary.Metrics.SuccessfulTests)
	assert.Equal(t, "NZ_Compliance_Agent", summary.Metadata.AgentName)
	require.Len(t, summary.ModelUsage, 1)
	assert.EqualValues(t, 10, summary.ModelUsage[0].OverallStats.TotalRequests)
	for _, r := range summary.DetailedResults {
		assert.Contains(t, r.ToolsUsed, tools.CalendarName, r.TestID)
		assert.Contains(t, r.ToolsUsed, tools.FinalAnswerName, r.TestID)
		assert.Equal(t, "trace", r.ToolsDetection, r.TestID)
	}

	text := out.String()
	assert.Contains(t, text, "[1/5] gst_requirements")
	assert.Contains(t, text, "Results saved to:")
	assert.Contains(t, text, "Tests: 5/5")
	assert.Contains(t, text, "Model Usage:")
}

func TestRunEvalConfigErrors(t *testing.T) {
	stubBackend(t, &calendarModel{})
	dir := t.TempDir()

	err := runEval(context.Background(), &appconfig.Config{AgentConfigPath: filepath.Join(dir, "missing.json")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, appconfig.IsConfigError(err), "expected ConfigError, got %v", err)

	badTools := filepath.Join(dir, "bad_tools.json")
	require.NoError(t, os.WriteFile(badTools, []byte(`{"model": {"data": {"model_id": "anthropic/x"}}, "tools": ["python_interpreter"]}`), 0o644))
	err = runEval(context.Background(), &appconfig.Config{AgentConfigPath: badTools, PromptsPath: filepath.Join(dir, "absent.yaml")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, appconfig.IsConfigError(err), "expected ConfigError, got %v", err)
}

func TestRunEvalSaveFailure(t *testing.T) {
	stubBackend(t, &calendarModel{})
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := &appconfig.Config{
		AgentConfigPath: writeAgentConfig(t, dir),
		PromptsPath:     filepath.Join(dir, "absent.yaml"),
		ResultsDir:      filepath.Join(blocker, "eval_logs"),
	}
	err := runEval(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save evaluation results")
}

func TestRunInteractiveSelectsFrontend(t *testing.T) {
	stubBackend(t, &calendarModel{})
	origTUI, origWeb := runTUI, runWeb
	t.Cleanup(func() { runTUI, runWeb = origTUI, origWeb })

	var frontends []string
	runTUI = func(ctx context.Context, sess *session.Session) error {
		frontends = append(frontends, "tui")
		status, answer := sess.Process(ctx, 7, 2025, "When is GST due?")
		assert.Equal(t, "Agent Status: Ready for July 2025", status)
		assert.Contains(t, answer, "GST returns")
		return nil
	}
	runWeb = func(_ context.Context, addr string, build session.Factory) error {
		frontends = append(frontends, "web@"+addr)
		runner, err := build("July 2025")
		require.NoError(t, err)
		assert.NotNil(t, runner)
		return nil
	}

	dir := t.TempDir()
	cfg := &appconfig.Config{AgentConfigPath: writeAgentConfig(t, dir), PromptsPath: filepath.Join(dir, "absent.yaml")}
	require.NoError(t, runInteractive(context.Background(), cfg))

	cfg.UI = "web"
	cfg.Addr = "127.0.0.1:9999"
	require.NoError(t, runInteractive(context.Background(), cfg))

	assert.Equal(t, []string{"tui", "web@127.0.0.1:9999"}, frontends)
}

func TestRunShowConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := &appconfig.Config{AgentConfigPath: writeAgentConfig(t, dir)}

	var out bytes.Buffer
	runShowConfig(&out, cfg, true)
	text := out.String()
	assert.Contains(t, text, "No config file loaded")
	assert.Contains(t, text, "anthropic/claude-sonnet-4-5")
	assert.Contains(t, text, "AuthorizedImports")

	out.Reset()
	runShowConfig(&out, &appconfig.Config{AgentConfigPath: filepath.Join(dir, "missing.json")}, false)
	assert.Contains(t, out.String(), "Agent config unavailable")
}

func TestRootCommandEval(t *testing.T) {
	stubBackend(t, &calendarModel{})
	t.Cleanup(func() { _ = logging.Close() })

	dir := t.TempDir()
	resultsDir := filepath.Join(dir, "out")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "absent.json"),
		"--eval",
		"--agentConfig", writeAgentConfig(t, dir),
		"--prompts", filepath.Join(dir, "absent.yaml"),
		"--resultsDir", resultsDir,
		"--logFile", filepath.Join(dir, "agent.log"),
	})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.True(t, getConfig().Eval)
	assert.Equal(t, resultsDir, getConfig().ResultsDirectory())

	entries, err := os.ReadDir(resultsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, out.String(), "Success Rate: 100.0%")

	logData, err := os.ReadFile(filepath.Join(dir, "agent.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "authorized_imports")
}
