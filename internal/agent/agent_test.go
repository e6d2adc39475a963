package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/providers"
	"github.com/mwiater/compliance-agent/internal/tools"
)

// scriptedModel replays canned completions and records every request.
type scriptedModel struct {
	replies  []providers.Completion
	errs     []error
	requests []providers.CompletionRequest
}

func (m *scriptedModel) Name() string { return "scripted" }
func (m *scriptedModel) Close() error { return nil }

func (m *scriptedModel) Complete(_ context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return providers.Completion{}, m.errs[i]
	}
	if i >= len(m.replies) {
		return providers.Completion{}, fmt.Errorf("unexpected call %d", i+1)
	}
	return m.replies[i], nil
}

func toolCall(id, name string, args map[string]any) providers.Completion {
	return providers.Completion{ToolCalls: []providers.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

func newTestAgent(t *testing.T, model providers.ChatModel, cfg Config) *Agent {
	t.Helper()
	reg, err := tools.NewRegistry([]string{tools.CalendarName, tools.FinalAnswerName}, tools.Options{})
	require.NoError(t, err)
	if cfg.Name == "" {
		cfg.Name = "NZ_Compliance_Agent"
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 6
	}
	return New(model, reg, appconfig.DefaultPromptTemplates(), cfg)
}

func TestRunTracedToolThenFinalAnswer(t *testing.T) {
	model := &scriptedModel{replies: []providers.Completion{
		toolCall("c1", tools.CalendarName, nil),
		toolCall("c2", tools.FinalAnswerName, map[string]any{"answer": "GST returns are due 2-monthly."}),
	}}
	a := newTestAgent(t, model, Config{Model: "claude-test", MaxTokens: 256, Temperature: 0.5})

	answer, trace, err := a.RunTraced(context.Background(), "When is GST due?")
	require.NoError(t, err)
	assert.Equal(t, "GST returns are due 2-monthly.", answer)
	assert.Equal(t, []string{tools.CalendarName, tools.FinalAnswerName}, trace.ToolsUsed)
	assert.Equal(t, 2, trace.Steps)
	assert.False(t, trace.Forced)

	require.Len(t, model.requests, 2)
	first := model.requests[0]
	assert.Equal(t, "claude-test", first.Model)
	assert.Equal(t, 256, first.MaxTokens)
	assert.Len(t, first.Tools, 2)
	assert.Contains(t, first.SystemPrompt, "NZ_Compliance_Agent")

	second := model.requests[1].History
	require.Len(t, second, 3)
	assert.Equal(t, providers.RoleTool, second[2].Role)
	assert.Equal(t, "c1", second[2].ToolCallID)
	assert.Contains(t, second[2].Content, "NEW ZEALAND STARTUP COMPLIANCE CALENDAR")
}

func TestRunPlainTextIsFinalAnswer(t *testing.T) {
	model := &scriptedModel{replies: []providers.Completion{{Content: "  Register for GST once turnover exceeds $60,000.  "}}}
	a := newTestAgent(t, model, Config{})

	answer, trace, err := a.RunTraced(context.Background(), "Do I need GST?")
	require.NoError(t, err)
	assert.Equal(t, "Register for GST once turnover exceeds $60,000.", answer)
	assert.Equal(t, []string{tools.FinalAnswerName}, trace.ToolsUsed)
}

func TestRunFeedsToolErrorsBack(t *testing.T) {
	model := &scriptedModel{replies: []providers.Completion{
		toolCall("c1", tools.FinalAnswerName, map[string]any{}),
		toolCall("c2", "python_interpreter", map[string]any{"code": "1+1"}),
		toolCall("c3", tools.FinalAnswerName, map[string]any{"answer": "done"}),
	}}
	a := newTestAgent(t, model, Config{})

	answer, trace, err := a.RunTraced(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "done", answer)
	assert.Equal(t, []string{tools.FinalAnswerName}, trace.ToolsUsed, "failed invocations are not recorded")

	history := model.requests[2].History
	assert.True(t, strings.HasPrefix(history[2].Content, "Error: invalid arguments for final_answer"))
	assert.True(t, strings.HasPrefix(history[4].Content, "Error: unknown tool"))
}

func TestRunStepLimitForcesFinalAnswer(t *testing.T) {
	model := &scriptedModel{replies: []providers.Completion{
		toolCall("c1", tools.CalendarName, nil),
		toolCall("c2", tools.CalendarName, nil),
		{Content: "Best effort answer."},
	}}
	a := newTestAgent(t, model, Config{MaxSteps: 2})

	answer, trace, err := a.RunTraced(context.Background(), "What is due?")
	require.NoError(t, err)
	assert.Equal(t, "Best effort answer.", answer)
	assert.True(t, trace.Forced)
	assert.Equal(t, []string{tools.CalendarName, tools.FinalAnswerName}, trace.ToolsUsed)

	last := model.requests[2]
	assert.Contains(t, last.SystemPrompt, "ran out of steps")
	assert.Contains(t, last.History[len(last.History)-1].Content, "What is due?")
}

func TestRunStepLimitFailure(t *testing.T) {
	model := &scriptedModel{replies: []providers.Completion{
		toolCall("c1", tools.CalendarName, nil),
		toolCall("c2", tools.CalendarName, nil),
	}}
	a := newTestAgent(t, model, Config{MaxSteps: 1})

	_, _, err := a.RunTraced(context.Background(), "q")
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, KindStepLimit, callErr.Kind)
}

func TestRunPlanning(t *testing.T) {
	model := &scriptedModel{replies: []providers.Completion{
		{Content: "1. Check the calendar."},
		toolCall("c1", tools.CalendarName, nil),
		{Content: "1. Answer now."},
		toolCall("c2", tools.FinalAnswerName, map[string]any{"answer": "ok"}),
	}}
	a := newTestAgent(t, model, Config{PlanningInterval: 1})

	answer, trace, err := a.RunTraced(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, 2, trace.Plans)

	assert.Contains(t, model.requests[0].History[1].Content, "numbered plan")
	assert.Contains(t, model.requests[2].History[len(model.requests[2].History)-1].Content, "updated numbered plan")
	assert.Contains(t, model.requests[1].History[1].Content, "Here is your current plan:\n1. Check the calendar.")
}

func TestRunClassifiesModelFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"overloaded", &providers.StatusError{Provider: "anthropic", StatusCode: 529}, KindOverloaded},
		{"rate limited", &providers.StatusError{Provider: "anthropic", StatusCode: http.StatusTooManyRequests}, KindOverloaded},
		{"server error", &providers.StatusError{Provider: "anthropic", StatusCode: http.StatusInternalServerError}, KindUpstream},
		{"malformed", &providers.DecodeError{Provider: "anthropic", Err: errors.New("bad json")}, KindMalformedOutput},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), KindTimeout},
		{"other", errors.New("connection reset"), KindUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := &scriptedModel{errs: []error{tc.err}}
			_, err := newTestAgent(t, model, Config{}).Run(context.Background(), "q")
			var callErr *CallError
			require.ErrorAs(t, err, &callErr)
			assert.Equal(t, tc.want, callErr.Kind)
			assert.Equal(t, 1, callErr.Step)
		})
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model := &scriptedModel{}
	_, err := newTestAgent(t, model, Config{}).Run(ctx, "q")
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, KindCanceled, callErr.Kind)
	assert.Empty(t, model.requests)
}

func TestWithPeriod(t *testing.T) {
	model := &scriptedModel{replies: []providers.Completion{{Content: "answer"}}}
	base := newTestAgent(t, model, Config{})
	scoped := base.WithPeriod("March 2025")

	_, err := scoped.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, model.requests[0].SystemPrompt, "March 2025")
	assert.Empty(t, base.period, "WithPeriod must not mutate the receiver")
}

func TestClassifyKeepsCallError(t *testing.T) {
	original := &CallError{Kind: KindStepLimit, Step: 3, Err: errors.New("x")}
	assert.Same(t, original, Classify(fmt.Errorf("wrap: %w", original), 1))
	assert.Nil(t, Classify(nil, 1))
	assert.Equal(t, "agent step 3: step_limit: x", original.Error())
}

func TestConfigFrom(t *testing.T) {
	interval := 2
	doc := &appconfig.AgentConfig{MaxSteps: 4, VerbosityLevel: 2, Description: "Helps founders", PlanningInterval: &interval}
	doc.Model.Data.ModelID = "anthropic/claude-sonnet-4-5"
	doc.Model.Data.MaxTokens = 100
	cfg := ConfigFrom(doc)
	assert.Equal(t, Config{
		Name:             "NZ_Compliance_Agent",
		Description:      "Helps founders",
		Model:            "claude-sonnet-4-5",
		MaxSteps:         4,
		MaxTokens:        100,
		PlanningInterval: 2,
		Verbosity:        2,
	}, cfg)
}
