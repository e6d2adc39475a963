// Package agent implements the tool-calling loop that turns a compliance
// question into an answer using a chat model and the tool registry.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/providerfactory"
	"github.com/mwiater/compliance-agent/internal/providers"
	"github.com/mwiater/compliance-agent/internal/tools"
	"github.com/mwiater/compliance-agent/internal/util"
)

const nudgeMessage = "Your last reply was empty. Call a tool, or call final_answer with your answer."

// Runner answers one natural-language query.
type Runner interface {
	Run(ctx context.Context, query string) (string, error)
}

// TracedRunner also reports what happened during the run.
type TracedRunner interface {
	Runner
	RunTraced(ctx context.Context, query string) (string, Trace, error)
}

// Trace records the tools a run actually invoked, in first-use order.
type Trace struct {
	ToolsUsed []string
	Steps     int
	Plans     int
	Forced    bool
}

func (t *Trace) record(name string) {
	for _, used := range t.ToolsUsed {
		if used == name {
			return
		}
	}
	t.ToolsUsed = append(t.ToolsUsed, name)
}

// Config holds the run limits and identity of an Agent.
type Config struct {
	Name             string
	Description      string
	Model            string
	MaxSteps         int
	MaxTokens        int
	Temperature      float64
	PlanningInterval int
	Verbosity        int
}

// ConfigFrom derives an agent Config from the agent document.
func ConfigFrom(cfg *appconfig.AgentConfig) Config {
	return Config{
		Name:             cfg.DisplayName(),
		Description:      cfg.Description,
		Model:            providerfactory.ModelName(cfg.Model.Data.ModelID),
		MaxSteps:         cfg.MaxSteps,
		MaxTokens:        cfg.Model.Data.MaxTokens,
		Temperature:      cfg.Model.Data.Temperature,
		PlanningInterval: cfg.PlanningEvery(),
		Verbosity:        cfg.VerbosityLevel,
	}
}

// Agent drives a ChatModel through tool calls until it produces an answer.
type Agent struct {
	model     providers.ChatModel
	registry  *tools.Registry
	templates appconfig.PromptTemplates
	cfg       Config
	period    string
}

// New builds an Agent. MaxSteps below 1 is treated as 1.
func New(model providers.ChatModel, registry *tools.Registry, templates appconfig.PromptTemplates, cfg Config) *Agent {
	if cfg.MaxSteps < 1 {
		cfg.MaxSteps = 1
	}
	return &Agent{model: model, registry: registry, templates: templates, cfg: cfg}
}

// WithPeriod returns a copy of the agent whose system prompt carries the
// given date context (e.g. "March 2025").
func (a *Agent) WithPeriod(period string) *Agent {
	clone := *a
	clone.period = strings.TrimSpace(period)
	return &clone
}

// Name returns the configured agent name.
func (a *Agent) Name() string { return a.cfg.Name }

// Run answers query, discarding the trace.
func (a *Agent) Run(ctx context.Context, query string) (string, error) {
	answer, _, err := a.RunTraced(ctx, query)
	return answer, err
}

// RunTraced answers query. Failures are always *CallError.
func (a *Agent) RunTraced(ctx context.Context, query string) (string, Trace, error) {
	var trace Trace
	data := a.promptData(query)
	system := appconfig.Render(a.templates.SystemPrompt, data)
	defs := a.registry.Definitions()
	history := []providers.ChatMessage{{Role: providers.RoleUser, Content: query}}

	for step := 1; step <= a.cfg.MaxSteps; step++ {
		trace.Steps = step
		if err := ctx.Err(); err != nil {
			return "", trace, Classify(err, step)
		}

		if a.planDue(step) {
			plan, err := a.plan(ctx, system, history, defs, data, step)
			if err != nil {
				return "", trace, Classify(err, step)
			}
			trace.Plans++
			history = append(history, providers.ChatMessage{
				Role:    providers.RoleUser,
				Content: "Here is your current plan:\n" + plan + "\nNow proceed with the next step.",
			})
		}

		comp, err := a.model.Complete(ctx, a.request(system, history, defs))
		if err != nil {
			return "", trace, Classify(err, step)
		}
		if a.cfg.Verbosity >= 2 {
			logging.LogEvent("agent %s step %d: content=%q tool_calls=%d stop=%s", a.cfg.Name, step, util.Preview(comp.Content, 300), len(comp.ToolCalls), comp.StopReason)
		}

		if len(comp.ToolCalls) == 0 {
			if answer := strings.TrimSpace(comp.Content); answer != "" {
				// A plain reply is the answer.
				trace.record(tools.FinalAnswerName)
				return answer, trace, nil
			}
			history = append(history, providers.ChatMessage{Role: providers.RoleUser, Content: nudgeMessage})
			continue
		}

		history = append(history, providers.ChatMessage{
			Role:      providers.RoleAssistant,
			Content:   comp.Content,
			ToolCalls: comp.ToolCalls,
		})

		var answer string
		answered := false
		for _, call := range comp.ToolCalls {
			out, err := a.registry.Invoke(ctx, call.Name, call.Arguments)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return "", trace, Classify(ctxErr, step)
				}
				out = "Error: " + err.Error()
			} else {
				trace.record(call.Name)
				if call.Name == tools.FinalAnswerName && !answered {
					answer, answered = out, true
				}
			}
			history = append(history, providers.ChatMessage{
				Role:       providers.RoleTool,
				Content:    out,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
		if answered {
			return answer, trace, nil
		}
	}

	answer, err := a.forceFinalAnswer(ctx, history, defs, data)
	trace.Forced = true
	if err != nil {
		return "", trace, &CallError{Kind: KindStepLimit, Step: a.cfg.MaxSteps, Err: err}
	}
	trace.record(tools.FinalAnswerName)
	return answer, trace, nil
}

func (a *Agent) promptData(query string) appconfig.PromptData {
	return appconfig.PromptData{
		Name:        a.cfg.Name,
		Description: strings.TrimSuffix(strings.TrimSpace(a.cfg.Description), "."),
		Period:      a.period,
		Task:        query,
		Tools:       a.registry.Describe(),
	}
}

func (a *Agent) request(system string, history []providers.ChatMessage, defs []providers.ToolDefinition) providers.CompletionRequest {
	return providers.CompletionRequest{
		Model:        a.cfg.Model,
		SystemPrompt: system,
		History:      history,
		Tools:        defs,
		MaxTokens:    a.cfg.MaxTokens,
		Temperature:  a.cfg.Temperature,
	}
}

func (a *Agent) planDue(step int) bool {
	every := a.cfg.PlanningInterval
	if every <= 0 {
		return false
	}
	return step == 1 || (step-1)%every == 0
}

// plan asks the model for a plan. Tool calls in the reply are ignored.
func (a *Agent) plan(ctx context.Context, system string, history []providers.ChatMessage, defs []providers.ToolDefinition, data appconfig.PromptData, step int) (string, error) {
	var prompt string
	if step == 1 {
		prompt = appconfig.Render(a.templates.Planning.InitialPlan, data)
	} else {
		prompt = appconfig.Render(a.templates.Planning.UpdatePlanPreMessages, data) + "\n\n" +
			appconfig.Render(a.templates.Planning.UpdatePlanPostMessages, data)
	}
	msgs := append(append([]providers.ChatMessage{}, history...), providers.ChatMessage{Role: providers.RoleUser, Content: prompt})

	comp, err := a.model.Complete(ctx, a.request(system, msgs, defs))
	if err != nil {
		return "", err
	}
	plan := strings.TrimSpace(comp.Content)
	if plan == "" {
		return "", &providers.DecodeError{Provider: a.model.Name(), Err: errors.New("empty plan")}
	}
	if a.cfg.Verbosity >= 2 {
		logging.LogEvent("agent %s plan at step %d:\n%s", a.cfg.Name, step, plan)
	}
	return plan, nil
}

// forceFinalAnswer makes one last call once max_steps is exhausted. Tool
// definitions stay in the request so earlier tool turns remain valid; only
// a final_answer call or plain text is accepted.
func (a *Agent) forceFinalAnswer(ctx context.Context, history []providers.ChatMessage, defs []providers.ToolDefinition, data appconfig.PromptData) (string, error) {
	system := appconfig.Render(a.templates.FinalAnswer.PreMessages, data)
	msgs := append(append([]providers.ChatMessage{}, history...), providers.ChatMessage{
		Role:    providers.RoleUser,
		Content: appconfig.Render(a.templates.FinalAnswer.PostMessages, data),
	})

	comp, err := a.model.Complete(ctx, a.request(system, msgs, defs))
	if err != nil {
		return "", err
	}
	for _, call := range comp.ToolCalls {
		if call.Name == tools.FinalAnswerName {
			if answer, ok := call.Arguments["answer"].(string); ok && strings.TrimSpace(answer) != "" {
				return strings.TrimSpace(answer), nil
			}
		}
	}
	if answer := strings.TrimSpace(comp.Content); answer != "" {
		return answer, nil
	}
	return "", fmt.Errorf("reached max steps (%d) without a final answer", a.cfg.MaxSteps)
}
