package appconfig

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptTemplates is the prompt template document. Every template is a Go
// text/template rendered against PromptData.
type PromptTemplates struct {
	SystemPrompt string                `yaml:"system_prompt"`
	Planning     PlanningTemplates     `yaml:"planning"`
	ManagedAgent ManagedAgentTemplates `yaml:"managed_agent"`
	FinalAnswer  FinalAnswerTemplates  `yaml:"final_answer"`
}

// PlanningTemplates drive the periodic planning step.
type PlanningTemplates struct {
	InitialPlan            string `yaml:"initial_plan"`
	UpdatePlanPreMessages  string `yaml:"update_plan_pre_messages"`
	UpdatePlanPostMessages string `yaml:"update_plan_post_messages"`
}

// ManagedAgentTemplates frame a task delegated by another agent.
type ManagedAgentTemplates struct {
	Task   string `yaml:"task"`
	Report string `yaml:"report"`
}

// FinalAnswerTemplates frame the forced answer once max_steps is exhausted.
type FinalAnswerTemplates struct {
	PreMessages  string `yaml:"pre_messages"`
	PostMessages string `yaml:"post_messages"`
}

// PromptData is the value templates are rendered against.
type PromptData struct {
	Name        string
	Description string
	Period      string
	Task        string
	Tools       string
	FinalAnswer string
}

// DefaultPromptTemplates returns the built-in templates used when no prompt
// document exists or a template is left empty.
func DefaultPromptTemplates() PromptTemplates {
	return PromptTemplates{
		SystemPrompt: `You are {{.Name}}. {{.Description}}.
You help founders of New Zealand startups understand their regulatory, tax and employment obligations.
{{if .Period}}The user's current date context is {{.Period}}; treat deadlines relative to it.
{{end}}You can call these tools:
{{.Tools}}
Use get_compliance_calendar for deadlines and thresholds. Use compliance_web_search only for recent changes that the calendar cannot cover.
When you are done, call final_answer with a clear, actionable answer that cites the relevant deadlines.`,
		Planning: PlanningTemplates{
			InitialPlan: `Before acting, write a short numbered plan for answering the task below. List the facts you already know, the facts you must look up, and which tool will provide each one. Do not call any tool yet.

Task: {{.Task}}`,
			UpdatePlanPreMessages: `You are revisiting your plan for this task:
{{.Task}}
Review the conversation so far.`,
			UpdatePlanPostMessages: `Write an updated numbered plan for the remaining steps. Do not call any tool yet.`,
		},
		ManagedAgent: ManagedAgentTemplates{
			Task:   `You are a compliance assistant named '{{.Name}}'. Your manager has submitted this task:
{{.Task}}`,
			Report: `Here is the final answer from your managed agent '{{.Name}}':
{{.FinalAnswer}}`,
		},
		FinalAnswer: FinalAnswerTemplates{
			PreMessages:  `You ran out of steps while working on a task. Using everything gathered in the conversation below, answer it directly.`,
			PostMessages: `Based on the above, give your best final answer to this task:
{{.Task}}`,
		},
	}
}

// LoadPromptTemplates reads the prompt document at path. An absent file
// yields the defaults and a logged warning; a malformed file is a
// ConfigError. Empty templates fall back to their defaults.
func LoadPromptTemplates(path string) (PromptTemplates, error) {
	defaults := DefaultPromptTemplates()
	if strings.TrimSpace(path) == "" {
		path = DefaultPromptsPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("warning: prompt templates file %q not found, using defaults", path)
			return defaults, nil
		}
		return PromptTemplates{}, &ConfigError{Source: path, Err: err}
	}

	var loaded PromptTemplates
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return PromptTemplates{}, configErrorf(path, "invalid prompt templates: %w", err)
	}

	return mergePromptTemplates(loaded, defaults), nil
}

func mergePromptTemplates(loaded, defaults PromptTemplates) PromptTemplates {
	pick := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	return PromptTemplates{
		SystemPrompt: pick(loaded.SystemPrompt, defaults.SystemPrompt),
		Planning: PlanningTemplates{
			InitialPlan:            pick(loaded.Planning.InitialPlan, defaults.Planning.InitialPlan),
			UpdatePlanPreMessages:  pick(loaded.Planning.UpdatePlanPreMessages, defaults.Planning.UpdatePlanPreMessages),
			UpdatePlanPostMessages: pick(loaded.Planning.UpdatePlanPostMessages, defaults.Planning.UpdatePlanPostMessages),
		},
		ManagedAgent: ManagedAgentTemplates{
			Task:   pick(loaded.ManagedAgent.Task, defaults.ManagedAgent.Task),
			Report: pick(loaded.ManagedAgent.Report, defaults.ManagedAgent.Report),
		},
		FinalAnswer: FinalAnswerTemplates{
			PreMessages:  pick(loaded.FinalAnswer.PreMessages, defaults.FinalAnswer.PreMessages),
			PostMessages: pick(loaded.FinalAnswer.PostMessages, defaults.FinalAnswer.PostMessages),
		},
	}
}

// Render executes tmpl against data. Templates that fail to parse or
// execute are returned verbatim so a bad template degrades the prompt
// rather than the run.
func Render(tmpl string, data PromptData) string {
	t, err := template.New("prompt").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		log.Printf("warning: prompt template parse failed: %v", err)
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		log.Printf("warning: prompt template render failed: %v", err)
		return tmpl
	}
	return strings.TrimSpace(buf.String())
}
