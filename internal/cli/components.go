package cli

import (
	"fmt"

	"github.com/mwiater/compliance-agent/internal/agent"
	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/metrics"
	"github.com/mwiater/compliance-agent/internal/providerfactory"
	"github.com/mwiater/compliance-agent/internal/providers"
	"github.com/mwiater/compliance-agent/internal/session"
	"github.com/mwiater/compliance-agent/internal/tools"
)

// Swapped in tests.
var (
	newChatModel = providerfactory.New
	loadSecret   = appconfig.LoadSecret
	toolOptions  = tools.Options{}
)

// components holds everything loaded from disk that agents are built from.
type components struct {
	agentCfg  appconfig.AgentConfig
	templates appconfig.PromptTemplates
	model     providers.ChatModel
	registry  *tools.Registry
	usage     *metrics.Aggregator
	base      *agent.Agent
}

// loadComponents reads the agent document, prompt templates and secret, then
// constructs the model backend and tool registry. Every failure here is a
// ConfigError.
func loadComponents(cfg *appconfig.Config) (*components, error) {
	agentCfg, err := appconfig.LoadAgentConfig(cfg.AgentConfigFile())
	if err != nil {
		return nil, err
	}
	templates, err := appconfig.LoadPromptTemplates(cfg.PromptsFile())
	if err != nil {
		return nil, err
	}
	if len(agentCfg.AuthorizedImports) > 0 {
		logging.LogEvent("authorized_imports %v accepted but unused: this agent does not execute code", agentCfg.AuthorizedImports)
	}

	apiKey, err := loadSecret(agentCfg.Model.Data.ModelID)
	if err != nil {
		return nil, err
	}
	registry, err := tools.NewRegistry(agentCfg.Tools, toolOptions)
	if err != nil {
		return nil, err
	}
	backend, err := newChatModel(&agentCfg, apiKey, nil)
	if err != nil {
		return nil, err
	}
	usage := metrics.NewAggregator()
	model := metrics.NewModel(backend, usage)

	logging.LogEvent("agent %s ready: model=%s backend=%s tools=%v", agentCfg.DisplayName(), agentCfg.Model.Data.ModelID, model.Name(), registry.Names())
	return &components{
		agentCfg:  agentCfg,
		templates: templates,
		model:     model,
		registry:  registry,
		usage:     usage,
		base:      agent.New(model, registry, templates, agent.ConfigFrom(&agentCfg)),
	}, nil
}

// factory builds a period-bound agent for interactive sessions.
func (c *components) factory() session.Factory {
	return func(period string) (agent.Runner, error) {
		if c.base == nil {
			return nil, fmt.Errorf("agent not configured")
		}
		return c.base.WithPeriod(period), nil
	}
}

func (c *components) close() {
	if err := c.model.Close(); err != nil {
		logging.LogEvent("provider shutdown error: %v", err)
	}
}
