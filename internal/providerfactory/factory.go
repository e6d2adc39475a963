// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/providers"
	"github.com/mwiater/compliance-agent/internal/providers/anthropic"
	"github.com/mwiater/compliance-agent/internal/providers/llamacpp"
)

const (
	backendAnthropic = "anthropic"
	backendOpenAI    = "openai"
)

// New selects and configures the chat model backend named by the agent
// configuration's model_id prefix. "openai/" routes to the OpenAI-compatible
// backend (llama.cpp and friends); everything else goes to Anthropic.
func New(cfg *appconfig.AgentConfig, apiKey string, client *http.Client) (providers.ChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil agent config provided to provider factory")
	}
	modelID := strings.TrimSpace(cfg.Model.Data.ModelID)
	if modelID == "" {
		return nil, &appconfig.ConfigError{Source: cfg.Path, Err: fmt.Errorf("model.data.model_id is required")}
	}

	var model providers.ChatModel
	switch backend(modelID) {
	case backendOpenAI:
		model = llamacpp.New(apiKey, cfg.Model.Data.APIBase, client)
	default:
		model = anthropic.New(apiKey, cfg.Model.Data.APIBase, client)
	}
	logging.LogEvent("model backend ready: provider=%s model=%s", model.Name(), ModelName(modelID))
	return model, nil
}

// ModelName strips the routing prefix from a model_id, yielding the name the
// backend expects.
func ModelName(modelID string) string {
	modelID = strings.TrimSpace(modelID)
	if idx := strings.Index(modelID, "/"); idx >= 0 {
		switch strings.ToLower(modelID[:idx]) {
		case backendAnthropic, backendOpenAI:
			return modelID[idx+1:]
		}
	}
	return modelID
}

func backend(modelID string) string {
	if strings.HasPrefix(strings.ToLower(modelID), backendOpenAI+"/") {
		return backendOpenAI
	}
	return backendAnthropic
}
