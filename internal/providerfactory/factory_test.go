// internal/providerfactory/factory_test.go
package providerfactory

import (
	"testing"

	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/providers/anthropic"
	"github.com/mwiater/compliance-agent/internal/providers/llamacpp"
)

func agentConfig(modelID string) *appconfig.AgentConfig {
	cfg := &appconfig.AgentConfig{Tools: []string{"final_answer"}, MaxSteps: 6}
	cfg.Model.Data.ModelID = modelID
	return cfg
}

func TestNewErrorsOnNilConfig(t *testing.T) {
	if _, err := New(nil, "", nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewRequiresModelID(t *testing.T) {
	_, err := New(agentConfig(" "), "", nil)
	if !appconfig.IsConfigError(err) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestNewDefaultsToAnthropic(t *testing.T) {
	for _, id := range []string{"anthropic/claude-sonnet-4-5", "claude-sonnet-4-5"} {
		model, err := New(agentConfig(id), "key", nil)
		if err != nil {
			t.Fatalf("New(%q) returned error: %v", id, err)
		}
		if _, ok := model.(*anthropic.Provider); !ok {
			t.Fatalf("expected *anthropic.Provider for %q, got %T", id, model)
		}
	}
}

func TestNewSelectsOpenAICompatible(t *testing.T) {
	model, err := New(agentConfig("openai/qwen2.5"), "", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := model.(*llamacpp.Provider); !ok {
		t.Fatalf("expected *llamacpp.Provider, got %T", model)
	}
}

func TestModelName(t *testing.T) {
	cases := map[string]string{
		"anthropic/claude-sonnet-4-5": "claude-sonnet-4-5",
		"openai/qwen2.5":              "qwen2.5",
		"claude-3-haiku":              "claude-3-haiku",
		"org/custom-model":            "org/custom-model",
	}
	for in, want := range cases {
		if got := ModelName(in); got != want {
			t.Fatalf("ModelName(%q) = %q, want %q", in, got, want)
		}
	}
}
