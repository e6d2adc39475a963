// internal/providers/llamacpp/provider.go
// Package llamacpp provides a ChatModel backed by an OpenAI-compatible
// /v1/chat/completions endpoint such as llama.cpp's server.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/providers"
)

const (
	// DefaultBaseURL is where a local llama.cpp server listens by default.
	DefaultBaseURL = "http://localhost:8080"
	providerName   = "llama.cpp"
	defaultTimeout = 300 * time.Second
)

// Provider implements providers.ChatModel using OpenAI-compatible chat completions.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New constructs a Provider. An empty baseURL selects DefaultBaseURL and a
// nil client gets a default timeout. apiKey is sent as a bearer token when set.
func New(apiKey, baseURL string, client *http.Client) *Provider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{
			Timeout:   defaultTimeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		}
	}
	return &Provider{
		client:  client,
		baseURL: strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1"),
		apiKey:  apiKey,
	}
}

// Name identifies the backend.
func (p *Provider) Name() string { return providerName }

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

// Complete issues a single non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	messages := sanitizeMessages(req.History)
	openAIMessages := toOpenAIMessages(req.SystemPrompt, messages)

	payload := map[string]any{
		"model":    req.Model,
		"messages": openAIMessages,
		"stream":   false,
	}
	applyParameters(payload, req)
	if tools := toOpenAITools(req.Tools); len(tools) > 0 {
		payload["tools"] = tools
		payload["tool_choice"] = "auto"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.Completion{}, err
	}
	logging.LogRequest("AGENT->LLM", p.hostIdentifier(), req.Model, "", body)

	endpoint := p.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return providers.Completion{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(p.apiKey) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.Completion{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Completion{}, err
	}
	logging.LogRequest("LLM->AGENT", p.hostIdentifier(), req.Model, "", raw)

	if resp.StatusCode != http.StatusOK {
		return providers.Completion{}, &providers.StatusError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return parseCompletion(raw, req.Model)
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role      string           `json:"role"`
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

func parseCompletion(raw []byte, model string) (providers.Completion, error) {
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return providers.Completion{}, &providers.DecodeError{Provider: providerName, Err: err}
	}
	if len(parsed.Choices) == 0 {
		return providers.Completion{}, &providers.DecodeError{Provider: providerName, Err: fmt.Errorf("chat response contained no choices")}
	}

	choice := parsed.Choices[0]
	out := providers.Completion{
		Model:        parsed.Model,
		Content:      strings.TrimSpace(choice.Message.Content),
		StopReason:   choice.FinishReason,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}
	if out.Model == "" {
		out.Model = model
	}
	for i, call := range choice.Message.ToolCalls {
		args := map[string]any{}
		if argText := strings.TrimSpace(call.Function.Arguments); argText != "" {
			if err := json.Unmarshal([]byte(argText), &args); err != nil {
				return providers.Completion{}, &providers.DecodeError{Provider: providerName, Err: fmt.Errorf("tool call %s arguments: %w", call.Function.Name, err)}
			}
		}
		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, providers.ToolCall{ID: id, Name: call.Function.Name, Arguments: args})
	}
	return out, nil
}

func applyParameters(payload map[string]any, req providers.CompletionRequest) {
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	payload["temperature"] = req.Temperature
}

// sanitizeMessages drops empty user turns; assistant turns survive when they
// carry tool calls.
func sanitizeMessages(messages []providers.ChatMessage) []providers.ChatMessage {
	if len(messages) == 0 {
		return []providers.ChatMessage{}
	}
	sanitized := make([]providers.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		if role == "" {
			role = providers.RoleUser
		}
		msg.Role = role
		msg.Content = strings.TrimSpace(msg.Content)
		if role == providers.RoleUser && msg.Content == "" {
			continue
		}
		if role == providers.RoleAssistant && msg.Content == "" && len(msg.ToolCalls) == 0 {
			continue
		}
		sanitized = append(sanitized, msg)
	}
	return sanitized
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

func toOpenAIMessages(systemPrompt string, messages []providers.ChatMessage) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		out = append(out, openAIMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range messages {
		m := openAIMessage{Role: msg.Role, Content: msg.Content}
		switch msg.Role {
		case providers.RoleAssistant:
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Arguments)
				if err != nil || call.Arguments == nil {
					args = []byte("{}")
				}
				tc := openAIToolCall{ID: call.ID, Type: "function"}
				tc.Function.Name = call.Name
				tc.Function.Arguments = string(args)
				m.ToolCalls = append(m.ToolCalls, tc)
			}
		case providers.RoleTool:
			m.ToolCallID = msg.ToolCallID
			m.Name = msg.ToolName
		}
		out = append(out, m)
	}
	return out
}

func toOpenAITools(defs []providers.ToolDefinition) []map[string]any {
	if len(defs) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		params := def.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  params,
			},
		})
	}
	return out
}

// hostIdentifier returns a short label for log lines.
func (p *Provider) hostIdentifier() string {
	if url := strings.TrimSpace(p.baseURL); url != "" {
		return url
	}
	return "llama.cpp-host"
}
