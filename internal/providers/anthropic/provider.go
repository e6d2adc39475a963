// internal/providers/anthropic/provider.go
// Package anthropic provides a ChatModel backed by the Anthropic Messages API.
package anthropic

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
	// DefaultBaseURL is the public Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	providerName   = "anthropic"
	defaultTimeout = 300 * time.Second
)

// Provider implements providers.ChatModel using the Messages API.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New constructs a Provider. An empty baseURL selects the public endpoint
// and a nil client gets a default timeout.
func New(apiKey, baseURL string, client *http.Client) *Provider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Provider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name identifies the backend.
func (p *Provider) Name() string { return providerName }

// Close releases any resources held by the provider.
func (p *Provider) Close() error { return nil }

type messagesRequest struct {
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	System      string         `json:"system,omitempty"`
	Messages    []messageParam `json:"messages"`
	Tools       []toolParam    `json:"tools,omitempty"`
}

type messageParam struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type toolParam struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type messagesResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete issues one Messages API call.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	payload := messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.SystemPrompt,
		Messages:    toMessageParams(req.History),
		Tools:       toToolParams(req.Tools),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return providers.Completion{}, err
	}
	logging.LogRequest("AGENT->LLM", providerName, req.Model, "", body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return providers.Completion{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.Completion{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Completion{}, err
	}
	logging.LogRequest("LLM->AGENT", providerName, req.Model, "", raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providers.Completion{}, &providers.StatusError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return providers.Completion{}, &providers.DecodeError{Provider: providerName, Err: err}
	}

	out := providers.Completion{
		Model:        parsed.Model,
		StopReason:   parsed.StopReason,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	var text []string
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			if strings.TrimSpace(block.Text) != "" {
				text = append(text, block.Text)
			}
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 && string(block.Input) != "null" {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return providers.Completion{}, &providers.DecodeError{Provider: providerName, Err: fmt.Errorf("tool_use %s input: %w", block.Name, err)}
				}
			}
			out.ToolCalls = append(out.ToolCalls, providers.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	out.Content = strings.Join(text, "\n")
	return out, nil
}

// toMessageParams converts the conversation into Messages API turns. Tool
// results become user turns, and consecutive results share one turn.
func toMessageParams(history []providers.ChatMessage) []messageParam {
	out := make([]messageParam, 0, len(history))
	for _, msg := range history {
		var role string
		var blocks []contentBlock
		switch msg.Role {
		case providers.RoleAssistant:
			role = "assistant"
			if strings.TrimSpace(msg.Content) != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, contentBlock{Type: "tool_use", ID: call.ID, Name: call.Name, Input: input})
			}
		case providers.RoleTool:
			role = "user"
			blocks = append(blocks, contentBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content})
		default:
			role = "user"
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
		}
		if len(blocks) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, messageParam{Role: role, Content: blocks})
	}
	return out
}

func toToolParams(defs []providers.ToolDefinition) []toolParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]toolParam, 0, len(defs))
	for _, def := range defs {
		schema := def.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, toolParam{Name: def.Name, Description: def.Description, InputSchema: schema})
	}
	return out
}
