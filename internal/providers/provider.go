// internal/providers/provider.go

// Package providers defines the contract between the agent loop and the
// model backends. A backend turns a conversation plus tool definitions into
// one completion: assistant text, tool calls, or both.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Message roles understood by every backend.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage represents a single message in the agent conversation.
// Assistant messages may carry tool calls; tool messages carry the result
// of exactly one call, identified by ToolCallID.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolDefinition defines the structure of a tool that can be invoked by a provider.
// It includes the tool's name, a description of its purpose, and a JSON schema for its parameters.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// CompletionRequest encapsulates all the information needed for one model call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	History      []ChatMessage
	Tools        []ToolDefinition
	MaxTokens    int
	Temperature  float64
}

// Completion is the model's reply to a CompletionRequest.
type Completion struct {
	Model        string
	Content      string
	ToolCalls    []ToolCall
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// ChatModel is the interface that all model backends implement.
type ChatModel interface {
	// Name identifies the backend in logs.
	Name() string
	// Complete sends the conversation and returns the model's next turn.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	// Close cleans up any resources used by the backend.
	Close() error
}

// StatusError is returned when a backend answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode), strings.TrimSpace(e.Body))
}

// Overloaded reports whether the backend signalled rate limiting or overload.
func (e *StatusError) Overloaded() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		return true
	}
	return false
}

// DecodeError is returned when a backend response cannot be interpreted.
type DecodeError struct {
	Provider string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
