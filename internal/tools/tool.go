// Package tools holds the closed set of tools the compliance agent may call
// and the registry that binds configured tool names to implementations.
package tools

import (
	"context"
	"sort"
)

const (
	// CalendarName is the canonical name for the compliance calendar tool.
	CalendarName = "get_compliance_calendar"
	// SearchName is the canonical name for the regulatory web search tool.
	SearchName = "compliance_web_search"
	// FinalAnswerName is the canonical name for the terminating answer tool.
	FinalAnswerName = "final_answer"
)

// Definition describes a tool to the model: its name, when to use it and a
// JSON schema for its arguments.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is a named, schema-described callable. Invoke receives arguments that
// have already been validated against Definition().Parameters.
type Tool interface {
	Definition() Definition
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// KnownTools returns the names every registry can resolve, sorted.
func KnownTools() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
