package tools

import (
	"context"
	"fmt"
	"strings"
)

// FinalAnswerTool ends the agent loop. Its output is the answer itself.
type FinalAnswerTool struct{}

// NewFinalAnswerTool returns the final answer tool.
func NewFinalAnswerTool() *FinalAnswerTool { return &FinalAnswerTool{} }

// Definition describes the final answer tool to the model.
func (FinalAnswerTool) Definition() Definition {
	return Definition{
		Name:        FinalAnswerName,
		Description: "Provides a final answer to the given problem. Call this once you can answer the user's question.",
		Parameters: objectSchema(map[string]any{
			"answer": map[string]any{
				"type":        "string",
				"description": "The final answer to the problem",
			},
		}, "answer"),
	}
}

// Invoke returns the answer argument.
func (FinalAnswerTool) Invoke(_ context.Context, args map[string]any) (string, error) {
	answer, ok := args["answer"].(string)
	if !ok {
		return "", fmt.Errorf("'answer' argument must be a string")
	}
	return strings.TrimSpace(answer), nil
}
