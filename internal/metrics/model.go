// internal/metrics/model.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/compliance-agent/internal/providers"
)

// Model is a decorator that wraps a ChatModel to record usage.
type Model struct {
	wrapped    providers.ChatModel
	aggregator *Aggregator
}

// NewModel wraps model so every Complete call is recorded in aggregator.
func NewModel(model providers.ChatModel, aggregator *Aggregator) *Model {
	return &Model{wrapped: model, aggregator: aggregator}
}

// Name passes the call through to the wrapped model.
func (m *Model) Name() string { return m.wrapped.Name() }

// Complete times the wrapped call and records its usage.
func (m *Model) Complete(ctx context.Context, req providers.CompletionRequest) (providers.Completion, error) {
	start := time.Now()
	comp, err := m.wrapped.Complete(ctx, req)
	if m.aggregator == nil {
		return comp, err
	}
	if err != nil {
		m.aggregator.RecordFailure(req.Model)
		return comp, err
	}
	name := comp.Model
	if name == "" {
		name = req.Model
	}
	m.aggregator.Record(name, comp, time.Since(start))
	return comp, nil
}

// Close passes the call through to the wrapped model.
func (m *Model) Close() error { return m.wrapped.Close() }
