package metrics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/compliance-agent/internal/providers"
)

type fixedModel struct {
	replies []providers.Completion
	errs    []error
	calls   int
	closed  bool
}

func (f *fixedModel) Name() string { return "fixed" }
func (f *fixedModel) Close() error {
	f.closed = true
	return nil
}

func (f *fixedModel) Complete(context.Context, providers.CompletionRequest) (providers.Completion, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return providers.Completion{}, f.errs[i]
	}
	return f.replies[i], nil
}

func TestUpdateRunningStat(t *testing.T) {
	var rs RunningStat
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		updateRunningStat(&rs, v)
	}
	assert.EqualValues(t, 8, rs.Count)
	assert.InDelta(t, 5.0, rs.Mean, 1e-9)
	assert.Equal(t, 2.0, rs.Min)
	assert.Equal(t, 9.0, rs.Max)
	assert.Equal(t, 40.0, rs.Sum)
	assert.InDelta(t, math.Sqrt(32.0/7.0), rs.StdDev(), 1e-9)

	assert.Zero(t, RunningStat{Count: 1}.StdDev())
}

func TestModelRecordsUsage(t *testing.T) {
	inner := &fixedModel{
		replies: []providers.Completion{
			{Model: "claude", InputTokens: 100, OutputTokens: 20, ToolCalls: []providers.ToolCall{{Name: "x"}}},
			{},
			{InputTokens: 300, OutputTokens: 40},
		},
		errs: []error{nil, errors.New("overloaded"), nil},
	}
	agg := NewAggregator()
	agg.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	model := NewModel(inner, agg)

	_, err := model.Complete(context.Background(), providers.CompletionRequest{Model: "claude"})
	require.NoError(t, err)
	_, err = model.Complete(context.Background(), providers.CompletionRequest{Model: "claude"})
	require.Error(t, err)
	_, err = model.Complete(context.Background(), providers.CompletionRequest{Model: "claude"})
	require.NoError(t, err)

	snap := agg.Snapshot()
	require.Len(t, snap, 1)
	stats := snap[0].OverallStats
	assert.Equal(t, "claude", snap[0].ModelName)
	assert.EqualValues(t, 3, stats.TotalRequests)
	assert.EqualValues(t, 1, stats.FailedCalls)
	assert.Equal(t, 200.0, stats.InputTokens.Mean)
	assert.Equal(t, 60.0, stats.OutputTokens.Sum)
	assert.Equal(t, 1.0, stats.ToolCalls.Max)
	assert.Equal(t, 2025, snap[0].LastUpdatedUTC.Year())

	assert.Equal(t, "fixed", model.Name())
	require.NoError(t, model.Close())
	assert.True(t, inner.closed)
}

func TestSnapshotIsSortedCopy(t *testing.T) {
	agg := NewAggregator()
	agg.Record("b", providers.Completion{}, time.Millisecond)
	agg.Record("a", providers.Completion{}, time.Millisecond)

	snap := agg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].ModelName)

	snap[0].OverallStats.TotalRequests = 99
	assert.EqualValues(t, 1, agg.Snapshot()[0].OverallStats.TotalRequests)
}
