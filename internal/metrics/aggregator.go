// internal/metrics/aggregator.go
// Package metrics records per-model call statistics for a process run.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/providers"
)

// Aggregator collects usage statistics per model.
type Aggregator struct {
	mutex   sync.Mutex
	metrics map[string]*ModelUsage
	now     func() time.Time
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		metrics: make(map[string]*ModelUsage),
		now:     time.Now,
	}
}

// Record adds one completed call for model.
func (a *Aggregator) Record(model string, comp providers.Completion, latency time.Duration) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	usage := a.entry(model)
	stats := &usage.OverallStats
	stats.TotalRequests++
	updateRunningStat(&stats.LatencyMillis, float64(latency.Milliseconds()))
	updateRunningStat(&stats.InputTokens, float64(comp.InputTokens))
	updateRunningStat(&stats.OutputTokens, float64(comp.OutputTokens))
	updateRunningStat(&stats.ToolCalls, float64(len(comp.ToolCalls)))
}

// RecordFailure counts a call that returned an error.
func (a *Aggregator) RecordFailure(model string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	usage := a.entry(model)
	usage.OverallStats.TotalRequests++
	usage.OverallStats.FailedCalls++
	logging.LogEvent("[METRICS] failed call recorded for model %s", model)
}

func (a *Aggregator) entry(model string) *ModelUsage {
	usage, exists := a.metrics[model]
	if !exists {
		usage = &ModelUsage{ModelName: model}
		a.metrics[model] = usage
	}
	usage.LastUpdatedUTC = a.now().UTC()
	return usage
}

// Snapshot returns a copy of the collected usage sorted by model name.
func (a *Aggregator) Snapshot() []ModelUsage {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	out := make([]ModelUsage, 0, len(a.metrics))
	for _, m := range a.metrics {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelName < out[j].ModelName })
	return out
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	rs.Sum += value
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}

// StdDev returns the sample standard deviation, or 0 for fewer than two values.
func (rs RunningStat) StdDev() float64 {
	if rs.Count < 2 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count-1))
}
