// internal/metrics/types.go
package metrics

import "time"

// ModelUsage is the aggregated usage of one model across a run.
type ModelUsage struct {
	ModelName      string                 `json:"model_name"`
	LastUpdatedUTC time.Time              `json:"last_updated_utc"`
	OverallStats   RunningAggregatedStats `json:"overall_stats"`
}

// RunningAggregatedStats stores the running statistical values for a set of metrics.
// It uses Welford's online algorithm for calculating mean and standard deviation.
type RunningAggregatedStats struct {
	TotalRequests int64 `json:"total_requests"`
	FailedCalls   int64 `json:"failed_calls"`

	LatencyMillis RunningStat `json:"latency_ms"`
	InputTokens   RunningStat `json:"input_tokens"`
	OutputTokens  RunningStat `json:"output_tokens"`
	ToolCalls     RunningStat `json:"tool_calls"`
}

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count int64   `json:"-"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"-"` // Sum of squares of differences from the current mean
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
}
