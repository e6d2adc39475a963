package evaluation

import (
	"time"

	"github.com/mwiater/compliance-agent/internal/metrics"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	// MaxQualityScore is the declared ceiling of every quality score. The
	// scoring criteria can reach at most this value and usually less.
	MaxQualityScore = 5
	// EvaluationVersion identifies the summary document layout.
	EvaluationVersion = "1.0"
	// DefaultAgentName labels summaries when no agent name is configured.
	DefaultAgentName = "NZ_Compliance_Agent"
)

// Tool detection sources recorded on each result.
const (
	DetectionTrace     = "trace"
	DetectionHeuristic = "heuristic"
)

// TestCase is one query in the evaluation battery.
type TestCase struct {
	ID            string   `json:"id"`
	Query         string   `json:"query"`
	ExpectedTools []string `json:"expected_tools"`
	Category      string   `json:"category"`
	ExpectedTerms []string `json:"expected_terms,omitempty"`
}

// Result is the scored outcome of one TestCase. Degraded results carry
// Error and a zero QualityScore.
type Result struct {
	TestID               string    `json:"test_id"`
	Category             string    `json:"category"`
	Query                string    `json:"query"`
	Response             string    `json:"response"`
	ResponseLength       int       `json:"response_length"`
	ExecutionTimeSeconds float64   `json:"execution_time"`
	ToolsUsed            []string  `json:"tools_used"`
	ToolsDetection       string    `json:"tools_detection,omitempty"`
	ExpectedTools        []string  `json:"expected_tools"`
	UsedExpectedTools    bool      `json:"used_expected_tools"`
	HasFinalAnswer       bool      `json:"has_final_answer"`
	QualityScore         int       `json:"quality_score"`
	MaxQualityScore      int       `json:"max_quality_score"`
	MatchedTerms         []string  `json:"matched_terms,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
	Error                string    `json:"error,omitempty"`
	ErrorKind            string    `json:"error_kind,omitempty"`
}

// Failed reports whether the result is a degraded one.
func (r Result) Failed() bool { return r.Error != "" }

// CategorySummary folds the results sharing a category.
type CategorySummary struct {
	Count        int     `json:"count"`
	TotalQuality int     `json:"total_quality"`
	TotalTime    float64 `json:"total_time"`
	AvgQuality   float64 `json:"avg_quality"`
	AvgTime      float64 `json:"avg_time"`
}

// Metrics are the headline numbers of a run.
type Metrics struct {
	TotalTests           int     `json:"total_tests"`
	SuccessfulTests      int     `json:"successful_tests"`
	SuccessRate          float64 `json:"success_rate"`
	AverageQualityScore  float64 `json:"average_quality_score"`
	AverageExecutionTime float64 `json:"average_execution_time"`
	MaxQualityScore      int     `json:"max_quality_score"`
}

// Metadata identifies a run.
type Metadata struct {
	Timestamp         time.Time `json:"timestamp"`
	RunID             string    `json:"run_id"`
	AgentName         string    `json:"agent_name"`
	EvaluationVersion string    `json:"evaluation_version"`
}

// Summary is the immutable outcome of a run and the unit that is persisted.
// CategoryBreakdown keeps categories in first-seen order.
type Summary struct {
	Metadata          Metadata                                        `json:"evaluation_metadata"`
	Metrics           Metrics                                         `json:"summary_metrics"`
	CategoryBreakdown *orderedmap.OrderedMap[string, CategorySummary] `json:"category_breakdown"`
	DetailedResults   []Result                                        `json:"detailed_results"`
	ModelUsage        []metrics.ModelUsage                            `json:"model_usage,omitempty"`
}
