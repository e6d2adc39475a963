package evaluation

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// WriteReport prints the console summary of a run. path is where the
// summary was saved, or empty when it was not saved.
func WriteReport(w io.Writer, s Summary, path string) {
	m := s.Metrics
	bold := color.New(color.Bold)
	rate := color.New(color.FgGreen)
	if m.SuccessfulTests < m.TotalTests {
		rate = color.New(color.FgYellow)
	}
	if m.TotalTests > 0 && m.SuccessfulTests == 0 {
		rate = color.New(color.FgRed)
	}

	bold.Fprintln(w, "\nEvaluation complete!")
	if path != "" {
		fmt.Fprintf(w, "Results saved to: %s\n", path)
	}
	fmt.Fprintf(w, "Run ID: %s\n", s.Metadata.RunID)

	bold.Fprintln(w, "\nSummary:")
	rate.Fprintf(w, "  Tests: %d/%d\n", m.SuccessfulTests, m.TotalTests)
	rate.Fprintf(w, "  Success Rate: %.1f%%\n", m.SuccessRate*100)
	fmt.Fprintf(w, "  Avg Quality: %.1f/%d\n", m.AverageQualityScore, m.MaxQualityScore)
	fmt.Fprintf(w, "  Avg Time: %.1fs\n", m.AverageExecutionTime)

	if s.CategoryBreakdown != nil && s.CategoryBreakdown.Len() > 0 {
		bold.Fprintln(w, "\nCategory Breakdown:")
		for pair := s.CategoryBreakdown.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(w, "  %s: %.1f/%d quality, %.1fs avg\n", pair.Key, pair.Value.AvgQuality, MaxQualityScore, pair.Value.AvgTime)
		}
	}

	if len(s.ModelUsage) == 0 {
		return
	}
	bold.Fprintln(w, "\nModel Usage:")
	for _, u := range s.ModelUsage {
		st := u.OverallStats
		fmt.Fprintf(w, "  %s: %d calls (%d failed), %.0fms avg, %.0f input / %.0f output tokens\n",
			u.ModelName, st.TotalRequests, st.FailedCalls, st.LatencyMillis.Mean, st.InputTokens.Sum, st.OutputTokens.Sum)
	}
}
