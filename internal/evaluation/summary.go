package evaluation

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Summarize folds results into a Summary. Averages over zero items are 0.
func Summarize(results []Result, meta Metadata) Summary {
	detailed := make([]Result, len(results))
	copy(detailed, results)

	metrics := Metrics{TotalTests: len(detailed), MaxQualityScore: MaxQualityScore}
	var totalQuality int
	var totalTime float64
	breakdown := orderedmap.New[string, CategorySummary]()

	for _, r := range detailed {
		if !r.Failed() {
			metrics.SuccessfulTests++
		}
		totalQuality += r.QualityScore
		totalTime += r.ExecutionTimeSeconds

		cat, _ := breakdown.Get(r.Category)
		cat.Count++
		cat.TotalQuality += r.QualityScore
		cat.TotalTime += r.ExecutionTimeSeconds
		breakdown.Set(r.Category, cat)
	}

	for pair := breakdown.Oldest(); pair != nil; pair = pair.Next() {
		cat := pair.Value
		cat.AvgQuality = ratio(float64(cat.TotalQuality), cat.Count)
		cat.AvgTime = ratio(cat.TotalTime, cat.Count)
		pair.Value = cat
	}

	metrics.SuccessRate = ratio(float64(metrics.SuccessfulTests), metrics.TotalTests)
	metrics.AverageQualityScore = ratio(float64(totalQuality), metrics.TotalTests)
	metrics.AverageExecutionTime = ratio(totalTime, metrics.TotalTests)

	if meta.EvaluationVersion == "" {
		meta.EvaluationVersion = EvaluationVersion
	}
	if meta.AgentName == "" {
		meta.AgentName = DefaultAgentName
	}

	return Summary{
		Metadata:          meta,
		Metrics:           metrics,
		CategoryBreakdown: breakdown,
		DetailedResults:   detailed,
	}
}

func ratio(total float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
