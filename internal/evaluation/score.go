package evaluation

import (
	"strings"
	"time"

	"github.com/mwiater/compliance-agent/internal/tools"
)

const (
	minResponseLength = 50
	maxResponseTime   = 30 * time.Second
)

// Score grades one successful response. It is a pure function of its
// arguments: the same inputs always produce the same Result.
//
// Criteria: +1 response longer than 50 characters, +1 final_answer among
// toolsUsed, +2 any expected tool among toolsUsed, +1 elapsed under 30s.
// The total is capped at MaxQualityScore.
func Score(tc TestCase, response string, elapsed time.Duration, toolsUsed []string, timestamp time.Time) Result {
	used := append([]string{}, toolsUsed...)
	length := len([]rune(response))
	hasFinal := contains(used, tools.FinalAnswerName)
	usedExpected := false
	for _, expected := range tc.ExpectedTools {
		if contains(used, expected) {
			usedExpected = true
			break
		}
	}

	score := 0
	if length > minResponseLength {
		score++
	}
	if hasFinal {
		score++
	}
	if usedExpected {
		score += 2
	}
	if elapsed < maxResponseTime {
		score++
	}
	if score > MaxQualityScore {
		score = MaxQualityScore
	}

	return Result{
		TestID:               tc.ID,
		Category:             tc.Category,
		Query:                tc.Query,
		Response:             response,
		ResponseLength:       length,
		ExecutionTimeSeconds: elapsed.Seconds(),
		ToolsUsed:            used,
		ExpectedTools:        append([]string{}, tc.ExpectedTools...),
		UsedExpectedTools:    usedExpected,
		HasFinalAnswer:       hasFinal,
		QualityScore:         score,
		MaxQualityScore:      MaxQualityScore,
		MatchedTerms:         matchTerms(response, tc.ExpectedTerms),
		Timestamp:            timestamp,
	}
}

// degraded builds the result recorded when the agent call fails.
func degraded(tc TestCase, err error, kind string, elapsed time.Duration, timestamp time.Time) Result {
	msg := err.Error()
	return Result{
		TestID:               tc.ID,
		Category:             tc.Category,
		Query:                tc.Query,
		Response:             "ERROR: " + msg,
		ExecutionTimeSeconds: elapsed.Seconds(),
		ToolsUsed:            []string{},
		ExpectedTools:        append([]string{}, tc.ExpectedTools...),
		QualityScore:         0,
		MaxQualityScore:      MaxQualityScore,
		Timestamp:            timestamp,
		Error:                msg,
		ErrorKind:            kind,
	}
}

// matchTerms returns the expected terms found in response, case-insensitively.
func matchTerms(response string, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	lower := strings.ToLower(response)
	var matched []string
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			matched = append(matched, term)
		}
	}
	return matched
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
