package evaluation

import (
	"strings"

	"github.com/mwiater/compliance-agent/internal/tools"
)

// InferToolsUsed guesses which tools produced a response from markers in
// its text. It is an approximation with no ground truth and is only used
// for runners that cannot report a trace.
func InferToolsUsed(response string) []string {
	lower := strings.ToLower(response)
	used := []string{}
	if strings.Contains(lower, "compliance calendar") {
		used = append(used, tools.CalendarName)
	}
	if strings.Contains(lower, "search") || strings.Contains(lower, "recent") {
		used = append(used, tools.SearchName)
	}
	if strings.TrimSpace(response) != "" {
		used = append(used, tools.FinalAnswerName)
	}
	return used
}
