package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mwiater/compliance-agent/internal/tools"
)

// Suite is the on-disk test suite document.
type Suite struct {
	Tests []TestCase `json:"tests"`
}

// DefaultTestCases returns the built-in five-case battery.
func DefaultTestCases() []TestCase {
	return []TestCase{
		{
			ID:            "gst_requirements",
			Query:         "What are the GST requirements for my startup in New Zealand?",
			ExpectedTools: []string{tools.CalendarName},
			Category:      "gst",
			ExpectedTerms: []string{"GST", "registration", "$60,000", "15%"},
		},
		{
			ID:            "upcoming_deadlines",
			Query:         "What compliance deadlines are coming up in the next 3 months?",
			ExpectedTools: []string{tools.CalendarName},
			Category:      "deadlines",
			ExpectedTerms: []string{"deadline", "tax", "return"},
		},
		{
			ID:            "paye_obligations",
			Query:         "I am hiring my first employee. What PAYE and employment obligations do I have?",
			ExpectedTools: []string{tools.CalendarName},
			Category:      "employment",
			ExpectedTerms: []string{"PAYE", "employment agreement", "minimum wage"},
		},
		{
			ID:            "recent_regulatory_changes",
			Query:         "Have there been any recent changes to New Zealand tax rules that affect startups?",
			ExpectedTools: []string{tools.SearchName},
			Category:      "regulatory_updates",
			ExpectedTerms: []string{"ird.govt.nz", "tax"},
		},
		{
			ID:            "company_registration",
			Query:         "What do I need to do to register and maintain a company in New Zealand?",
			ExpectedTools: []string{tools.CalendarName},
			Category:      "registration",
			ExpectedTerms: []string{"Companies Office", "annual return"},
		},
	}
}

// LoadSuite reads a test suite document. An empty path yields the defaults.
func LoadSuite(path string) ([]TestCase, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTestCases(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading test suite: %w", err)
	}

	var suite Suite
	if err := json.Unmarshal(raw, &suite); err != nil {
		return nil, fmt.Errorf("error parsing test suite: %w", err)
	}
	if len(suite.Tests) == 0 {
		return nil, fmt.Errorf("test suite %s contains no tests", path)
	}
	if err := validateCases(suite.Tests); err != nil {
		return nil, fmt.Errorf("test suite %s: %w", path, err)
	}
	return suite.Tests, nil
}

// validateCases rejects cases without an id or query and duplicate ids.
func validateCases(cases []TestCase) error {
	seen := make(map[string]struct{}, len(cases))
	for i, tc := range cases {
		if strings.TrimSpace(tc.ID) == "" {
			return fmt.Errorf("test %d has no id", i+1)
		}
		if strings.TrimSpace(tc.Query) == "" {
			return fmt.Errorf("test %q has no query", tc.ID)
		}
		if _, dup := seen[tc.ID]; dup {
			return fmt.Errorf("duplicate test id %q", tc.ID)
		}
		seen[tc.ID] = struct{}{}
	}
	return nil
}
