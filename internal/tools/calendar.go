package tools

import "context"

// complianceCalendar covers the 2024/2025 tax year.
const complianceCalendar = `NEW ZEALAND STARTUP COMPLIANCE CALENDAR

ANNUAL REQUIREMENTS:
- Annual Return: Due by anniversary of incorporation date
- Income Tax Return: Due 7 April (or extension date if applicable)
- Financial Statements: Must be completed within 5 months of balance date

ONGOING REQUIREMENTS (if applicable):
- GST Returns:
  - Monthly (if turnover >$24M)
  - 2-monthly (if turnover $500K-$24M)
  - 6-monthly (if turnover <$500K)
- PAYE Returns: Monthly (if employing staff)
- Provisional Tax: Payments due 28 Aug, 15 Jan, 7 May

EMPLOYMENT COMPLIANCE (if hiring):
- Employment agreements within first day of work
- Holiday and leave entitlements
- Health and safety requirements
- Minimum wage compliance

KEY THRESHOLDS:
- GST Registration: Required if turnover >$60,000
- PAYE: Required when paying employees/contractors >$200
- Company Registration: Required before starting business operations

IMPORTANT DATES 2024/2025:
- 28 August 2024: Provisional tax payment due
- 15 January 2025: Provisional tax payment due
- 7 April 2025: Income tax returns due
- 7 May 2025: Provisional tax payment due`

// CalendarTool returns the static compliance calendar. It performs no I/O.
type CalendarTool struct{}

// NewCalendarTool returns the calendar tool.
func NewCalendarTool() *CalendarTool { return &CalendarTool{} }

// Definition describes the calendar tool to the model.
func (CalendarTool) Definition() Definition {
	return Definition{
		Name:        CalendarName,
		Description: "Get key compliance calendar dates and deadlines for New Zealand startups. Returns important compliance deadlines and requirements.",
		Parameters:  objectSchema(map[string]any{}),
	}
}

// Invoke returns the calendar text.
func (CalendarTool) Invoke(context.Context, map[string]any) (string, error) {
	return complianceCalendar, nil
}

// CalendarText exposes the calendar for fallback replies outside the agent loop.
func CalendarText() string { return complianceCalendar }
