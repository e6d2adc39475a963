// Package session owns the state of one interactive conversation: the
// selected date context and the agent bound to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mwiater/compliance-agent/internal/agent"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/tools"
)

// Year bounds accepted for the date context.
const (
	MinYear = 2020
	MaxYear = 2030
)

// User-facing replies.
const (
	EmptyQuestionReply  = "Please enter a question about compliance."
	NotInitializedReply = "Please initialize the agent first by setting the date context."
	FailureHint         = "Try a simpler question or the model may be overloaded."
)

var (
	// ErrInvalidMonth is returned for months outside 1-12.
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	// ErrInvalidYear is returned for years outside MinYear-MaxYear.
	ErrInvalidYear = fmt.Errorf("year must be between %d and %d", MinYear, MaxYear)
)

// Factory builds the runner for a date context such as "March 2025".
type Factory func(period string) (agent.Runner, error)

// Session is created once per frontend connection and passed to every
// request handler for that connection.
type Session struct {
	build Factory

	mu     sync.Mutex
	runner agent.Runner
	period string
}

// New returns an uninitialized Session.
func New(build Factory) *Session {
	return &Session{build: build}
}

// FormatPeriod validates month and year and renders them as "January 2025".
func FormatPeriod(month, year int) (string, error) {
	if month < 1 || month > 12 {
		return "", ErrInvalidMonth
	}
	if year < MinYear || year > MaxYear {
		return "", ErrInvalidYear
	}
	return fmt.Sprintf("%s %d", time.Month(month).String(), year), nil
}

// Period returns the current date context, or "" before Initialize.
func (s *Session) Period() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// Initialized reports whether an agent is bound to the session.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner != nil
}

// Initialize binds a new agent for the given date context and returns a
// status line for the user.
func (s *Session) Initialize(month, year int) (string, error) {
	period, err := FormatPeriod(month, year)
	if err != nil {
		return "", err
	}
	runner, err := s.build(period)
	if err != nil {
		return "", fmt.Errorf("failed to initialize agent: %w", err)
	}

	s.mu.Lock()
	s.runner, s.period = runner, period
	s.mu.Unlock()

	logging.LogEvent("session initialized for %s", period)
	return fmt.Sprintf("Agent initialized for %s. You can now ask compliance questions!", period), nil
}

// Ask answers one question. It always returns text: failures become an
// error message, a hint and the compliance calendar.
func (s *Session) Ask(ctx context.Context, question string) string {
	s.mu.Lock()
	runner := s.runner
	s.mu.Unlock()

	if runner == nil {
		return NotInitializedReply
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return EmptyQuestionReply
	}

	answer, err := runner.Run(ctx, question)
	if err != nil {
		logging.LogEvent("session question failed: %v", err)
		return FallbackReply(err)
	}
	return answer
}

// Process initializes the session when needed (or when the date context
// changed) and then answers question. It returns a status line and the answer.
func (s *Session) Process(ctx context.Context, month, year int, question string) (string, string) {
	period, err := FormatPeriod(month, year)
	if err != nil {
		return "Error: " + err.Error(), ""
	}
	if !s.Initialized() || s.Period() != period {
		if _, err := s.Initialize(month, year); err != nil {
			return "Error: " + err.Error(), ""
		}
	}
	return "Agent Status: Ready for " + period, s.Ask(ctx, question)
}

// FallbackReply is the text shown when the agent fails.
func FallbackReply(err error) string {
	return fmt.Sprintf("Error: %v\n%s\n\nHere's the compliance calendar:\n%s", err, FailureHint, tools.CalendarText())
}
