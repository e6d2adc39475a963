package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/compliance-agent/internal/agent"
)

type fakeRunner struct {
	period  string
	answer  string
	err     error
	queries []string
}

func (f *fakeRunner) Run(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return "", f.err
	}
	return f.answer + " (" + f.period + ")", nil
}

func recordingFactory(built *[]*fakeRunner, err error) Factory {
	return func(period string) (agent.Runner, error) {
		if err != nil {
			return nil, err
		}
		r := &fakeRunner{period: period, answer: "answer"}
		*built = append(*built, r)
		return r, nil
	}
}

func TestFormatPeriod(t *testing.T) {
	got, err := FormatPeriod(3, 2025)
	require.NoError(t, err)
	assert.Equal(t, "March 2025", got)

	for _, tc := range []struct {
		month, year int
		want        error
	}{
		{0, 2025, ErrInvalidMonth},
		{13, 2025, ErrInvalidMonth},
		{6, 2019, ErrInvalidYear},
		{6, 2031, ErrInvalidYear},
	} {
		_, err := FormatPeriod(tc.month, tc.year)
		assert.ErrorIs(t, err, tc.want, "%d/%d", tc.month, tc.year)
	}

	got, err = FormatPeriod(12, MaxYear)
	require.NoError(t, err)
	assert.Equal(t, "December 2030", got)
}

func TestInitializeAndAsk(t *testing.T) {
	var built []*fakeRunner
	s := New(recordingFactory(&built, nil))

	assert.Equal(t, NotInitializedReply, s.Ask(context.Background(), "hello"))

	status, err := s.Initialize(10, 2026)
	require.NoError(t, err)
	assert.Equal(t, "Agent initialized for October 2026. You can now ask compliance questions!", status)
	assert.Equal(t, "October 2026", s.Period())

	assert.Equal(t, EmptyQuestionReply, s.Ask(context.Background(), "   "))
	assert.Equal(t, "answer (October 2026)", s.Ask(context.Background(), "  When is GST due?  "))
	require.Len(t, built, 1)
	assert.Equal(t, []string{"When is GST due?"}, built[0].queries)
}

func TestInitializeErrors(t *testing.T) {
	var built []*fakeRunner
	s := New(recordingFactory(&built, nil))
	_, err := s.Initialize(13, 2025)
	assert.ErrorIs(t, err, ErrInvalidMonth)
	assert.False(t, s.Initialized())

	failing := New(recordingFactory(&built, errors.New("no key")))
	_, err = failing.Initialize(1, 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize agent: no key")
	assert.Empty(t, failing.Period())
}

func TestAskFallsBackOnFailure(t *testing.T) {
	s := New(func(period string) (agent.Runner, error) {
		return &fakeRunner{err: &agent.CallError{Kind: agent.KindOverloaded, Step: 1, Err: errors.New("529 overloaded")}}, nil
	})
	_, err := s.Initialize(3, 2025)
	require.NoError(t, err)

	reply := s.Ask(context.Background(), "What is due?")
	assert.True(t, strings.HasPrefix(reply, "Error: agent step 1: overloaded: 529 overloaded"))
	assert.Contains(t, reply, FailureHint)
	assert.Contains(t, reply, "NEW ZEALAND STARTUP COMPLIANCE CALENDAR")
}

func TestProcess(t *testing.T) {
	var built []*fakeRunner
	s := New(recordingFactory(&built, nil))
	ctx := context.Background()

	status, answer := s.Process(ctx, 0, 2025, "q")
	assert.Equal(t, "Error: month must be between 1 and 12", status)
	assert.Empty(t, answer)
	assert.Empty(t, built)

	status, answer = s.Process(ctx, 3, 2025, "q")
	assert.Equal(t, "Agent Status: Ready for March 2025", status)
	assert.Equal(t, "answer (March 2025)", answer)

	_, _ = s.Process(ctx, 3, 2025, "again")
	assert.Len(t, built, 1, "same period reuses the agent")

	status, answer = s.Process(ctx, 4, 2025, "q")
	assert.Equal(t, "Agent Status: Ready for April 2025", status)
	assert.Equal(t, "answer (April 2025)", answer)
	assert.Len(t, built, 2)

	_, answer = s.Process(ctx, 4, 2025, "")
	assert.Equal(t, EmptyQuestionReply, answer)
}
