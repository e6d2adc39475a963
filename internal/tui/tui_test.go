// internal/tui/tui_test.go
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mwiater/compliance-agent/internal/agent"
	"github.com/mwiater/compliance-agent/internal/session"
)

type stubRunner struct {
	period string
}

func (s *stubRunner) Run(_ context.Context, query string) (string, error) {
	return "GST for " + s.period + ": " + query, nil
}

func newTestSession(buildErr error) *session.Session {
	return session.New(func(period string) (agent.Runner, error) {
		if buildErr != nil {
			return nil, buildErr
		}
		return &stubRunner{period: period}, nil
	})
}

// TestChatFlow walks the model from date selection through one answered question.
func TestChatFlow(t *testing.T) {
	sess := newTestSession(nil)
	now := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	m := initialModel(context.Background(), sess, now)

	if out := m.View(); out != "Initializing..." {
		t.Fatalf("expected placeholder view before sizing, got %q", out)
	}
	_, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	if m.state != viewPeriod {
		t.Fatalf("expected period selector, got %v", m.state)
	}
	if got := m.monthList.SelectedItem().(monthItem).month; got != time.March {
		t.Fatalf("expected March preselected, got %v", got)
	}

	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = m2.(*model)
	if !m.isLoading || m.state != viewInitializing {
		t.Fatalf("expected initializing; got loading=%v state=%v", m.isLoading, m.state)
	}

	msg := initCmd(sess, 3, m.year)()
	done, ok := msg.(initDoneMsg)
	if !ok {
		t.Fatalf("expected initDoneMsg, got %T", msg)
	}
	m2, _ = m.Update(done)
	m = m2.(*model)
	if m.state != viewChat || m.isLoading {
		t.Fatalf("expected ready chat; got loading=%v state=%v", m.isLoading, m.state)
	}
	if !strings.Contains(m.status, "March 2025") {
		t.Fatalf("unexpected status %q", m.status)
	}

	m.textArea.SetValue("When is GST due?")
	m2, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = m2.(*model)
	if len(m.chatHistory) != 1 || m.chatHistory[0].Role != "user" {
		t.Fatalf("expected user message; history=%v", m.chatHistory)
	}
	if !m.isLoading {
		t.Fatal("expected loading after sending question")
	}
	if m.textArea.Value() != "" {
		t.Fatalf("expected input reset, got %q", m.textArea.Value())
	}

	reply := askCmd(context.Background(), sess, "When is GST due?")()
	m2, _ = m.Update(reply)
	m = m2.(*model)
	if m.isLoading {
		t.Fatal("expected not loading after answer")
	}
	if last := m.chatHistory[len(m.chatHistory)-1]; last.Role != "assistant" || !strings.Contains(last.Content, "March 2025") {
		t.Fatalf("unexpected answer %+v", last)
	}

	out := m.View()
	if !strings.Contains(out, "Agent:") || !strings.Contains(out, "You:") {
		t.Fatalf("expected roles in view output; got: %s", out)
	}
}

func TestEmptyQuestionIsIgnored(t *testing.T) {
	m := initialModel(context.Background(), newTestSession(nil), time.Now())
	_, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m.state = viewChat

	m.textArea.SetValue("   ")
	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = m2.(*model)
	if m.isLoading || len(m.chatHistory) != 0 {
		t.Fatalf("expected blank input to be ignored; loading=%v history=%v", m.isLoading, m.chatHistory)
	}
}

func TestYearSelectionIsClamped(t *testing.T) {
	m := initialModel(context.Background(), newTestSession(nil), time.Date(2040, time.June, 1, 0, 0, 0, 0, time.UTC))
	if m.year != session.MaxYear {
		t.Fatalf("expected year clamped to %d, got %d", session.MaxYear, m.year)
	}

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.year != session.MaxYear {
		t.Fatalf("expected year to stay at %d, got %d", session.MaxYear, m.year)
	}
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.year != session.MaxYear-1 {
		t.Fatalf("expected year %d, got %d", session.MaxYear-1, m.year)
	}
	if !strings.Contains(m.monthList.Title, "2029") {
		t.Fatalf("expected year in title, got %q", m.monthList.Title)
	}
}

func TestInitFailureReturnsToSelector(t *testing.T) {
	sess := newTestSession(errors.New("no api key"))
	m := initialModel(context.Background(), sess, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	_, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	msg := initCmd(sess, 1, 2025)()
	if _, ok := msg.(initErr); !ok {
		t.Fatalf("expected initErr, got %T", msg)
	}
	m2, _ := m.Update(msg)
	m = m2.(*model)
	if m.state != viewPeriod || m.err == nil {
		t.Fatalf("expected selector with error; state=%v err=%v", m.state, m.err)
	}
	if out := m.View(); !strings.Contains(out, "no api key") {
		t.Fatalf("expected error in view; got %s", out)
	}
}

func TestTabReturnsToDateSelection(t *testing.T) {
	m := initialModel(context.Background(), newTestSession(nil), time.Now())
	m.state = viewChat
	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m2.(*model).state != viewPeriod {
		t.Fatalf("expected period selector after tab, got %v", m2.(*model).state)
	}
}
