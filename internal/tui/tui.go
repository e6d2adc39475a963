// internal/tui/tui.go
// Package tui provides the terminal chat frontend for the compliance agent.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mwiater/compliance-agent/internal/session"
)

// viewState represents the current screen.
type viewState int

const (
	// viewPeriod is the date context selector.
	viewPeriod viewState = iota
	// viewInitializing waits for the agent to be built.
	viewInitializing
	// viewChat is the question and answer screen.
	viewChat
)

// chatMessage is one line of the visible transcript.
type chatMessage struct {
	Role    string
	Content string
}

// monthItem is a selectable month in the date context list.
type monthItem struct {
	month time.Month
}

// Title returns the month name.
func (i monthItem) Title() string { return i.month.String() }

// Description returns the month number.
func (i monthItem) Description() string { return fmt.Sprintf("Month %d", int(i.month)) }

// FilterValue returns the month name, used for filtering.
func (i monthItem) FilterValue() string { return i.month.String() }

// initDoneMsg is sent once the session has bound an agent.
type initDoneMsg struct{ status string }

// initErr is sent when the session could not be initialized.
type initErr struct{ error }

// answerMsg carries the reply to the last question.
type answerMsg string

// tickMsg drives the elapsed timer while a request is in flight.
type tickMsg time.Time

// model is the Bubble Tea model for the chat frontend.
type model struct {
	ctx              context.Context
	sess             *session.Session
	state            viewState
	isLoading        bool
	err              error
	status           string
	year             int
	monthList        list.Model
	textArea         textarea.Model
	viewport         viewport.Model
	spinner          spinner.Model
	chatHistory      []chatMessage
	width, height    int
	requestStartTime time.Time
}

// initialModel creates the model with the month list positioned on now.
func initialModel(ctx context.Context, sess *session.Session, now time.Time) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "e.g. When is my next GST return due?"
	ta.Prompt = "Ask a compliance question: "
	ta.ShowLineNumbers = false
	ta.CharLimit = -1
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	items := make([]list.Item, 12)
	for i := range items {
		items[i] = monthItem{month: time.Month(i + 1)}
	}
	months := list.New(items, list.NewDefaultDelegate(), 0, 0)
	months.SetFilteringEnabled(false)
	months.Select(int(now.Month()) - 1)

	m := &model{
		ctx:       ctx,
		sess:      sess,
		state:     viewPeriod,
		year:      clampYear(now.Year()),
		monthList: months,
		textArea:  ta,
		viewport:  viewport.New(100, 5),
		spinner:   s,
	}
	m.updateTitle()
	return m
}

func clampYear(year int) int {
	switch {
	case year < session.MinYear:
		return session.MinYear
	case year > session.MaxYear:
		return session.MaxYear
	}
	return year
}

func (m *model) updateTitle() {
	m.monthList.Title = fmt.Sprintf("Select your current month (year: %d, left/right to change)", m.year)
}

// initCmd binds an agent to the chosen date context.
func initCmd(sess *session.Session, month, year int) tea.Cmd {
	return func() tea.Msg {
		status, err := sess.Initialize(month, year)
		if err != nil {
			return initErr{error: err}
		}
		return initDoneMsg{status: status}
	}
}

// askCmd sends one question through the session.
func askCmd(ctx context.Context, sess *session.Session, question string) tea.Cmd {
	return func() tea.Msg {
		return answerMsg(sess.Ask(ctx, question))
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the spinner.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update is the central update function for the Bubble Tea model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if m.state == viewChat && !m.isLoading {
				m.state = viewPeriod
				m.textArea.Blur()
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.monthList.SetSize(msg.Width-2, msg.Height-4)
		m.textArea.SetWidth(msg.Width - 3)
		headerHeight := 2
		footerHeight := 3
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - headerHeight - footerHeight

	case initDoneMsg:
		m.isLoading = false
		m.status = msg.status
		m.state = viewChat
		m.textArea.Focus()
		m.viewport.GotoBottom()
		return m, nil

	case initErr:
		m.isLoading = false
		m.state = viewPeriod
		m.err = msg.error
		return m, nil

	case answerMsg:
		m.chatHistory = append(m.chatHistory, chatMessage{Role: "assistant", Content: string(msg)})
		m.isLoading = false
		m.textArea.Focus()
		m.viewport.GotoBottom()
		return m, nil

	case tickMsg:
		if m.isLoading {
			return m, tickCmd()
		}
		return m, nil
	}

	switch m.state {
	case viewPeriod:
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "left":
				m.year = clampYear(m.year - 1)
				m.updateTitle()
				return m, nil
			case "right":
				m.year = clampYear(m.year + 1)
				m.updateTitle()
				return m, nil
			case "enter":
				if selected, ok := m.monthList.SelectedItem().(monthItem); ok {
					m.state = viewInitializing
					m.isLoading = true
					m.err = nil
					m.requestStartTime = time.Now()
					cmds = append(cmds, m.spinner.Tick, initCmd(m.sess, int(selected.month), m.year), tickCmd())
					return m, tea.Batch(cmds...)
				}
			}
		}
		m.monthList, cmd = m.monthList.Update(msg)
		cmds = append(cmds, cmd)

	case viewChat:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" && !m.isLoading {
			question := strings.TrimSpace(m.textArea.Value())
			if question != "" {
				m.chatHistory = append(m.chatHistory, chatMessage{Role: "user", Content: question})
				m.textArea.Reset()
				m.isLoading = true
				m.requestStartTime = time.Now()
				cmds = append(cmds, m.spinner.Tick, askCmd(m.ctx, m.sess, question), tickCmd())
			}
			return m, tea.Batch(cmds...)
		}

		m.textArea, cmd = m.textArea.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.isLoading {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the current screen.
func (m *model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	errorLine := ""
	if m.err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
		errorLine = errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	switch m.state {
	case viewPeriod:
		return errorLine + lipgloss.NewStyle().Margin(1, 2).Render(m.monthList.View())

	case viewInitializing:
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		return fmt.Sprintf("\n  %s Initializing agent... %ss\n", m.spinner.View(), timer)

	case viewChat:
		return m.chatView()

	default:
		return "Unknown state"
	}
}

func (m *model) chatView() string {
	var builder strings.Builder

	headerStyle := lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	help := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(" (tab to change date, esc to quit)")
	builder.WriteString(headerStyle.Render("NZ Startup Compliance Agent") + " " + m.status + help + "\n\n")

	var historyBuilder strings.Builder
	userStyle := lipgloss.NewStyle().Bold(true)
	assistantStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))

	for _, msg := range m.chatHistory {
		var role string
		if msg.Role == "assistant" {
			role = assistantStyle.Render("Agent: ")
		} else {
			role = userStyle.Render("You: ")
		}
		wrapped := lipgloss.NewStyle().Width(m.width - lipgloss.Width(role) - 2).Render(msg.Content)
		historyBuilder.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, role, wrapped) + "\n")
	}

	m.viewport.SetContent(historyBuilder.String())
	builder.WriteString(m.viewport.View())

	if m.isLoading {
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		builder.WriteString("\n" + m.spinner.View() + fmt.Sprintf(" Checking compliance requirements... %ss", timer))
	} else {
		builder.WriteString("\n" + m.textArea.View())
	}

	return builder.String()
}

// Run starts the terminal frontend and blocks until the user quits or ctx
// is canceled.
func Run(ctx context.Context, sess *session.Session) error {
	m := initialModel(ctx, sess, time.Now())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
