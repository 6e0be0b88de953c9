package chatui

import (
	"context"
	"strings"

	"propchat/app/service/conversation"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultWidth  = 80
	defaultHeight = 20

	headerHeight = 2
	footerHeight = 3

	placeholder = "Ask about properties... (Enter to send, Esc to quit)"
)

type entryMsg conversation.Entry

type turnDoneMsg struct {
	text     string
	accepted bool
}

// Model is the terminal chat widget. Entries arrive from the controller via
// entryMsg; turns run as commands so the UI stays responsive.
type Model struct {
	ctx context.Context
	svc *conversation.Service

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries []conversation.Entry
	waiting bool
	width   int
}

func New(ctx context.Context, svc *conversation.Service) Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = 1000
	input.Width = defaultWidth - 4
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = botStyle

	return Model{
		ctx:      ctx,
		svc:      svc,
		input:    input,
		viewport: viewport.New(defaultWidth, defaultHeight),
		spinner:  sp,
		waiting:  true,
		width:    defaultWidth,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.startSession(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleSubmit()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 1)
		m.input.Width = max(msg.Width-4, 1)
		m.refresh()

	case entryMsg:
		m.entries = append(m.entries, conversation.Entry(msg))
		m.refresh()

	case turnDoneMsg:
		m.waiting = false
		if !msg.accepted && m.input.Value() == "" {
			m.input.SetValue(msg.text)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var spCmd tea.Cmd
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.input, tiCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

// handleSubmit keeps the input while a turn is in flight so nothing typed
// is lost.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.waiting {
		return m, nil
	}

	m.input.Reset()
	m.waiting = true

	return m, tea.Batch(
		m.spinner.Tick,
		m.submit(text),
	)
}

func (m Model) startSession() tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{accepted: m.svc.StartSession(m.ctx)}
	}
}

func (m Model) submit(text string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{
			text:     text,
			accepted: m.svc.SubmitUserMessage(m.ctx, text),
		}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		parts = append(parts, renderEntry(e, m.width))
	}

	return strings.Join(parts, "\n\n")
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Property Search Assistant"))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.waiting {
		b.WriteString(m.spinner.View() + hintStyle.Render(" Assistant is typing..."))
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())

	return b.String()
}
