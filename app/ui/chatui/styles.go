package chatui

import (
	"strings"

	"propchat/app/service/conversation"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	promptStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("179"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func renderEntry(e conversation.Entry, width int) string {
	switch e.Kind {
	case conversation.KindResults:
		cards := make([]string, 0, len(e.Cards))
		for _, c := range e.Cards {
			cards = append(cards, renderCard(c, width))
		}
		return strings.Join(cards, "\n")
	case conversation.KindError:
		return botStyle.Render("Bot: ") + errorStyle.Render(e.Text)
	case conversation.KindFeedbackPrompt:
		return promptStyle.Render(e.Text)
	}

	if e.Sender == conversation.SenderUser {
		return userStyle.Render("You: ") + e.Text
	}

	return botStyle.Render("Bot: ") + e.Text
}

func renderCard(c conversation.Card, width int) string {
	lines := make([]string, 0, 5)
	if c.Highlight != "" {
		lines = append(lines, highlightStyle.Render(c.Highlight))
	}
	lines = append(lines, lipgloss.NewStyle().Bold(true).Render(c.Title), c.Location, c.Price, c.Details)

	style := cardStyle
	if width > 4 {
		style = style.Width(width - 4)
	}

	return style.Render(strings.Join(lines, "\n"))
}
