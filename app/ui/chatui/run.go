package chatui

import (
	"context"
	"errors"

	"propchat/app/service/conversation"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/oops"
)

// Run starts an interactive chat session on the terminal and blocks until
// the user quits or ctx is cancelled.
func Run(ctx context.Context, factory *conversation.Factory) error {
	var program *tea.Program

	svc := factory.NewSession(conversation.RendererFunc(func(entry conversation.Entry) {
		program.Send(entryMsg(entry))
	}))

	program = tea.NewProgram(New(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return oops.In("chatui").Wrapf(err, "run chat ui")
	}

	return nil
}
