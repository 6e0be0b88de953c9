package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"propchat/app/service/conversation"
	"propchat/app/service/session"

	"github.com/elliotchance/pie/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const msgBusy = "A message is already being processed. Please wait for the reply."

type chatTool struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

func (s *Server) tools() []chatTool {
	return []chatTool{
		{
			tool: mcp.NewTool("start_session",
				mcp.WithDescription("Start a new property search conversation and return the assistant greeting. Discards any previous conversation."),
			),
			handler: s.startSession,
		},
		{
			tool: mcp.NewTool("send_message",
				mcp.WithDescription("Send a message to the property search assistant. Supports 'more' to show more results and 'feedback <1-5 or comment>' to rate the assistant."),
				mcp.WithString("message",
					mcp.Required(),
					mcp.Description("The user message"),
				),
			),
			handler: s.sendMessage,
		},
		{
			tool: mcp.NewTool("session_state",
				mcp.WithDescription("Describe the current search criteria and how many results have been shown."),
			),
			handler: s.sessionState,
		},
	}
}

func (s *Server) startSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := s.restart()

	entries, err := sess.Turn(func(svc *conversation.Service) bool {
		return svc.StartSession(ctx)
	})
	if err != nil {
		return mcp.NewToolResultError(msgBusy), nil
	}

	return mcp.NewToolResultText(renderEntries(entries)), nil
}

func (s *Server) sendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(message) == "" {
		return mcp.NewToolResultError("message must not be empty"), nil
	}

	sess, created := s.active()

	var greeting []conversation.Entry
	if created {
		greeting, _ = sess.Turn(func(svc *conversation.Service) bool {
			return svc.StartSession(ctx)
		})
	}

	entries, err := sess.Turn(func(svc *conversation.Service) bool {
		return svc.SubmitUserMessage(ctx, message)
	})
	if errors.Is(err, session.ErrBusy) {
		return mcp.NewToolResultError(msgBusy), nil
	}

	return mcp.NewToolResultText(renderEntries(append(greeting, entries...))), nil
}

func (s *Server) sessionState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()

	if sess == nil {
		return mcp.NewToolResultText("No conversation yet. Call start_session first."), nil
	}

	return mcp.NewToolResultText(describe(sess.Snapshot())), nil
}

// renderEntries joins the bot entries as plain text. The user echo is
// omitted since the caller already has it.
func renderEntries(entries []conversation.Entry) string {
	bot := pie.Filter(entries, func(e conversation.Entry) bool {
		return e.Sender == conversation.SenderBot
	})

	return strings.Join(pie.Map(bot, conversation.Entry.String), "\n\n")
}

func describe(snap conversation.Snapshot) string {
	var b strings.Builder

	keys := pie.Sort(pie.Keys(snap.Criteria))

	if len(keys) == 0 {
		b.WriteString("Criteria: none\n")
	} else {
		b.WriteString("Criteria:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, snap.Criteria[k])
		}
	}

	fmt.Fprintf(&b, "Results shown: %d of %d\n", snap.Revealed, snap.Total)
	fmt.Fprintf(&b, "Messages: %d", snap.HistoryLen)

	if snap.FeedbackRequested {
		b.WriteString("\nFeedback requested")
	}

	return b.String()
}
