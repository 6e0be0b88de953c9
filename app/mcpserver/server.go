package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"propchat/app/service/session"

	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	serverName    = "propchat"
	serverVersion = "1.0.0"
)

// Server exposes one chat session per process as MCP tools.
type Server struct {
	registry *session.Registry
	mcp      *server.MCPServer

	mu      sync.Mutex
	current *session.Session
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(do.MustInvoke[*session.Registry](di)), nil
}

func NewServer(registry *session.Registry) *Server {
	s := &Server{
		registry: registry,
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	for _, t := range s.tools() {
		s.mcp.AddTool(t.tool, t.handler)
	}

	return s
}

func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over the given streams until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("MCP server started")

	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return oops.In("mcpserver").Wrapf(err, "listen")
	}

	return nil
}

// restart replaces the current session with a fresh one.
func (s *Server) restart() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.registry.Delete(s.current.ID)
	}

	s.current = s.registry.Create()

	return s.current
}

// active returns the current session and whether it was just created.
func (s *Server) active() (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return s.current, false
	}

	s.current = s.registry.Create()

	return s.current, true
}
