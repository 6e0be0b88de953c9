package server

import (
	"errors"
	"strings"

	"propchat/app/service/conversation"
	"propchat/app/service/session"

	"github.com/gofiber/fiber/v2"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	SessionID string               `json:"session_id"`
	Entries   []conversation.Entry `json:"entries"`
	Busy      bool                 `json:"busy"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	conversation.Snapshot
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"sessions": s.registry.Len(),
	})
}

// createSession handles POST /api/sessions and returns the greeting.
func (s *Server) createSession(c *fiber.Ctx) error {
	sess := s.registry.Create()

	entries, err := sess.Turn(func(svc *conversation.Service) bool {
		return svc.StartSession(c.UserContext())
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(turnResponse{
		SessionID: sess.ID,
		Entries:   entries,
	})
}

// postMessage handles POST /api/sessions/:id/messages { "text": "..." }
func (s *Server) postMessage(c *fiber.Ctx) error {
	sess, ok := s.registry.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	entries, err := sess.Turn(func(svc *conversation.Service) bool {
		return svc.SubmitUserMessage(c.UserContext(), req.Text)
	})
	if errors.Is(err, session.ErrBusy) {
		return c.Status(fiber.StatusConflict).JSON(turnResponse{
			SessionID: sess.ID,
			Entries:   []conversation.Entry{},
			Busy:      true,
		})
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(turnResponse{
		SessionID: sess.ID,
		Entries:   entries,
	})
}

func (s *Server) getSession(c *fiber.Ctx) error {
	sess, ok := s.registry.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	return c.JSON(sessionResponse{
		SessionID: sess.ID,
		Snapshot:  sess.Snapshot(),
	})
}

// deleteSession is called by the widget on page unload.
func (s *Server) deleteSession(c *fiber.Ctx) error {
	if !s.registry.Delete(c.Params("id")) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
