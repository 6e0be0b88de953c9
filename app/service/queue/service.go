package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"propchat/app/client/searchbot"

	"github.com/samber/do"
)

const (
	bufferSize      = 64
	deliveryTimeout = 10 * time.Second
)

var _ do.Shutdownable = (*Service)(nil)

type Sender interface {
	LogFeedback(ctx context.Context, feedback searchbot.Feedback) error
}

// Service delivers feedback in the background. Add never blocks and
// delivery failures never reach the conversation.
type Service struct {
	sender Sender
	queue  chan searchbot.Feedback

	mu     sync.RWMutex
	closed bool
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*searchbot.Client](di)), nil
}

func NewService(sender Sender) *Service {
	return &Service{
		sender: sender,
		queue:  make(chan searchbot.Feedback, bufferSize),
	}
}

func (s *Service) Add(feedback searchbot.Feedback) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		slog.Warn("Feedback queue is closed, dropping feedback")
		return
	}

	select {
	case s.queue <- feedback:
	default:
		slog.Warn("Feedback queue is full, dropping feedback")
	}
}

// Run delivers queued feedback until ctx is done or the queue is shut down.
// A delivery already started is not cut short by ctx.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case feedback, ok := <-s.queue:
			if !ok {
				return
			}

			s.deliver(context.WithoutCancel(ctx), feedback)
		}
	}
}

// Drain delivers what is still buffered after Shutdown, stopping early when
// ctx is done.
func (s *Service) Drain(ctx context.Context) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()

	if !closed {
		return
	}

	for feedback := range s.queue {
		if ctx.Err() != nil {
			slog.Warn("Feedback dropped on shutdown", "feedback", feedback.Feedback)
			continue
		}

		s.deliver(ctx, feedback)
	}
}

func (s *Service) deliver(ctx context.Context, feedback searchbot.Feedback) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	start := time.Now()

	if err := s.sender.LogFeedback(ctx, feedback); err != nil {
		slog.Error("Failed to log feedback",
			"feedback", feedback.Feedback,
			"error", err)
		return
	}

	slog.Info("Feedback logged",
		"feedback", feedback.Feedback,
		"duration", time.Since(start))
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.queue)
	}

	return nil
}
