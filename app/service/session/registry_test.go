package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"propchat/app/client/searchbot"
	"propchat/app/service/conversation"
)

type stubBackend struct {
	block   chan struct{}
	entered chan struct{}
}

func (b *stubBackend) SendMessage(_ context.Context, message string, _ searchbot.Criteria, _ []searchbot.Turn) *searchbot.Response {
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.block != nil {
		<-b.block
	}

	if message == searchbot.InitiateChatQuery {
		return &searchbot.Response{BotMessage: "Welcome!"}
	}

	return &searchbot.Response{
		BotMessage: "Found some homes",
		Results:    []searchbot.Property{{Title: "A"}, {Title: "B"}},
	}
}

func newTestRegistry(backend conversation.Backend, ttl time.Duration) *Registry {
	return NewRegistry(func(renderer conversation.Renderer) *conversation.Service {
		return conversation.NewService(backend, nil, renderer, conversation.Options{BatchSize: 3, Currency: "AED"})
	}, ttl)
}

func TestSession_TurnCollectsEntries(t *testing.T) {
	reg := newTestRegistry(&stubBackend{}, time.Hour)
	s := reg.Create()

	entries, err := s.Turn(func(svc *conversation.Service) bool {
		return svc.StartSession(context.Background())
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "Welcome!" {
		t.Errorf("entries = %+v", entries)
	}

	entries, err = s.Turn(func(svc *conversation.Service) bool {
		return svc.SubmitUserMessage(context.Background(), "villa")
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if len(entries) != 3 || entries[2].Kind != conversation.KindResults {
		t.Errorf("entries = %+v", entries)
	}
	if got := s.Snapshot().Total; got != 2 {
		t.Errorf("Total = %d, want 2", got)
	}
}

func TestSession_TurnBusy(t *testing.T) {
	backend := &stubBackend{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	reg := newTestRegistry(backend, time.Hour)
	s := reg.Create()

	done := make(chan error, 1)
	go func() {
		_, err := s.Turn(func(svc *conversation.Service) bool {
			return svc.SubmitUserMessage(context.Background(), "first")
		})
		done <- err
	}()

	<-backend.entered

	if _, err := s.Turn(func(svc *conversation.Service) bool {
		return svc.SubmitUserMessage(context.Background(), "second")
	}); !errors.Is(err, ErrBusy) {
		t.Errorf("Turn() error = %v, want ErrBusy", err)
	}

	close(backend.block)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("first turn error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first turn did not finish")
	}
}

func TestSession_TurnDropped(t *testing.T) {
	reg := newTestRegistry(&stubBackend{}, time.Hour)
	s := reg.Create()

	entries, err := s.Turn(func(svc *conversation.Service) bool {
		return svc.SubmitUserMessage(context.Background(), "   ")
	})
	if !errors.Is(err, ErrBusy) || len(entries) != 0 {
		t.Errorf("Turn() = %+v, %v", entries, err)
	}
}

func TestRegistry_GetDelete(t *testing.T) {
	reg := newTestRegistry(&stubBackend{}, time.Hour)

	a := reg.Create()
	b := reg.Create()
	if a.ID == b.ID {
		t.Fatal("session ids must be unique")
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	if got, ok := reg.Get(a.ID); !ok || got != a {
		t.Error("Get() did not return the created session")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("Get() found an unknown session")
	}

	if !reg.Delete(a.ID) {
		t.Error("Delete() = false for existing session")
	}
	if reg.Delete(a.ID) {
		t.Error("Delete() = true for removed session")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_Sweep(t *testing.T) {
	reg := newTestRegistry(&stubBackend{}, 10*time.Minute)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	stale := reg.Create()
	fresh := reg.Create()

	now = now.Add(8 * time.Minute)
	reg.Get(fresh.ID)

	now = now.Add(5 * time.Minute)
	if n := reg.sweep(); n != 1 {
		t.Errorf("sweep() = %d, want 1", n)
	}

	if _, ok := reg.Get(stale.ID); ok {
		t.Error("stale session should be removed")
	}
	if _, ok := reg.Get(fresh.ID); !ok {
		t.Error("recently used session should be kept")
	}
}

func TestRegistry_RunCleanupLoopStops(t *testing.T) {
	reg := newTestRegistry(&stubBackend{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.RunCleanupLoop(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanupLoop did not stop")
	}
}
