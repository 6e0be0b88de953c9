package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"propchat/app/client/searchbot"
)

type fakeSender struct {
	delivered chan searchbot.Feedback
	err       error
}

func (f *fakeSender) LogFeedback(_ context.Context, feedback searchbot.Feedback) error {
	f.delivered <- feedback
	return f.err
}

func TestService_DeliversFeedback(t *testing.T) {
	sender := &fakeSender{delivered: make(chan searchbot.Feedback, 1)}
	svc := NewService(sender)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	svc.Add(searchbot.Feedback{Feedback: "great", UserQueryContext: "q", BotResponseContext: "a"})

	select {
	case got := <-sender.delivered:
		if got.Feedback != "great" || got.UserQueryContext != "q" || got.BotResponseContext != "a" {
			t.Errorf("delivered = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("feedback was not delivered")
	}

	if err := svc.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after Shutdown")
	}
}

func TestService_SenderErrorIsSwallowed(t *testing.T) {
	sender := &fakeSender{delivered: make(chan searchbot.Feedback, 2), err: errors.New("boom")}
	svc := NewService(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	svc.Add(searchbot.Feedback{Feedback: "first"})
	svc.Add(searchbot.Feedback{Feedback: "second"})

	for _, want := range []string{"first", "second"} {
		select {
		case got := <-sender.delivered:
			if got.Feedback != want {
				t.Errorf("delivered %q, want %q", got.Feedback, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("%q was not delivered", want)
		}
	}
}

func TestService_AddDropsWhenFull(t *testing.T) {
	svc := NewService(&fakeSender{delivered: make(chan searchbot.Feedback)})

	for i := 0; i < bufferSize+10; i++ {
		svc.Add(searchbot.Feedback{Feedback: "x"})
	}

	if got := len(svc.queue); got != bufferSize {
		t.Errorf("queued = %d, want %d", got, bufferSize)
	}
}

func TestService_AddAfterShutdown(t *testing.T) {
	svc := NewService(&fakeSender{delivered: make(chan searchbot.Feedback)})

	_ = svc.Shutdown()
	_ = svc.Shutdown()

	svc.Add(searchbot.Feedback{Feedback: "late"})
}

func TestService_DrainDeliversBuffered(t *testing.T) {
	sender := &fakeSender{delivered: make(chan searchbot.Feedback, 2)}
	svc := NewService(sender)

	svc.Add(searchbot.Feedback{Feedback: "feedback 5"})
	svc.Add(searchbot.Feedback{Feedback: "nice"})

	svc.Drain(context.Background())
	if len(sender.delivered) != 0 {
		t.Fatal("Drain before Shutdown must not deliver")
	}

	_ = svc.Shutdown()
	svc.Drain(context.Background())

	if got := len(sender.delivered); got != 2 {
		t.Errorf("delivered = %d, want 2", got)
	}
}

func TestService_DrainStopsWhenContextDone(t *testing.T) {
	sender := &fakeSender{delivered: make(chan searchbot.Feedback, 1)}
	svc := NewService(sender)

	svc.Add(searchbot.Feedback{Feedback: "late"})
	_ = svc.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Drain(ctx)

	if got := len(sender.delivered); got != 0 {
		t.Errorf("delivered = %d, want 0", got)
	}
}

type blockingSender struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (b *blockingSender) LogFeedback(ctx context.Context, _ searchbot.Feedback) error {
	close(b.started)
	<-b.release
	b.ctxErr <- ctx.Err()
	return nil
}

func TestService_RunFinishesStartedDelivery(t *testing.T) {
	sender := &blockingSender{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	svc := NewService(sender)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)

	svc.Add(searchbot.Feedback{Feedback: "feedback 5"})

	select {
	case <-sender.started:
	case <-time.After(time.Second):
		t.Fatal("delivery did not start")
	}

	cancel()
	close(sender.release)

	select {
	case err := <-sender.ctxErr:
		if err != nil {
			t.Errorf("delivery context error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("delivery did not finish")
	}
}
