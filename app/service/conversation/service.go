package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"propchat/app/client/searchbot"
	"propchat/app/config"
	"propchat/app/service/queue"

	"github.com/samber/do"
	"golang.org/x/sync/semaphore"
)

const (
	defaultBatchSize = 3
	defaultCurrency  = "AED"

	msgProcessingError = "Sorry, there was an issue processing your request. Please try again."
)

type Options struct {
	BatchSize int
	Currency  string
}

// Service is the controller of a single chat session. It owns all session
// state; at most one turn runs at a time and overlapping calls are dropped.
type Service struct {
	backend  Backend
	feedback FeedbackSink
	renderer Renderer
	opts     Options

	inFlight *semaphore.Weighted
	awaiting atomic.Bool

	state *State
}

func NewService(backend Backend, feedback FeedbackSink, renderer Renderer, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}

	return &Service{
		backend:  backend,
		feedback: feedback,
		renderer: renderer,
		opts:     opts,
		inFlight: semaphore.NewWeighted(1),
		state: &State{
			criteria: searchbot.Criteria{},
		},
	}
}

// Factory creates one Service per front-end session with shared backend and
// feedback queue.
type Factory struct {
	client  *searchbot.Client
	queue   *queue.Service
	options Options
}

func NewFactory(di *do.Injector) (*Factory, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Factory{
		client: do.MustInvoke[*searchbot.Client](di),
		queue:  do.MustInvoke[*queue.Service](di),
		options: Options{
			BatchSize: cfg.Chat.BatchSize,
			Currency:  cfg.Chat.Currency,
		},
	}, nil
}

func (f *Factory) NewSession(renderer Renderer) *Service {
	return NewService(f.client, f.queue, renderer, f.options)
}

// StartSession sends the initiation sentinel with empty criteria and history.
// It returns false when dropped because another call is in flight.
func (s *Service) StartSession(ctx context.Context) bool {
	if !s.inFlight.TryAcquire(1) {
		slog.Debug("Session start dropped, request in flight")
		return false
	}
	defer s.inFlight.Release(1)

	resp := s.callBackend(ctx, searchbot.InitiateChatQuery, searchbot.Criteria{}, []searchbot.Turn{})
	if resp == nil || resp.Err != nil {
		slog.Error("Chat initiation failed", "error", errOf(resp))
		s.emit(Entry{Sender: SenderBot, Kind: KindError, Text: msgConnectError})
		return true
	}

	s.state.mu.Lock()
	s.state.chatHistory.addBot(resp.BotMessage)
	s.state.mu.Unlock()

	s.emit(Entry{Sender: SenderBot, Kind: KindText, Text: resp.BotMessage})

	return true
}

// SubmitUserMessage handles one user message. It returns false for blank
// input or when a turn is already in flight; callers clear their input only
// on true.
func (s *Service) SubmitUserMessage(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if !s.inFlight.TryAcquire(1) {
		slog.Debug("Message dropped, request in flight", "text", text)
		return false
	}
	defer s.inFlight.Release(1)

	start := time.Now()
	cmd := parseCommand(text)

	s.state.mu.Lock()
	s.state.chatHistory.addUser(text)

	out := []Entry{{Sender: SenderUser, Kind: KindText, Text: text}}
	switch cmd.kind {
	case commandFeedback:
		out = append(out, s.handleFeedbackLocked(cmd.rest)...)
	case commandMore:
		out = append(out, s.handleMoreLocked()...)
	}

	criteria := s.state.criteria.Clone()
	history := s.state.chatHistory.snapshot()
	s.state.mu.Unlock()

	s.emit(out...)

	if cmd.kind != commandQuery {
		return true
	}

	resp := s.callBackend(ctx, text, criteria, history)
	if resp == nil {
		slog.Error("Backend returned no response", "text", text)
		s.emit(Entry{Sender: SenderBot, Kind: KindError, Text: msgProcessingError})
		return true
	}

	s.emit(s.applyBackendResponse(resp, text)...)

	slog.Info("Processed message",
		"text", text,
		"results", len(resp.Results),
		"failed", resp.Err != nil,
		"duration", time.Since(start))

	return true
}

func (s *Service) callBackend(ctx context.Context, text string, criteria searchbot.Criteria, history []searchbot.Turn) *searchbot.Response {
	s.awaiting.Store(true)
	defer s.awaiting.Store(false)

	return s.backend.SendMessage(ctx, text, criteria, history)
}

// applyBackendResponse integrates one reply. originalQuery is recorded last
// so a reply from this same turn is paired with the query that produced it.
func (s *Service) applyBackendResponse(resp *searchbot.Response, originalQuery string) []Entry {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if resp.Criteria != nil {
		s.state.criteria = resp.Criteria
	}

	var out []Entry

	if resp.BotMessage != "" {
		kind := KindText
		if resp.Err != nil {
			kind = KindError
		}

		out = append(out, Entry{Sender: SenderBot, Kind: kind, Text: resp.BotMessage})
		s.state.chatHistory.addBot(resp.BotMessage)
		s.state.lastBotResponse = resp.BotMessage
	}

	if len(resp.Results) > 0 {
		s.state.results = resp.Results
		s.state.cursor = 0
		out = append(out, s.revealNextBatchLocked()...)
	} else {
		s.state.results = nil
		s.state.cursor = 0
	}

	if resp.AskForFeedback {
		out = append(out, s.promptForFeedbackLocked()...)
	}

	s.state.lastUserQuery = originalQuery

	return out
}

// RevealNextBatch shows the next batch of hidden results, if any.
func (s *Service) RevealNextBatch() {
	s.state.mu.Lock()
	out := s.revealNextBatchLocked()
	s.state.mu.Unlock()

	s.emit(out...)
}

func (s *Service) revealNextBatchLocked() []Entry {
	total := len(s.state.results)
	if total == 0 || s.state.cursor >= total {
		return nil
	}

	end := min(s.state.cursor+s.opts.BatchSize, total)
	batch := s.state.results[s.state.cursor:end]

	var out []Entry
	if s.state.cursor > 0 {
		out = append(out, Entry{Sender: SenderBot, Kind: KindText, Text: msgShowingMore})
	}

	out = append(out, Entry{
		Sender: SenderBot,
		Kind:   KindResults,
		Cards:  formatCards(s.opts.Currency, batch),
	})

	s.state.cursor = end

	if s.state.cursor < total {
		out = append(out, Entry{Sender: SenderBot, Kind: KindText, Text: msgMoreHint})
	}

	return out
}

func (s *Service) handleMoreLocked() []Entry {
	total := len(s.state.results)

	switch {
	case total > 0 && s.state.cursor < total:
		return s.revealNextBatchLocked()
	case total > 0:
		return []Entry{{Sender: SenderBot, Kind: KindText, Text: msgSeenAll}}
	default:
		return []Entry{{Sender: SenderBot, Kind: KindText, Text: msgNoResults}}
	}
}

func (s *Service) handleFeedbackLocked(rest string) []Entry {
	defer func() {
		s.state.feedbackRequested = false
	}()

	if label, ok := RatingLabel(rest); ok {
		s.sendFeedbackLocked("Rating: " + label)
		return []Entry{{Sender: SenderBot, Kind: KindText, Text: msgRatingThanks}}
	}

	if rest != "" {
		s.sendFeedbackLocked(rest)
		return []Entry{{Sender: SenderBot, Kind: KindText, Text: msgFeedbackThanks}}
	}

	return []Entry{{Sender: SenderBot, Kind: KindText, Text: msgFeedbackUsage}}
}

func (s *Service) sendFeedbackLocked(text string) {
	if s.feedback == nil {
		return
	}

	s.feedback.Add(searchbot.Feedback{
		Feedback:           text,
		UserQueryContext:   s.state.lastUserQuery,
		BotResponseContext: s.state.lastBotResponse,
	})
}

func (s *Service) promptForFeedbackLocked() []Entry {
	if s.state.feedbackRequested {
		return nil
	}

	s.state.feedbackRequested = true

	return []Entry{{Sender: SenderBot, Kind: KindFeedbackPrompt, Text: msgFeedbackPrompt}}
}

func (s *Service) emit(entries ...Entry) {
	if s.renderer == nil {
		return
	}

	for _, entry := range entries {
		s.renderer.Render(entry)
	}
}

func (s *Service) Busy() bool {
	return s.awaiting.Load()
}

func (s *Service) Snapshot() Snapshot {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	phase := PhaseIdle
	if s.awaiting.Load() {
		phase = PhaseAwaitingBackend
	}

	return Snapshot{
		Phase:             phase,
		Criteria:          s.state.criteria.Clone(),
		HistoryLen:        s.state.chatHistory.len(),
		Total:             len(s.state.results),
		Revealed:          s.state.cursor,
		FeedbackRequested: s.state.feedbackRequested,
	}
}

func errOf(resp *searchbot.Response) error {
	if resp == nil {
		return nil
	}

	return resp.Err
}
