package conversation

import (
	"context"
	"sync"

	"propchat/app/client/searchbot"
)

type Backend interface {
	SendMessage(ctx context.Context, message string, criteria searchbot.Criteria, history []searchbot.Turn) *searchbot.Response
}

type FeedbackSink interface {
	Add(feedback searchbot.Feedback)
}

type Renderer interface {
	Render(entry Entry)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(entry Entry)

func (f RendererFunc) Render(entry Entry) {
	f(entry)
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Kind string

const (
	KindText           Kind = "text"
	KindResults        Kind = "results"
	KindFeedbackPrompt Kind = "feedback_prompt"
	KindError          Kind = "error"
)

type Entry struct {
	Sender Sender `json:"sender"`
	Kind   Kind   `json:"kind"`
	Text   string `json:"text,omitempty"`
	Cards  []Card `json:"cards,omitempty"`
}

type Card struct {
	Highlight string `json:"highlight,omitempty"`
	Title     string `json:"title"`
	Location  string `json:"location"`
	Price     string `json:"price"`
	Details   string `json:"details"`
}

type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseAwaitingBackend Phase = "awaiting_backend"
)

type Snapshot struct {
	Phase             Phase              `json:"phase"`
	Criteria          searchbot.Criteria `json:"criteria"`
	HistoryLen        int                `json:"history_len"`
	Total             int                `json:"total_results"`
	Revealed          int                `json:"revealed_results"`
	FeedbackRequested bool               `json:"feedback_requested"`
}

type State struct {
	mu sync.RWMutex

	criteria    searchbot.Criteria
	chatHistory ChatHistory

	results []searchbot.Property
	cursor  int

	feedbackRequested bool
	lastUserQuery     string
	lastBotResponse   string
}
