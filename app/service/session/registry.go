package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"propchat/app/config"
	"propchat/app/service/conversation"

	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/samber/do"
)

var ErrBusy = errors.New("session is busy")

type ServiceFactory func(renderer conversation.Renderer) *conversation.Service

// Session wraps one conversation with a buffering renderer so a web request
// receives exactly the entries its own turn produced.
type Session struct {
	ID string

	svc  *conversation.Service
	turn sync.Mutex

	bufMu sync.Mutex
	buf   []conversation.Entry

	seenMu   sync.Mutex
	lastSeen time.Time
}

func newSession(id string, factory ServiceFactory, now time.Time) *Session {
	s := &Session{ID: id, lastSeen: now}
	s.svc = factory(conversation.RendererFunc(s.collect))

	return s
}

func (s *Session) collect(entry conversation.Entry) {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	s.buf = append(s.buf, entry)
}

func (s *Session) drain() []conversation.Entry {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	out := s.buf
	s.buf = nil
	if out == nil {
		out = []conversation.Entry{}
	}

	return out
}

// Turn runs fn against the conversation and returns the entries it rendered.
// It fails with ErrBusy when another turn holds the session or fn reports
// the call was dropped.
func (s *Session) Turn(fn func(svc *conversation.Service) bool) ([]conversation.Entry, error) {
	if !s.turn.TryLock() {
		return nil, ErrBusy
	}
	defer s.turn.Unlock()

	s.drain()
	accepted := fn(s.svc)
	entries := s.drain()

	if !accepted {
		return entries, ErrBusy
	}

	return entries, nil
}

func (s *Session) Snapshot() conversation.Snapshot {
	return s.svc.Snapshot()
}

func (s *Session) touch(now time.Time) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	s.lastSeen = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	return now.Sub(s.lastSeen)
}

// Registry keeps the in-memory web sessions. Sessions idle for longer than
// the TTL are removed by RunCleanupLoop.
type Registry struct {
	factory ServiceFactory
	ttl     time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func New(di *do.Injector) (*Registry, error) {
	cfg := do.MustInvoke[*config.Config](di)
	factory := do.MustInvoke[*conversation.Factory](di)

	return NewRegistry(factory.NewSession, cfg.Server.SessionTTL), nil
}

func NewRegistry(factory ServiceFactory, ttl time.Duration) *Registry {
	return &Registry{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Create() *Session {
	s := newSession(uuid.NewString(), r.factory, r.now())

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	slog.Debug("Session created", "session_id", s.ID)

	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if ok {
		s.touch(r.now())
	}

	return s, ok
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}

	delete(r.sessions, id)

	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

func (r *Registry) RunCleanupLoop(ctx context.Context) {
	interval := min(r.ttl/2, time.Minute)
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				slog.Info("Expired sessions removed", "count", n)
			}
		}
	}
}

func (r *Registry) sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	expired := pie.Filter(pie.Keys(r.sessions), func(id string) bool {
		return r.sessions[id].idleSince(now) > r.ttl
	})
	for _, id := range expired {
		delete(r.sessions, id)
	}

	return len(expired)
}
