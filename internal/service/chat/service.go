package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/edupal/backend/internal/model/chat"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	"github.com/zhouzirui/edupal/backend/internal/service/conversation"
)

var (
	ErrRoleRequired    = errors.New("role is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Config tunes the sessions the service creates.
type Config struct {
	ResponseDelay time.Duration
	MaxPending    int
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithScheduler overrides how reply delays are scheduled.
func WithScheduler(s conversation.Scheduler) Option {
	return func(svc *Service) { svc.scheduler = s }
}

// WithClock overrides the clock used for session timestamps and sweeping.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// Service owns every live conversation session.
type Service struct {
	mu        sync.RWMutex
	sessions  map[string]*conversation.Session
	responder conversation.Responder
	cfg       Config
	scheduler conversation.Scheduler
	now       func() time.Time
}

// NewService bootstraps the in-memory session registry.
func NewService(responder conversation.Responder, cfg Config, opts ...Option) *Service {
	svc := &Service{
		sessions:  make(map[string]*conversation.Session),
		responder: responder,
		cfg:       cfg,
		scheduler: conversation.RealScheduler{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateSession starts a conversation for a chat widget. Unrecognized roles
// are accepted and answered from the fallback pools.
func (s *Service) CreateSession(_ context.Context, r role.Role, userName string) (*conversation.Session, error) {
	if r == "" {
		return nil, ErrRoleRequired
	}

	session := conversation.New(s.responder, conversation.Options{
		ID:            uuid.NewString(),
		Role:          r,
		UserName:      userName,
		ResponseDelay: s.cfg.ResponseDelay,
		MaxPending:    s.cfg.MaxPending,
		Scheduler:     s.scheduler,
		Now:           s.now,
	})

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	log.Info().Str("session_id", session.ID()).Str("role", r.String()).Msg("session created")
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (*conversation.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Submit forwards user text to the session.
func (s *Service) Submit(ctx context.Context, sessionID, text string, r role.Role) (conversation.Submission, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return conversation.Submission{}, err
	}
	return session.Submit(text, r)
}

// SetRole switches a session's current role.
func (s *Service) SetRole(ctx context.Context, sessionID string, r role.Role) (chat.Session, error) {
	if r == "" {
		return chat.Session{}, ErrRoleRequired
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	if err := session.SetRole(r); err != nil {
		return chat.Session{}, err
	}
	return session.Snapshot(), nil
}

// LoadTranscript returns the turns of a session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Turns(), nil
}

// List returns snapshots of all live sessions, oldest first.
func (s *Service) List(_ context.Context) []chat.Session {
	s.mu.RLock()
	sessions := make([]*conversation.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	out := make([]chat.Session, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CloseSession tears a session down and forgets it.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// Sweep closes sessions idle for longer than the configured TTL. Sessions
// with a reply still pending are left alone.
func (s *Service) Sweep(now time.Time) int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}

	var stale []*conversation.Session
	s.mu.Lock()
	for id, session := range s.sessions {
		if session.Typing() {
			continue
		}
		if now.Sub(session.LastActivity()) < s.cfg.IdleTTL {
			continue
		}
		stale = append(stale, session)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, session := range stale {
		session.Close()
	}
	if len(stale) > 0 {
		log.Info().Int("count", len(stale)).Dur("idle_ttl", s.cfg.IdleTTL).Msg("swept idle sessions")
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.IdleTTL <= 0 || s.cfg.SweepInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}

// Shutdown closes every session, cancelling all pending replies.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*conversation.Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	log.Info().Int("count", len(sessions)).Msg("all sessions closed")
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
