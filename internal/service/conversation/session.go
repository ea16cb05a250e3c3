package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/edupal/backend/internal/model/chat"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
)

// DefaultResponseDelay is how long the bot "types" before each reply.
const DefaultResponseDelay = 1500 * time.Millisecond

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrTooManyPending = errors.New("too many pending replies")
)

// Responder produces bot turns.
type Responder interface {
	Respond(ctx context.Context, userText string, r role.Role) (chat.Turn, error)
	Greet(r role.Role) chat.Turn
}

// Options configures a Session. Zero values select defaults.
type Options struct {
	ID            string
	Role          role.Role
	UserName      string
	ResponseDelay time.Duration
	// MaxPending caps queued replies; 0 means unbounded.
	MaxPending int
	// Scheduler must not invoke f synchronously from AfterFunc.
	Scheduler Scheduler
	Now       func() time.Time
	NewID     func() string
	Logger    *zerolog.Logger
}

// Submission reports the outcome of Submit. Accepted is false when the
// text was empty after trimming; nothing was recorded in that case.
type Submission struct {
	Accepted bool      `json:"accepted"`
	Turn     chat.Turn `json:"turn,omitzero"`
	Pending  int       `json:"pending"`
}

type reply struct {
	text string
	role role.Role
}

// Session is one chat widget's conversation: an append-only turn history,
// a typing flag, and a FIFO of replies still to be generated. At most one
// reply is scheduled at a time.
type Session struct {
	id        string
	userName  string
	createdAt time.Time
	delay     time.Duration
	maxPend   int
	responder Responder
	scheduler Scheduler
	now       func() time.Time
	newID     func() string
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	role       role.Role
	turns      []chat.Turn
	typing     bool
	queue      []reply
	inflight   Timer
	generation uint64
	closed     bool
	updatedAt  time.Time
	subs       map[int]chan chat.Event
	nextSub    int
}

// New creates a session seeded with the responder's welcome turn.
func New(responder Responder, opts Options) *Session {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.ResponseDelay <= 0 {
		opts.ResponseDelay = DefaultResponseDelay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	created := opts.Now()

	s := &Session{
		id:        opts.ID,
		userName:  opts.UserName,
		createdAt: created,
		delay:     opts.ResponseDelay,
		maxPend:   opts.MaxPending,
		responder: responder,
		scheduler: opts.Scheduler,
		now:       opts.Now,
		newID:     opts.NewID,
		logger:    logger.With().Str("component", "conversation").Str("session_id", opts.ID).Logger(),
		ctx:       ctx,
		cancel:    cancel,
		role:      opts.Role,
		turns:     []chat.Turn{responder.Greet(opts.Role)},
		updatedAt: created,
		subs:      make(map[int]chan chat.Event),
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed once the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Submit records a user turn and queues the bot reply for it. r selects the
// reply pools; an empty r uses the session's current role.
func (s *Session) Submit(text string, r role.Role) (Submission, error) {
	trimmed := strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Submission{}, ErrSessionClosed
	}
	if trimmed == "" {
		return Submission{Pending: len(s.queue)}, nil
	}
	if s.maxPend > 0 && len(s.queue) >= s.maxPend {
		return Submission{Pending: len(s.queue)}, ErrTooManyPending
	}
	if r == "" {
		r = s.role
	}

	turn := chat.Turn{
		ID:        s.newID(),
		Text:      trimmed,
		Sender:    chat.SenderUser,
		Timestamp: s.now(),
	}
	s.appendLocked(turn)
	s.queue = append(s.queue, reply{text: trimmed, role: r})
	s.setTypingLocked(true)
	if s.inflight == nil {
		s.scheduleLocked()
	}

	s.logger.Debug().Str("turn_id", turn.ID).Str("role", r.String()).Int("pending", len(s.queue)).Msg("user turn accepted")
	return Submission{Accepted: true, Turn: turn.Clone(), Pending: len(s.queue)}, nil
}

func (s *Session) scheduleLocked() {
	s.generation++
	gen := s.generation
	s.inflight = s.scheduler.AfterFunc(s.delay, func() { s.deliver(gen) })
}

func (s *Session) deliver(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	job := s.queue[0]
	s.mu.Unlock()

	turn, err := s.responder.Respond(s.ctx, job.text, job.role)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		return
	}
	s.queue = s.queue[1:]
	s.inflight = nil

	if err != nil {
		s.logger.Error().Err(err).Str("role", job.role.String()).Msg("failed to generate reply")
	} else {
		s.appendLocked(turn)
	}

	if len(s.queue) > 0 {
		s.scheduleLocked()
		return
	}
	s.setTypingLocked(false)
}

func (s *Session) appendLocked(turn chat.Turn) {
	s.turns = append(s.turns, turn)
	s.updatedAt = s.now()

	ev := turn.Clone()
	s.emitLocked(chat.Event{
		Type:      chat.EventTurn,
		SessionID: s.id,
		Turn:      &ev,
		Typing:    s.typing,
		Pending:   len(s.queue),
		At:        s.updatedAt,
	})
}

func (s *Session) setTypingLocked(typing bool) {
	if s.typing == typing {
		return
	}
	s.typing = typing
	s.emitLocked(chat.Event{
		Type:      chat.EventTyping,
		SessionID: s.id,
		Typing:    typing,
		Pending:   len(s.queue),
		At:        s.now(),
	})
}

func (s *Session) emitLocked(ev chat.Event) {
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn().Int("subscriber", id).Str("event", string(ev.Type)).Msg("subscriber buffer full, dropping event")
		}
	}
}

// Subscribe streams future events. The returned cancel func detaches the
// subscriber; the channel is closed on cancel or session teardown.
func (s *Session) Subscribe(buffer int) (<-chan chat.Event, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan chat.Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Close tears the session down: the scheduled reply is cancelled, queued
// replies are dropped and subscribers are released. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	if s.inflight != nil {
		s.inflight.Stop()
		s.inflight = nil
	}
	dropped := len(s.queue)
	s.queue = nil
	s.typing = false
	s.updatedAt = s.now()
	s.cancel()

	s.emitLocked(chat.Event{Type: chat.EventClosed, SessionID: s.id, At: s.updatedAt})
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}

	s.logger.Info().Int("turns", len(s.turns)).Int("dropped_replies", dropped).Msg("session closed")
}

// SetRole switches the role used for submissions that carry none.
func (s *Session) SetRole(r role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.role = r
	s.updatedAt = s.now()
	return nil
}

// Role returns the current role.
func (s *Session) Role() role.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Turns returns a copy of the history in chronological order.
func (s *Session) Turns() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return chat.CloneTurns(s.turns)
}

// Typing reports whether a bot reply is pending.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// Pending is the number of replies not yet appended.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LastActivity is when the history, role or lifecycle last changed.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Snapshot captures the session for rendering.
func (s *Session) Snapshot() chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return chat.Session{
		ID:        s.id,
		Role:      s.role,
		UserName:  s.userName,
		Turns:     chat.CloneTurns(s.turns),
		Typing:    s.typing,
		Pending:   len(s.queue),
		Closed:    s.closed,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}
