package responder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/zhouzirui/edupal/backend/internal/model/chat"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
)

// ErrEmptyPool is returned when a role resolves to a profile without any
// response text.
var ErrEmptyPool = errors.New("response pool is empty")

// Source picks an index in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Request is the input of the response chain.
type Request struct {
	Text string
	Role role.Role
}

type pool struct {
	role      role.Role
	responses []string
}

// Option customizes a Responder.
type Option func(*Responder)

// WithSource replaces the random source used to pick responses.
func WithSource(src Source) Option {
	return func(r *Responder) {
		if src != nil {
			r.source = src
		}
	}
}

// WithClock replaces time.Now for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator replaces uuid.NewString for turn ids.
func WithIDGenerator(newID func() string) Option {
	return func(r *Responder) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// Responder produces canned bot turns from the role catalog.
type Responder struct {
	catalog role.Store
	source  Source
	now     func() time.Time
	newID   func() string
	chain   compose.Runnable[Request, *schema.Message]
}

// New compiles the response chain over catalog.
func New(ctx context.Context, catalog role.Store, opts ...Option) (*Responder, error) {
	if catalog == nil {
		return nil, errors.New("role catalog is required")
	}

	r := &Responder{
		catalog: catalog,
		source:  globalSource{},
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	chain := compose.NewChain[Request, *schema.Message]()
	chain.AppendLambda(compose.InvokableLambda(r.resolvePool))
	chain.AppendLambda(compose.InvokableLambda(r.pick))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile response chain: %w", err)
	}
	r.chain = runnable

	return r, nil
}

// Respond builds the bot turn answering userText for r. The suggestion list
// is the role's full list, not specific to the chosen text.
func (r *Responder) Respond(ctx context.Context, userText string, rl role.Role) (chat.Turn, error) {
	msg, err := r.chain.Invoke(ctx, Request{Text: userText, Role: rl})
	if err != nil {
		return chat.Turn{}, fmt.Errorf("failed to run response chain: %w", err)
	}

	return chat.Turn{
		ID:          r.newID(),
		Text:        msg.Content,
		Sender:      chat.SenderBot,
		Timestamp:   r.now(),
		Suggestions: r.Suggestions(rl),
	}, nil
}

// Suggestions returns the canned follow-up prompts for a role.
func (r *Responder) Suggestions(rl role.Role) []string {
	return r.catalog.Resolve(rl).Suggestions
}

// Greet builds the welcome turn a new session starts with.
func (r *Responder) Greet(rl role.Role) chat.Turn {
	profile := r.catalog.Resolve(rl)
	return chat.Turn{
		ID: r.newID(),
		Text: fmt.Sprintf(
			"Xin chào! Tôi là trợ lý AI EduPal. Tôi sẽ hỗ trợ bạn với vai trò %s. Bạn có thể hỏi tôi về bất kỳ điều gì!",
			profile.AssistantLabel,
		),
		Sender:      chat.SenderBot,
		Timestamp:   r.now(),
		Suggestions: profile.Suggestions,
	}
}

func (r *Responder) resolvePool(_ context.Context, req Request) (pool, error) {
	profile := r.catalog.Resolve(req.Role)
	if len(profile.Responses) == 0 {
		return pool{}, fmt.Errorf("role %q: %w", req.Role, ErrEmptyPool)
	}
	return pool{role: req.Role, responses: profile.Responses}, nil
}

func (r *Responder) pick(_ context.Context, p pool) (*schema.Message, error) {
	idx := r.source.IntN(len(p.responses))
	if idx < 0 || idx >= len(p.responses) {
		return nil, fmt.Errorf("source returned index %d outside pool of %d", idx, len(p.responses))
	}
	return schema.AssistantMessage(p.responses[idx], nil), nil
}
