package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/edupal/backend/internal/model/chat"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	"github.com/zhouzirui/edupal/backend/internal/service/conversation"
	"github.com/zhouzirui/edupal/backend/internal/service/responder"
)

type fakeTask struct {
	mu      sync.Mutex
	delay   time.Duration
	f       func()
	fired   bool
	stopped bool
}

func (t *fakeTask) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler records tasks and runs them only when the test says so.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) conversation.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &fakeTask{delay: d, f: f}
	s.tasks = append(s.tasks, task)
	return task
}

func (s *fakeScheduler) live() []*fakeTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTask
	for _, task := range s.tasks {
		task.mu.Lock()
		if !task.fired && !task.stopped {
			out = append(out, task)
		}
		task.mu.Unlock()
	}
	return out
}

func (s *fakeScheduler) fireNext(t *testing.T) {
	t.Helper()
	live := s.live()
	require.NotEmpty(t, live, "no scheduled task to fire")
	task := live[0]
	task.mu.Lock()
	task.fired = true
	task.mu.Unlock()
	task.f()
}

type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

func newSession(t *testing.T, sched conversation.Scheduler, opts conversation.Options) *conversation.Session {
	t.Helper()
	resp, err := responder.New(context.Background(), role.DefaultCatalog(), responder.WithSource(fixedSource(0)))
	require.NoError(t, err)
	opts.Scheduler = sched
	if opts.Role == "" {
		opts.Role = role.Student
	}
	s := conversation.New(resp, opts)
	t.Cleanup(s.Close)
	return s
}

func TestSubmitAppendsUserTurnThenBotTurn(t *testing.T) {
	sched := &fakeScheduler{}
	s := newSession(t, sched, conversation.Options{})

	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, chat.SenderBot, turns[0].Sender)

	sub, err := s.Submit("Hello", role.Student)
	require.NoError(t, err)
	assert.True(t, sub.Accepted)
	assert.Equal(t, "Hello", sub.Turn.Text)
	assert.Equal(t, 1, sub.Pending)

	turns = s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, chat.SenderUser, turns[1].Sender)
	assert.True(t, s.Typing())

	live := sched.live()
	require.Len(t, live, 1)
	assert.Equal(t, conversation.DefaultResponseDelay, live[0].delay)

	sched.fireNext(t)

	turns = s.Turns()
	require.Len(t, turns, 3)
	assert.False(t, s.Typing())
	assert.Equal(t, chat.SenderBot, turns[2].Sender)
	assert.Contains(t, role.DefaultCatalog().Resolve(role.Student).Responses, turns[2].Text)
	assert.NotEqual(t, turns[1].ID, turns[2].ID)
}

func TestSubmitTrimsInput(t *testing.T) {
	s := newSession(t, &fakeScheduler{}, conversation.Options{})

	sub, err := s.Submit("  xin chào \n", "")
	require.NoError(t, err)
	assert.Equal(t, "xin chào", sub.Turn.Text)
}

func TestSubmitEmptyIsNoop(t *testing.T) {
	sched := &fakeScheduler{}
	s := newSession(t, sched, conversation.Options{})

	for _, text := range []string{"", "   ", "\t\n"} {
		sub, err := s.Submit(text, role.Student)
		require.NoError(t, err)
		assert.False(t, sub.Accepted)
	}

	assert.Len(t, s.Turns(), 1)
	assert.False(t, s.Typing())
	assert.Empty(t, sched.live())
}

func TestBotSuggestionsFollowRoleAtSubmission(t *testing.T) {
	sched := &fakeScheduler{}
	s := newSession(t, sched, conversation.Options{})

	_, err := s.Submit("Lớp của tôi thế nào?", role.Teacher)
	require.NoError(t, err)
	require.NoError(t, s.SetRole(role.Admin))

	sched.fireNext(t)

	turns := s.Turns()
	bot := turns[len(turns)-1]
	assert.Equal(t, role.DefaultCatalog().Resolve(role.Teacher).Suggestions, bot.Suggestions)
}

func TestEmptyRoleUsesSessionRole(t *testing.T) {
	sched := &fakeScheduler{}
	s := newSession(t, sched, conversation.Options{Role: role.Admin})

	_, err := s.Submit("status", "")
	require.NoError(t, err)
	sched.fireNext(t)

	turns := s.Turns()
	assert.Equal(t, role.DefaultCatalog().Resolve(role.Admin).Suggestions, turns[len(turns)-1].Suggestions)
}

func TestSubmissionsWhileTypingQueueInOrder(t *testing.T) {
	sched := &fakeScheduler{}
	s := newSession(t, sched, conversation.Options{})

	_, err := s.Submit("first", role.Student)
	require.NoError(t, err)
	sub, err := s.Submit("second", role.Teacher)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Pending)

	require.Len(t, sched.live(), 1, "only one reply may be in flight")

	sched.fireNext(t)
	assert.True(t, s.Typing(), "typing stays on while a reply is queued")
	assert.Equal(t, 1, s.Pending())
	require.Len(t, sched.live(), 1)

	sched.fireNext(t)
	assert.False(t, s.Typing())
	assert.Equal(t, 0, s.Pending())

	turns := s.Turns()
	require.Len(t, turns, 5)
	senders := []chat.Sender{turns[1].Sender, turns[2].Sender, turns[3].Sender, turns[4].Sender}
	assert.Equal(t, []chat.Sender{chat.SenderUser, chat.SenderUser, chat.SenderBot, chat.SenderBot}, senders)
	assert.Equal(t, role.DefaultCatalog().Resolve(role.Student).Suggestions, turns[3].Suggestions)
	assert.Equal(t, role.DefaultCatalog().Resolve(role.Teacher).Suggestions, turns[4].Suggestions)
}

func TestMaxPending(t *testing.T) {
	s := newSession(t, &fakeScheduler{}, conversation.Options{MaxPending: 1})

	_, err := s.Submit("one", "")
	require.NoError(t, err)
	_, err = s.Submit("two", "")
	assert.ErrorIs(t, err, conversation.ErrTooManyPending)
	assert.Len(t, s.Turns(), 2)
}

func TestCloseCancelsPendingReply(t *testing.T) {
	sched := &fakeScheduler{}
	s := newSession(t, sched, conversation.Options{})

	_, err := s.Submit("Hello", role.Student)
	require.NoError(t, err)
	tasks := sched.live()
	require.Len(t, tasks, 1)

	s.Close()

	assert.True(t, tasks[0].stopped)
	assert.False(t, s.Typing())
	assert.True(t, s.Closed())

	// A callback that raced past Stop must not touch the session.
	tasks[0].f()
	assert.Len(t, s.Turns(), 2)

	_, err = s.Submit("again", role.Student)
	assert.ErrorIs(t, err, conversation.ErrSessionClosed)
	assert.ErrorIs(t, s.SetRole(role.Admin), conversation.ErrSessionClosed)

	select {
	case <-s.Done():
	default:
		t.Fatal("expected Done to be closed")
	}

	s.Close()
}

func TestSubscribeObservesLifecycle(t *testing.T) {
	sched := &fakeScheduler{}
	s := newSession(t, sched, conversation.Options{})

	events, cancel := s.Subscribe(8)
	defer cancel()

	_, err := s.Submit("Hello", role.Student)
	require.NoError(t, err)
	sched.fireNext(t)
	s.Close()

	var got []chat.EventType
	for ev := range events {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []chat.EventType{
		chat.EventTurn,
		chat.EventTyping,
		chat.EventTurn,
		chat.EventTyping,
		chat.EventClosed,
	}, got)
}

func TestSubscribeAfterClose(t *testing.T) {
	s := newSession(t, &fakeScheduler{}, conversation.Options{})
	s.Close()

	events, cancel := s.Subscribe(1)
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestCancelSubscription(t *testing.T) {
	s := newSession(t, &fakeScheduler{}, conversation.Options{})

	events, cancel := s.Subscribe(1)
	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)

	_, err := s.Submit("still works", "")
	require.NoError(t, err)
}

type failingResponder struct {
	conversation.Responder
}

func (failingResponder) Respond(context.Context, string, role.Role) (chat.Turn, error) {
	return chat.Turn{}, errors.New("boom")
}

func TestResponderFailureClearsTyping(t *testing.T) {
	base, err := responder.New(context.Background(), role.DefaultCatalog())
	require.NoError(t, err)

	sched := &fakeScheduler{}
	s := conversation.New(failingResponder{Responder: base}, conversation.Options{Scheduler: sched})
	defer s.Close()

	_, err = s.Submit("Hello", role.Student)
	require.NoError(t, err)
	sched.fireNext(t)

	assert.False(t, s.Typing())
	assert.Len(t, s.Turns(), 2)
}

func TestSnapshot(t *testing.T) {
	s := newSession(t, &fakeScheduler{}, conversation.Options{ID: "abc", UserName: "Nguyễn Văn A"})

	_, err := s.Submit("Hello", "")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "abc", snap.ID)
	assert.Equal(t, role.Student, snap.Role)
	assert.Equal(t, "Nguyễn Văn A", snap.UserName)
	assert.Len(t, snap.Turns, 2)
	assert.True(t, snap.Typing)
	assert.Equal(t, 1, snap.Pending)

	snap.Turns[0].Suggestions[0] = "mutated"
	assert.NotEqual(t, "mutated", s.Turns()[0].Suggestions[0])
}

func TestRealSchedulerDeliversReply(t *testing.T) {
	s := newSession(t, conversation.RealScheduler{}, conversation.Options{ResponseDelay: 10 * time.Millisecond})

	_, err := s.Submit("Hello", role.Student)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !s.Typing() }, time.Second, 5*time.Millisecond)
	assert.Len(t, s.Turns(), 3)
}
