package responder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/edupal/backend/internal/model/chat"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	"github.com/zhouzirui/edupal/backend/internal/service/responder"
)

type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

func newResponder(t *testing.T, opts ...responder.Option) *responder.Responder {
	t.Helper()
	r, err := responder.New(context.Background(), role.DefaultCatalog(), opts...)
	require.NoError(t, err)
	return r
}

func TestRespondPicksFromRolePool(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := newResponder(t,
		responder.WithSource(fixedSource(1)),
		responder.WithClock(func() time.Time { return fixed }),
		responder.WithIDGenerator(func() string { return "bot-1" }),
	)

	turn, err := r.Respond(context.Background(), "Hello", role.Teacher)
	require.NoError(t, err)

	teacher := role.DefaultCatalog().Resolve(role.Teacher)
	assert.Equal(t, "bot-1", turn.ID)
	assert.Equal(t, chat.SenderBot, turn.Sender)
	assert.Equal(t, teacher.Responses[1], turn.Text)
	assert.Equal(t, fixed, turn.Timestamp)
	assert.Equal(t, teacher.Suggestions, turn.Suggestions)
}

func TestRespondUnknownRoleFallsBackToStudentPool(t *testing.T) {
	r := newResponder(t, responder.WithSource(fixedSource(2)))

	turn, err := r.Respond(context.Background(), "hi", role.Role("guest"))
	require.NoError(t, err)

	student := role.DefaultCatalog().Resolve(role.Student)
	assert.Equal(t, student.Responses[2], turn.Text)
	assert.Equal(t, []string{"Hỗ trợ tổng quát"}, turn.Suggestions)
}

func TestRespondDefaultSourceStaysInPool(t *testing.T) {
	r := newResponder(t)
	admin := role.DefaultCatalog().Resolve(role.Admin)

	for i := 0; i < 20; i++ {
		turn, err := r.Respond(context.Background(), "report", role.Admin)
		require.NoError(t, err)
		assert.Contains(t, admin.Responses, turn.Text)
	}
}

func TestRespondRejectsBadSourceIndex(t *testing.T) {
	r := newResponder(t, responder.WithSource(negativeSource{}))

	_, err := r.Respond(context.Background(), "hi", role.Student)
	assert.Error(t, err)
}

type negativeSource struct{}

func (negativeSource) IntN(int) int { return -1 }

func TestRespondEmptyPool(t *testing.T) {
	catalog := role.NewCatalog([]role.Profile{{Role: role.Student, Suggestions: []string{"x"}}}, role.Profile{})
	r, err := responder.New(context.Background(), catalog)
	require.NoError(t, err)

	_, err = r.Respond(context.Background(), "hi", role.Student)
	require.Error(t, err)
	assert.Contains(t, err.Error(), responder.ErrEmptyPool.Error())
}

func TestSuggestions(t *testing.T) {
	r := newResponder(t)

	student := r.Suggestions(role.Student)
	require.Len(t, student, 4)
	assert.Contains(t, student, "Tạo lộ trình học cho tôi")
	assert.Len(t, r.Suggestions(role.Teacher), 4)
	assert.Len(t, r.Suggestions(role.Admin), 4)
	assert.Equal(t, []string{"Hỗ trợ tổng quát"}, r.Suggestions(role.Role("visitor")))
}

func TestGreetMentionsRoleLabel(t *testing.T) {
	r := newResponder(t)

	turn := r.Greet(role.Teacher)
	assert.Equal(t, chat.SenderBot, turn.Sender)
	assert.Contains(t, turn.Text, "vai trò giáo viên")
	assert.Equal(t, r.Suggestions(role.Teacher), turn.Suggestions)
}
