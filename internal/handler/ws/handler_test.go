package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/edupal/backend/internal/model/role"
	chatservice "github.com/zhouzirui/edupal/backend/internal/service/chat"
	"github.com/zhouzirui/edupal/backend/internal/service/conversation"
	"github.com/zhouzirui/edupal/backend/internal/service/responder"
)

type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func setup(t *testing.T, cfg chatservice.Config) (*httptest.Server, *chatservice.Service, *conversation.Session) {
	t.Helper()
	resp, err := responder.New(context.Background(), role.DefaultCatalog())
	require.NoError(t, err)

	chatSvc := chatservice.NewService(resp, cfg)
	t.Cleanup(chatSvc.Shutdown)

	session, err := chatSvc.CreateSession(context.Background(), role.Student, "")
	require.NoError(t, err)

	r := chi.NewRouter()
	New(chatSvc, 100).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc, session
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + sessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebSocketSnapshotOnConnect(t *testing.T) {
	srv, _, session := setup(t, chatservice.Config{})
	conn := dial(t, srv, session.ID())

	f := readFrame(t, conn)
	assert.Equal(t, "snapshot", f.Type)
	assert.Equal(t, session.ID(), f.SessionID)
	assert.NotZero(t, f.Timestamp)
}

func TestWebSocketTextProducesReply(t *testing.T) {
	srv, _, session := setup(t, chatservice.Config{ResponseDelay: 20 * time.Millisecond})
	conn := dial(t, srv, session.ID())
	require.Equal(t, "snapshot", readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "text",
		"data": map[string]string{"text": "Hello"},
	}))

	var turns, results int
	for turns < 2 || results < 1 {
		f := readFrame(t, conn)
		switch f.Type {
		case "turn":
			turns++
		case "result":
			results++
			assert.Contains(t, string(f.Data), `"accepted":true`)
		}
	}

	assert.Len(t, session.Turns(), 3)
}

func TestWebSocketRoleChange(t *testing.T) {
	srv, _, session := setup(t, chatservice.Config{})
	conn := dial(t, srv, session.ID())
	require.Equal(t, "snapshot", readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "role",
		"data": map[string]string{"role": "teacher"},
	}))

	f := readFrame(t, conn)
	assert.Equal(t, "result", f.Type)
	assert.Contains(t, string(f.Data), `"role":"teacher"`)
	assert.Equal(t, role.Teacher, session.Role())
}

func TestWebSocketRejectsUnknownType(t *testing.T) {
	srv, _, session := setup(t, chatservice.Config{})
	conn := dial(t, srv, session.ID())
	require.Equal(t, "snapshot", readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audio"}))

	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Contains(t, string(f.Data), "unsupported message type")
}

func TestWebSocketClosesWithSession(t *testing.T) {
	srv, chatSvc, session := setup(t, chatservice.Config{})
	conn := dial(t, srv, session.ID())
	require.Equal(t, "snapshot", readFrame(t, conn).Type)

	require.NoError(t, chatSvc.CloseSession(context.Background(), session.ID()))

	assert.Equal(t, "closed", readFrame(t, conn).Type)

	var f frame
	err := conn.ReadJSON(&f)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _, _ := setup(t, chatservice.Config{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
