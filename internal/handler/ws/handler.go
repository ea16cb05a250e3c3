package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/edupal/backend/internal/model/chat"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	chatService "github.com/zhouzirui/edupal/backend/internal/service/chat"
	"github.com/zhouzirui/edupal/backend/internal/service/conversation"
	"github.com/zhouzirui/edupal/backend/internal/validation"
	"github.com/zhouzirui/edupal/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket会话处理器
type Handler struct {
	chatSvc      *chatService.Service
	maxMsgLength int
	upgrader     websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service, maxMsgLength int) *Handler {
	if maxMsgLength <= 0 {
		maxMsgLength = 2000
	}
	return &Handler{
		chatSvc:      chatSvc,
		maxMsgLength: maxMsgLength,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 用户输入
type TextMessage struct {
	Text string `json:"text"`
	Role string `json:"role"`
}

// RoleMessage 切换角色
type RoleMessage struct {
	Role string `json:"role"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// connection 单个连接的状态；所有写操作都经由 writeLoop
type connection struct {
	conn    *websocket.Conn
	session *conversation.Session
	send    chan outgoingMessage
	logger  zerolog.Logger
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &connection{
		conn:    conn,
		session: session,
		send:    make(chan outgoingMessage, 16),
		logger:  log.With().Str("session_id", sessionID).Logger(),
	}
	c.logger.Info().Msg("websocket connected")
	defer c.logger.Info().Msg("websocket disconnected")

	// 连接与请求生命周期解耦，由读写循环自行结束
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe := session.Subscribe(32)
	defer unsubscribe()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	c.enqueue(ctx, outgoingMessage{Type: "snapshot", Data: session.Snapshot()})

	go c.writeLoop(ctx, cancel, events)
	go c.pingLoop(ctx)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError(ctx, "session mismatch")
			continue
		}
		h.handleMessage(ctx, c, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, c, msg.Data)
	case "role":
		h.handleRoleMessage(ctx, c, msg.Data)
	default:
		c.sendError(ctx, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, c *connection, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		c.sendError(ctx, "invalid text payload")
		return
	}
	if err := validation.MaxLength("text", text.Text, h.maxMsgLength); err != nil {
		c.sendError(ctx, err.Error())
		return
	}

	submission, err := c.session.Submit(text.Text, role.Parse(text.Role))
	if err != nil {
		c.sendError(ctx, err.Error())
		return
	}
	c.sendInfo(ctx, map[string]any{
		"type":     "submitted",
		"accepted": submission.Accepted,
		"pending":  submission.Pending,
	})
}

func (h *Handler) handleRoleMessage(ctx context.Context, c *connection, raw json.RawMessage) {
	var payload RoleMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(ctx, "invalid role payload")
		return
	}

	snapshot, err := h.chatSvc.SetRole(ctx, c.session.ID(), role.Parse(payload.Role))
	if err != nil {
		c.sendError(ctx, err.Error())
		return
	}
	c.sendInfo(ctx, map[string]any{
		"type": "role",
		"role": snapshot.Role,
	})
}

// writeLoop 是连接上唯一的数据写入者；会话关闭后发送 close 帧并断开
func (c *connection) writeLoop(ctx context.Context, cancel context.CancelFunc, events <-chan chat.Event) {
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				c.shutdown()
				return
			}
			if err := c.write(outgoingMessage{Type: string(ev.Type), Data: ev}); err != nil {
				return
			}
			if ev.Type == chat.EventClosed {
				c.shutdown()
				return
			}
		}
	}
}

func (c *connection) write(msg outgoingMessage) error {
	msg.SessionID = c.session.ID()
	msg.Timestamp = time.Now().Unix()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn().Err(err).Str("type", msg.Type).Msg("websocket write failed")
		return err
	}
	return nil
}

func (c *connection) shutdown() {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"), deadline)
	_ = c.conn.Close()
}

func (c *connection) enqueue(ctx context.Context, msg outgoingMessage) {
	select {
	case c.send <- msg:
	case <-ctx.Done():
	}
}

func (c *connection) sendInfo(ctx context.Context, data map[string]any) {
	c.enqueue(ctx, outgoingMessage{Type: "result", Data: data})
}

func (c *connection) sendError(ctx context.Context, message string) {
	c.enqueue(ctx, outgoingMessage{Type: "error", Data: map[string]string{"message": message}})
}

// pingLoop 定期发送ping消息
func (c *connection) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
