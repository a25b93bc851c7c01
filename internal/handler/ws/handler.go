package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/textmate/backend/internal/model/persona"
	chatservice "github.com/zhouzirui/textmate/backend/internal/service/chat"
	"github.com/zhouzirui/textmate/backend/internal/service/typing"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket 聊天处理器：收到用户消息后先推送 typing，再按打字延迟推送回复。
type Handler struct {
	responder *chatservice.Responder
	upgrader  websocket.Upgrader
}

// New 创建WebSocket处理器
func New(responder *chatservice.Responder) *Handler {
	return &Handler{
		responder: responder,
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
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ReplyFrame 是 message 帧的数据部分
type ReplyFrame struct {
	Content       string `json:"content"`
	Timestamp     string `json:"timestamp"`
	TypingDelayMs int64  `json:"typingDelayMs"`
}

// conn 串行化写操作，gorilla 连接不允许并发写。
type conn struct {
	*websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *conn) send(msgType string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	contact, err := h.responder.Persona(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "persona not found", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	c := &conn{Conn: ws, sessionID: sessionID}
	log.Printf("[websocket] new connection session=%s persona=%s", sessionID, contact.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, ws)

	_ = c.send("connected", map[string]any{
		"persona": contact.ID,
		"name":    contact.Name,
		"initial": contact.Initial(),
		"online":  contact.Online,
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error session=%s: %v", sessionID, err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		if err := h.handleMessage(ctx, c, contact, msg); err != nil {
			log.Printf("[websocket] closing session=%s: %v", sessionID, err)
			return
		}
	}
}

// handleMessage 处理一条入站消息；返回错误时连接会被关闭。
func (h *Handler) handleMessage(ctx context.Context, c *conn, contact persona.Persona, msg inboundMessage) error {
	if msg.Type != "message" {
		return c.send("error", map[string]string{"message": "unsupported message type: " + msg.Type})
	}
	if strings.TrimSpace(msg.Text) == "" {
		return c.send("error", map[string]string{"message": chatservice.ErrEmptyMessage.Error()})
	}

	if err := c.send("typing", map[string]string{
		"persona": contact.ID,
		"text":    fmt.Sprintf("%s is typing...", contact.Name),
	}); err != nil {
		return err
	}

	turn, err := h.responder.Respond(ctx, c.sessionID, msg.Text)
	if err != nil {
		log.Printf("[websocket] reply failed session=%s: %v", c.sessionID, err)
		return c.send("error", map[string]string{"message": "reply failed"})
	}

	if err := typing.Wait(ctx, turn.TypingDelay); err != nil {
		return err
	}

	return c.send("message", ReplyFrame{
		Content:       turn.Reply.Content,
		Timestamp:     turn.Reply.Timestamp,
		TypingDelayMs: turn.TypingDelayMs(),
	})
}

func (h *Handler) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
