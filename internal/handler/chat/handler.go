package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/textmate/backend/internal/model/chat"
	"github.com/zhouzirui/textmate/backend/internal/model/persona"
	chatService "github.com/zhouzirui/textmate/backend/internal/service/chat"
	"github.com/zhouzirui/textmate/backend/internal/service/typing"
	"github.com/zhouzirui/textmate/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc      *chatService.Service
	personaStore persona.Store
	responder    *chatService.Responder
	replier      chatService.Replier
	pacer        typing.Pacer
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, personaStore persona.Store, replier chatService.Replier, pacer typing.Pacer) *Handler {
	return &Handler{
		chatSvc:      chatSvc,
		personaStore: personaStore,
		responder:    chatService.NewResponder(chatSvc, personaStore, replier, pacer),
		replier:      replier,
		pacer:        pacer,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/reply", h.handleReply)
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Post("/session/{sessionID}/messages", h.handleSendMessage)
}

type replyRequest struct {
	Message            string         `json:"message"`
	History            []chat.Message `json:"history"`
	PersonaName        string         `json:"personaName"`
	PersonaDescription string         `json:"personaDescription"`
}

type replyResponse struct {
	Reply         string `json:"reply"`
	TypingDelayMs int64  `json:"typingDelayMs"`
}

// handleReply 无状态回复：客户端自带历史记录
func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request) {
	var payload replyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	history := append([]chat.Message(nil), payload.History...)
	reply := h.replier.GenerateReply(r.Context(), payload.Message, history, payload.PersonaName, payload.PersonaDescription)

	utils.RespondJSON(w, http.StatusOK, replyResponse{
		Reply:         reply,
		TypingDelayMs: h.pacer.Delay(reply).Milliseconds(),
	})
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
		Seed      bool   `json:"seed"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.PersonaID == "" {
		utils.RespondError(w, http.StatusBadRequest, "personaId is required")
		return
	}

	if _, ok := h.personaStore.FindByID(payload.PersonaID); !ok {
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID, payload.Seed)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleListMessages 返回会话记录
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

// handleSendMessage 保存用户消息并生成回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.responder.Respond(r.Context(), sessionID, payload.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId":     turn.SessionID,
		"userMessage":   turn.UserMessage,
		"reply":         turn.Reply,
		"typingDelayMs": turn.TypingDelayMs(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, persona.ErrPersonaNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled):
		log.Printf("[chat] request cancelled: %v", err)
	default:
		log.Printf("[chat] request failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
