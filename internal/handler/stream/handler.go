package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"

	chatService "github.com/zhouzirui/textmate/backend/internal/service/chat"
	"github.com/zhouzirui/textmate/backend/internal/service/typing"
	"github.com/zhouzirui/textmate/backend/pkg/utils"
)

// Handler paces replies to the browser via Server-Sent Events: a typing
// event first, the reply once the typing delay has elapsed.
type Handler struct {
	responder *chatService.Responder
}

// New creates a new stream handler
func New(responder *chatService.Responder) *Handler {
	return &Handler{responder: responder}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event         string `json:"event"`
	Content       string `json:"content,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	TypingDelayMs int64  `json:"typingDelayMs,omitempty"`
	Finished      bool   `json:"finished,omitempty"`
	Error         string `json:"error,omitempty"`
}

// HandleStreamRequest runs one turn for the session and streams its pacing.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	contact, err := h.responder.Persona(ctx, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to get session persona: %v", err))
		return err
	}

	if err := h.sendSSE(w, flusher, StreamResponse{
		Event:     "typing",
		SessionID: sessionID,
		Content:   fmt.Sprintf("%s is typing...", contact.Name),
	}); err != nil {
		return err
	}

	turn, err := h.responder.Respond(ctx, sessionID, userMessage)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("reply failed: %v", err))
		return err
	}

	if err := typing.Wait(ctx, turn.TypingDelay); err != nil {
		log.Printf("[stream] client left before reply was shown session=%s: %v", sessionID, err)
		return nil
	}

	if err := h.sendSSE(w, flusher, StreamResponse{
		Event:         "message",
		SessionID:     sessionID,
		Content:       turn.Reply.Content,
		Timestamp:     turn.Reply.Timestamp,
		TypingDelayMs: turn.TypingDelayMs(),
	}); err != nil {
		return err
	}

	if err := h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	}); err != nil {
		return err
	}

	log.Printf("[stream] completed response for session=%s, persona=%s", sessionID, contact.ID)
	return nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) error {
	return utils.SendSSEChunk(w, flusher, response)
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	_ = h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
