package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhouzirui/textmate/backend/internal/model/chat"
	"github.com/zhouzirui/textmate/backend/internal/model/persona"
	"github.com/zhouzirui/textmate/backend/internal/service/typing"
)

var ErrEmptyMessage = errors.New("message must not be blank")

// Replier produces the contact's next text. It never fails; failures come
// back as a fallback string.
type Replier interface {
	GenerateReply(ctx context.Context, message string, history []chat.Message, personaName, personaDescription string) string
}

// Turn is one user message and the reply it produced.
type Turn struct {
	SessionID   string        `json:"sessionId"`
	UserMessage chat.Message  `json:"userMessage"`
	Reply       chat.Message  `json:"reply"`
	TypingDelay time.Duration `json:"-"`
}

// TypingDelayMs is the pacing hint sent to clients.
func (t Turn) TypingDelayMs() int64 {
	return t.TypingDelay.Milliseconds()
}

// Responder runs a full turn against a stored session.
type Responder struct {
	chats    *Service
	personas persona.Store
	replier  Replier
	pacer    typing.Pacer
}

// NewResponder wires the session store, contacts and reply pipeline.
func NewResponder(chats *Service, personas persona.Store, replier Replier, pacer typing.Pacer) *Responder {
	return &Responder{
		chats:    chats,
		personas: personas,
		replier:  replier,
		pacer:    pacer,
	}
}

// Pacer exposes the typing pacing used for replies.
func (r *Responder) Pacer() typing.Pacer {
	return r.pacer
}

// Persona resolves the contact bound to a session.
func (r *Responder) Persona(ctx context.Context, sessionID string) (persona.Persona, error) {
	session, err := r.chats.GetSession(ctx, sessionID)
	if err != nil {
		return persona.Persona{}, err
	}

	p, ok := r.personas.FindByID(session.PersonaID)
	if !ok {
		return persona.Persona{}, fmt.Errorf("persona %s: %w", session.PersonaID, persona.ErrPersonaNotFound)
	}
	return p, nil
}

// Respond stores the user's message, asks for a reply using the history as
// it was before the message, stores the reply and returns both.
func (r *Responder) Respond(ctx context.Context, sessionID, content string) (Turn, error) {
	if strings.TrimSpace(content) == "" {
		return Turn{}, ErrEmptyMessage
	}

	contact, err := r.Persona(ctx, sessionID)
	if err != nil {
		return Turn{}, err
	}

	history, err := r.chats.LoadTranscript(ctx, sessionID)
	if err != nil {
		return Turn{}, err
	}

	userMsg, err := r.chats.SaveMessage(ctx, sessionID, chat.Message{Role: chat.RoleUser, Content: content})
	if err != nil {
		return Turn{}, err
	}

	text := r.replier.GenerateReply(ctx, content, history, contact.Name, contact.Description)

	replyMsg, err := r.chats.SaveMessage(ctx, sessionID, chat.Message{Role: chat.RoleAssistant, Content: text})
	if err != nil {
		return Turn{}, err
	}

	return Turn{
		SessionID:   sessionID,
		UserMessage: userMsg,
		Reply:       replyMsg,
		TypingDelay: r.pacer.Delay(text),
	}, nil
}
