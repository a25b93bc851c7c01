package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/textmate/backend/internal/model/chat"
	"github.com/zhouzirui/textmate/backend/internal/model/persona"
	chatservice "github.com/zhouzirui/textmate/backend/internal/service/chat"
	"github.com/zhouzirui/textmate/backend/internal/service/typing"
)

type fakeReplier struct {
	reply   string
	calls   int
	message string
	history []chat.Message
	name    string
}

func (f *fakeReplier) GenerateReply(_ context.Context, message string, history []chat.Message, name, _ string) string {
	f.calls++
	f.message = message
	f.history = history
	f.name = name
	return f.reply
}

func setupRouter() (*chi.Mux, *chatservice.Service, persona.Store, *fakeReplier) {
	chatSvc := chatservice.NewService()
	store := persona.NewMemoryStore(persona.Seed())
	replier := &fakeReplier{reply: "haha nice"}
	handler := New(chatSvc, store, replier, typing.NewPacer())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc, store, replier
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	switch v := body.(type) {
	case []byte:
		payload = v
	default:
		payload, _ = json.Marshal(v)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSessionValidPersona(t *testing.T) {
	r, _, store, _ := setupRouter()
	personas := store.List()

	resp := doJSON(r, http.MethodPost, "/session", map[string]any{"personaId": personas[0].ID})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestCreateSessionInvalidPersona(t *testing.T) {
	r, _, _, _ := setupRouter()

	resp := doJSON(r, http.MethodPost, "/session", map[string]string{"personaId": "non-existent"})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateSessionMissingPersonaID(t *testing.T) {
	r, _, _, _ := setupRouter()

	resp := doJSON(r, http.MethodPost, "/session", []byte(`{}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestReplyStateless(t *testing.T) {
	r, _, _, replier := setupRouter()

	resp := doJSON(r, http.MethodPost, "/reply", map[string]any{
		"message": "so relieved!",
		"history": []map[string]string{
			{"role": "assistant", "content": "hey!", "timestamp": "10:30 AM"},
			{"role": "user", "content": "hi! just finished that project", "timestamp": "10:31 AM"},
		},
		"personaName": "Alex",
	})

	require.Equal(t, http.StatusOK, resp.Code)

	var body replyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "haha nice", body.Reply)
	assert.EqualValues(t, 1000, body.TypingDelayMs)

	assert.Equal(t, "so relieved!", replier.message)
	assert.Equal(t, "Alex", replier.name)
	require.Len(t, replier.history, 2)
	assert.Equal(t, chat.RoleAssistant, replier.history[0].Role)
}

func TestReplyRejectsBlankMessage(t *testing.T) {
	r, _, _, replier := setupRouter()

	resp := doJSON(r, http.MethodPost, "/reply", map[string]any{"message": "  \n"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, replier.calls)
}

func TestReplyRejectsUnknownRole(t *testing.T) {
	r, _, _, _ := setupRouter()

	resp := doJSON(r, http.MethodPost, "/reply", []byte(`{"message":"hi","history":[{"role":"system","content":"x"}]}`))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSendMessageRoundTrip(t *testing.T) {
	r, chatSvc, _, replier := setupRouter()
	session, err := chatSvc.CreateSession(context.Background(), "alex", false)
	require.NoError(t, err)

	resp := doJSON(r, http.MethodPost, "/session/"+session.ID+"/messages", map[string]string{"content": "guess what"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Reply         chat.Message `json:"reply"`
		UserMessage   chat.Message `json:"userMessage"`
		TypingDelayMs int64        `json:"typingDelayMs"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "haha nice", body.Reply.Content)
	assert.Equal(t, "guess what", body.UserMessage.Content)
	assert.Empty(t, replier.history)

	list := doJSON(r, http.MethodGet, "/session/"+session.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, list.Code)

	var transcript struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &transcript))
	require.Len(t, transcript.Messages, 2)
	assert.Equal(t, chat.RoleUser, transcript.Messages[0].Role)
	assert.Equal(t, chat.RoleAssistant, transcript.Messages[1].Role)
}

func TestSendMessageUnknownSession(t *testing.T) {
	r, _, _, _ := setupRouter()

	resp := doJSON(r, http.MethodPost, "/session/missing/messages", map[string]string{"content": "hi"})

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSendMessageBlankContent(t *testing.T) {
	r, chatSvc, _, replier := setupRouter()
	session, _ := chatSvc.CreateSession(context.Background(), "alex", false)

	resp := doJSON(r, http.MethodPost, "/session/"+session.ID+"/messages", map[string]string{"content": ""})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, replier.calls)
}
