package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/textmate/backend/internal/handler/chat"
	"github.com/zhouzirui/textmate/backend/internal/handler/persona"
	"github.com/zhouzirui/textmate/backend/internal/handler/stream"
	"github.com/zhouzirui/textmate/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/textmate/backend/internal/middleware"
	personaModel "github.com/zhouzirui/textmate/backend/internal/model/persona"
	aiService "github.com/zhouzirui/textmate/backend/internal/service/ai"
	chatService "github.com/zhouzirui/textmate/backend/internal/service/chat"
	"github.com/zhouzirui/textmate/backend/internal/service/typing"
	"github.com/zhouzirui/textmate/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. ledger may be nil, in which
// case /api/usage reports zero totals.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, replier chatService.Replier, ledger *aiService.UsageLedger, pacer typing.Pacer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	responder := chatService.NewResponder(chatSvc, personas, replier, pacer)

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, personas, replier, pacer)
	streamHandler := stream.New(responder)
	wsHandler := ws.New(responder)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		// Typing-paced reply over SSE
		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			// Headers are already sent once streaming starts; errors go out as SSE events.
			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request session=%s: %v", sessionID, err)
			}
		})

		api.Get("/usage", func(w http.ResponseWriter, r *http.Request) {
			var totals aiService.UsageTotals
			if ledger != nil {
				totals = ledger.Snapshot()
			}
			utils.RespondJSON(w, http.StatusOK, totals)
		})
	})

	return r
}
