package persona

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/textmate/backend/internal/model/persona"
	"github.com/zhouzirui/textmate/backend/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	personas persona.Store
}

// New 创建persona处理器
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/personas/{personaID}", h.handleGetPersona)
	r.Put("/personas/{personaID}", h.handleUpdatePersona)
}

// handleListPersonas 列出所有persona
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

// handleGetPersona 查询单个联系人
func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personas.FindByID(chi.URLParam(r, "personaID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

// handleUpdatePersona 修改联系人资料（名字、头像、性格、在线状态）
func (h *Handler) handleUpdatePersona(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "personaID")
	current, ok := h.personas.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}

	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ImageURL    *string `json:"imageUrl"`
		Online      *bool   `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// 名字与性格允许为空，生成回复时会回退到默认人设。
	if payload.Name != nil {
		current.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Description != nil {
		current.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.ImageURL != nil {
		current.ImageURL = strings.TrimSpace(*payload.ImageURL)
	}
	if payload.Online != nil {
		current.Online = *payload.Online
	}

	updated, err := h.personas.Update(current)
	if err != nil {
		if errors.Is(err, persona.ErrPersonaNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, updated)
}
