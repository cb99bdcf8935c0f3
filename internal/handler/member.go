package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
	"github.com/dukerupert/chorecal/internal/store"
	"github.com/dukerupert/chorecal/internal/websocket"
)

type MemberHandler struct {
	store  *store.MemberStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewMemberHandler(s *store.MemberStore, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{store: s, hub: hub, logger: logger}
}

func (h *MemberHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.List()
	if err != nil {
		writeError(w, h.logger, "list members", err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, h.logger, "create member", &recurrence.ValidationError{Field: "name", Message: "name is required"})
		return
	}

	member, err := h.store.Create(name)
	if err != nil {
		writeError(w, h.logger, "create member", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionCreated, member.ID))
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeError(w, h.logger, "delete member", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionDeleted, id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
