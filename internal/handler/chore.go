package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/chorecal/internal/chore"
	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
	"github.com/dukerupert/chorecal/internal/store"
	"github.com/dukerupert/chorecal/internal/websocket"
)

type ChoreHandler struct {
	choreStore   *store.ChoreStore
	memberStore  *store.MemberStore
	materializer *chore.Materializer
	hub          *websocket.Hub
	maxQueryDays int
	logger       *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, ms *store.MemberStore, m *chore.Materializer, hub *websocket.Hub, maxQueryDays int, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{
		choreStore:   cs,
		memberStore:  ms,
		materializer: m,
		hub:          hub,
		maxQueryDays: maxQueryDays,
		logger:       logger,
	}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type choreRequest struct {
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	Color                string  `json:"color"`
	AssigneeID           *int64  `json:"assigneeId"`
	StartDate            string  `json:"startDate"`
	EndDate              *string `json:"endDate"`
	RecurrenceType       string  `json:"recurrenceType"`
	RecurrenceInterval   *int    `json:"recurrenceInterval"`
	RecurrenceDaysOfWeek []int   `json:"recurrenceDaysOfWeek"`
	RecurrenceDayOfMonth *int    `json:"recurrenceDayOfMonth"`
}

// toChore validates the request and builds the chore it describes. The
// interval defaults to 1 only when omitted; an explicit 0 is rejected.
func (req choreRequest) toChore() (model.Chore, error) {
	c := model.Chore{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Color:       strings.TrimSpace(req.Color),
		AssigneeID:  req.AssigneeID,
	}
	if c.Title == "" {
		return c, &recurrence.ValidationError{Field: "title", Message: "title is required"}
	}

	start, err := recurrence.ParseDate(req.StartDate)
	if err != nil {
		return c, &recurrence.ValidationError{Field: "startDate", Message: "must be YYYY-MM-DD"}
	}
	c.StartDate = start
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := recurrence.ParseDate(*req.EndDate)
		if err != nil {
			return c, &recurrence.ValidationError{Field: "endDate", Message: "must be YYYY-MM-DD"}
		}
		c.EndDate = &end
	}

	f := recurrence.Fields{
		Type:       req.RecurrenceType,
		Interval:   1,
		DaysOfWeek: req.RecurrenceDaysOfWeek,
	}
	if req.RecurrenceInterval != nil {
		f.Interval = *req.RecurrenceInterval
	}
	if req.RecurrenceDayOfMonth != nil {
		f.DayOfMonth = *req.RecurrenceDayOfMonth
	}
	if c.Rule, err = recurrence.Parse(f); err != nil {
		return c, err
	}
	return c, c.Validate()
}

type choreResponse struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Color                string    `json:"color"`
	AssigneeID           *int64    `json:"assigneeId"`
	StartDate            string    `json:"startDate"`
	EndDate              *string   `json:"endDate"`
	RecurrenceType       string    `json:"recurrenceType"`
	RecurrenceInterval   int       `json:"recurrenceInterval"`
	RecurrenceDaysOfWeek []int     `json:"recurrenceDaysOfWeek,omitempty"`
	RecurrenceDayOfMonth *int      `json:"recurrenceDayOfMonth,omitempty"`
	RecurrenceSummary    string    `json:"recurrenceSummary"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func newChoreResponse(c *model.Chore) choreResponse {
	f := recurrence.Encode(c.Rule)
	resp := choreResponse{
		ID:                   c.ID,
		Title:                c.Title,
		Description:          c.Description,
		Color:                c.Color,
		AssigneeID:           c.AssigneeID,
		StartDate:            recurrence.FormatDate(c.StartDate),
		RecurrenceType:       f.Type,
		RecurrenceInterval:   f.Interval,
		RecurrenceDaysOfWeek: f.DaysOfWeek,
		RecurrenceSummary:    c.Rule.Describe(),
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
	if c.EndDate != nil {
		end := recurrence.FormatDate(*c.EndDate)
		resp.EndDate = &end
	}
	if f.DayOfMonth != 0 {
		resp.RecurrenceDayOfMonth = &f.DayOfMonth
	}
	return resp
}

// Events materializes every chore occurrence in the requested window.
func (h *ChoreHandler) Events(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r, h.maxQueryDays)
	if err != nil {
		writeError(w, h.logger, "list events", err)
		return
	}

	chores, err := h.choreStore.ListActive(win.Start, win.End)
	if err != nil {
		writeError(w, h.logger, "list chores", err)
		return
	}
	members, err := h.memberStore.List()
	if err != nil {
		writeError(w, h.logger, "list members", err)
		return
	}

	events, err := h.materializer.Materialize(chores, members, win)
	if err != nil {
		writeError(w, h.logger, "materialize events", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	c, err := h.choreStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, "get chore", err)
		return
	}
	if c == nil {
		writeMessage(w, http.StatusNotFound, "chore not found")
		return
	}
	writeJSON(w, http.StatusOK, newChoreResponse(c))
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	c, err := req.toChore()
	if err != nil {
		writeError(w, h.logger, "create chore", err)
		return
	}

	created, err := h.choreStore.Create(c)
	if err != nil {
		writeError(w, h.logger, "create chore", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChore, websocket.ActionCreated, created.ID))
	writeJSON(w, http.StatusCreated, newChoreResponse(created))
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	c, err := req.toChore()
	if err != nil {
		writeError(w, h.logger, "update chore", err)
		return
	}

	updated, err := h.choreStore.Update(id, c)
	if err != nil {
		writeError(w, h.logger, "update chore", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChore, websocket.ActionUpdated, id))
	writeJSON(w, http.StatusOK, newChoreResponse(updated))
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.choreStore.Delete(id); err != nil {
		writeError(w, h.logger, "delete chore", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChore, websocket.ActionDeleted, id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
