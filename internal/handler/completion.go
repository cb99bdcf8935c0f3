package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/chorecal/internal/auth"
	"github.com/dukerupert/chorecal/internal/metrics"
	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
	"github.com/dukerupert/chorecal/internal/store"
	"github.com/dukerupert/chorecal/internal/websocket"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type CompletionHandler struct {
	completionStore *store.CompletionStore
	choreStore      *store.ChoreStore
	expander        recurrence.Expander
	hub             *websocket.Hub
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

func NewCompletionHandler(comps *store.CompletionStore, cs *store.ChoreStore, expander recurrence.Expander, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{
		completionStore: comps,
		choreStore:      cs,
		expander:        expander,
		hub:             hub,
		metrics:         m,
		logger:          logger,
	}
}

func (h *CompletionHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type completionRequest struct {
	ChoreID        int64   `json:"choreId"`
	OccurrenceDate string  `json:"occurrenceDate"`
	CompletedBy    string  `json:"completedBy"`
	Notes          *string `json:"notes"`
}

// key validates the request's occurrence and returns it with its parsed date.
func (req completionRequest) key() (model.OccurrenceKey, time.Time, error) {
	if req.ChoreID <= 0 {
		return model.OccurrenceKey{}, time.Time{}, &recurrence.ValidationError{Field: "choreId", Message: "choreId is required"}
	}
	d, err := recurrence.ParseDate(req.OccurrenceDate)
	if err != nil {
		return model.OccurrenceKey{}, time.Time{}, &recurrence.ValidationError{Field: "occurrenceDate", Message: "must be YYYY-MM-DD"}
	}
	return model.NewOccurrenceKey(req.ChoreID, d), d, nil
}

// Create marks one occurrence done. The date must be a real occurrence of
// the chore; a second completion of the same occurrence is a 409.
func (h *CompletionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	key, date, err := req.key()
	if err != nil {
		writeError(w, h.logger, "create completion", err)
		return
	}
	completedBy := strings.TrimSpace(req.CompletedBy)
	if completedBy == "" {
		writeError(w, h.logger, "create completion", &recurrence.ValidationError{Field: "completedBy", Message: "completedBy is required"})
		return
	}
	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		req.Notes = &notes
		if notes == "" {
			req.Notes = nil
		}
	}

	c, err := h.choreStore.GetByID(key.ChoreID)
	if err != nil {
		writeError(w, h.logger, "get chore", err)
		return
	}
	if c == nil {
		writeMessage(w, http.StatusNotFound, "chore not found")
		return
	}

	dates, err := h.expander.Expand(c.Rule, c.Bounds(), recurrence.Window{Start: date, End: date})
	if err != nil && !recurrence.IsValidation(err) && !errors.Is(err, recurrence.ErrAnomaly) {
		writeError(w, h.logger, "check occurrence", err)
		return
	}
	if len(dates) == 0 {
		writeError(w, h.logger, "create completion", &recurrence.ValidationError{
			Field:   "occurrenceDate",
			Message: key.Date + " is not an occurrence of this chore",
		})
		return
	}

	completion, err := h.completionStore.Create(key.ChoreID, date, completedBy, req.Notes)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			h.metrics.IncConflict()
			writeMessage(w, http.StatusConflict, "occurrence already completed")
			return
		}
		writeError(w, h.logger, "create completion", err)
		return
	}

	h.logger.Info("occurrence completed",
		"occurrence", key.String(),
		"completed_by", completedBy,
		"user", auth.Username(r.Context()),
	)
	h.broadcast(websocket.CompletionMessage(websocket.ActionCreated, key))
	writeJSON(w, http.StatusCreated, completion)
}

// Delete undoes a completion identified by chore and occurrence date.
func (h *CompletionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	key, date, err := req.key()
	if err != nil {
		writeError(w, h.logger, "delete completion", err)
		return
	}

	if err := h.completionStore.Delete(key.ChoreID, date); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "completion not found")
			return
		}
		writeError(w, h.logger, "delete completion", err)
		return
	}

	h.broadcast(websocket.CompletionMessage(websocket.ActionDeleted, key))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// History pages through completions newest first.
func (h *CompletionHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.HistoryFilter{Limit: defaultHistoryLimit}

	if s := q.Get("choreId"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid choreId")
			return
		}
		filter.ChoreID = &id
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = min(max(n, 1), maxHistoryLimit)
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = max(n, 0)
	}

	page, err := h.completionStore.History(filter)
	if err != nil {
		writeError(w, h.logger, "list history", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
