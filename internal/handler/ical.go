package handler

import (
	"log/slog"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/chorecal/internal/chore"
	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
	"github.com/dukerupert/chorecal/internal/store"
)

const (
	propCompletedBy = ical.ComponentProperty("X-CHORECAL-COMPLETED-BY")
	propRRule       = ical.ComponentProperty("X-CHORECAL-RRULE")
)

// ICalHandler exports materialized occurrences as an iCalendar feed with one
// all-day VEVENT per occurrence.
type ICalHandler struct {
	choreStore   *store.ChoreStore
	memberStore  *store.MemberStore
	materializer *chore.Materializer
	maxQueryDays int
	now          func() time.Time
	logger       *slog.Logger
}

func NewICalHandler(cs *store.ChoreStore, ms *store.MemberStore, m *chore.Materializer, maxQueryDays int, logger *slog.Logger) *ICalHandler {
	return &ICalHandler{
		choreStore:   cs,
		memberStore:  ms,
		materializer: m,
		maxQueryDays: maxQueryDays,
		now:          time.Now,
		logger:       logger,
	}
}

func (h *ICalHandler) Feed(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r, h.maxQueryDays)
	if err != nil {
		writeError(w, h.logger, "export calendar", err)
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

	byID := make(map[int64]*model.Chore, len(chores))
	for i := range chores {
		byID[chores[i].ID] = &chores[i]
	}

	cal := ical.NewCalendar()
	cal.SetProductId("-//chorecal//chorecal//EN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName("Chores")

	stamp := h.now().UTC()
	for _, e := range events {
		h.addEvent(cal, e, byID[e.ChoreID], stamp)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=chores.ics")
	w.Write([]byte(cal.Serialize()))
}

func (h *ICalHandler) addEvent(cal *ical.Calendar, e model.Event, c *model.Chore, stamp time.Time) {
	date, err := recurrence.ParseDate(e.OccurrenceDate)
	if err != nil {
		h.logger.Warn("skipping event with bad date", "occurrence_id", e.OccurrenceID, "error", err)
		return
	}

	ev := cal.AddEvent(e.OccurrenceID + "@chorecal")
	ev.SetDtStampTime(stamp)
	ev.SetAllDayStartAt(date)
	ev.SetAllDayEndAt(date.AddDate(0, 0, 1))

	summary := e.Title
	if e.Completed {
		summary = "[done] " + summary
		ev.AddProperty(propCompletedBy, e.CompletedBy)
	}
	ev.SetSummary(summary)

	description := e.Description
	if e.AssigneeName != "" {
		if description != "" {
			description += "\n"
		}
		description += "Assigned to: " + e.AssigneeName
	}
	if description != "" {
		ev.SetDescription(description)
	}

	if c != nil && e.IsRecurring {
		rule, err := recurrence.RRuleString(c.Rule, c.Bounds())
		if err != nil {
			h.logger.Warn("rrule export failed", "chore_id", c.ID, "error", err)
		} else if rule != "" {
			ev.AddProperty(propRRule, rule)
		}
	}
}
