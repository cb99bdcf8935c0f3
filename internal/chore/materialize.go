package chore

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukerupert/chorecal/internal/metrics"
	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
)

// CompletionLookup resolves many occurrence keys in a single call.
type CompletionLookup interface {
	ListByKeys(keys []model.OccurrenceKey) (map[model.OccurrenceKey]model.Completion, error)
}

// Materializer turns chores and their completions into calendar events for a
// date window. It holds no per-request state and is safe for concurrent use.
type Materializer struct {
	completions CompletionLookup
	expander    recurrence.Expander
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewMaterializer(completions CompletionLookup, expander recurrence.Expander, m *metrics.Metrics, logger *slog.Logger) *Materializer {
	return &Materializer{
		completions: completions,
		expander:    expander,
		metrics:     m,
		logger:      logger,
	}
}

type occurrence struct {
	chore *model.Chore
	key   model.OccurrenceKey
}

// Materialize expands every chore over window and attaches completion state.
// A chore whose stored rule cannot be expanded is logged and contributes no
// events; it never fails the query. Events are ordered by date, then chore id.
func (m *Materializer) Materialize(chores []model.Chore, members []model.Member, window recurrence.Window) ([]model.Event, error) {
	names := make(map[int64]string, len(members))
	for _, mem := range members {
		names[mem.ID] = mem.Name
	}

	var occs []occurrence
	for i := range chores {
		c := &chores[i]
		dates, err := m.expander.Expand(c.Rule, c.Bounds(), window)
		if err != nil {
			m.anomaly(c, err)
			continue
		}
		for _, d := range dates {
			occs = append(occs, occurrence{chore: c, key: model.NewOccurrenceKey(c.ID, d)})
		}
	}

	events := make([]model.Event, 0, len(occs))
	if len(occs) == 0 {
		return events, nil
	}

	keys := make([]model.OccurrenceKey, len(occs))
	for i, o := range occs {
		keys[i] = o.key
	}
	done, err := m.completions.ListByKeys(keys)
	if err != nil {
		return nil, fmt.Errorf("lookup completions: %w", err)
	}

	for _, o := range occs {
		c := o.chore
		e := model.Event{
			OccurrenceID:   o.key.String(),
			ChoreID:        c.ID,
			OccurrenceDate: o.key.Date,
			Title:          c.Title,
			Description:    c.Description,
			Color:          c.Color,
			AssigneeID:     c.AssigneeID,
			IsRecurring:    recurrence.IsRecurring(c.Rule),
		}
		if c.AssigneeID != nil {
			e.AssigneeName = names[*c.AssigneeID]
		}
		if comp, ok := done[o.key]; ok {
			completedAt := comp.CompletedAt
			e.Completed = true
			e.CompletedBy = comp.CompletedBy
			e.CompletedAt = &completedAt
			e.Notes = comp.Notes
		}
		events = append(events, e)
	}

	slices.SortStableFunc(events, func(a, b model.Event) int {
		return cmp.Or(
			cmp.Compare(a.OccurrenceDate, b.OccurrenceDate),
			cmp.Compare(a.ChoreID, b.ChoreID),
		)
	})

	m.metrics.AddMaterialized(len(events))
	return events, nil
}

func (m *Materializer) anomaly(c *model.Chore, err error) {
	reason := "error"
	switch {
	case errors.Is(err, recurrence.ErrUnrecognizedType):
		reason = "unrecognized_type"
	case errors.Is(err, recurrence.ErrOccurrenceLimit):
		reason = "occurrence_limit"
	case errors.Is(err, recurrence.ErrDamagedBounds):
		reason = "damaged_dates"
	case recurrence.IsValidation(err):
		reason = "invalid_rule"
	}
	m.metrics.IncAnomaly(reason)
	m.logger.Warn("skipping chore during expansion",
		"chore_id", c.ID,
		"reason", reason,
		"error", err,
	)
}
