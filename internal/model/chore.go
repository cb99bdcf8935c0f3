package model

import (
	"fmt"
	"time"

	"github.com/dukerupert/chorecal/internal/recurrence"
)

const DefaultChoreColor = "#3788d8"

type Chore struct {
	ID          int64
	Title       string
	Description string
	Color       string
	AssigneeID  *int64
	Rule        recurrence.Rule
	StartDate   time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// DateDamage is set when the stored start or end date could not be read.
	DateDamage string
}

// Bounds returns the chore's own active date range.
func (c Chore) Bounds() recurrence.Bounds {
	return recurrence.Bounds{Start: c.StartDate, End: c.EndDate, Damage: c.DateDamage}
}

// Validate checks the invariants a stored chore must satisfy.
func (c Chore) Validate() error {
	if c.Title == "" {
		return &recurrence.ValidationError{Field: "title", Message: "title is required"}
	}
	if c.StartDate.IsZero() {
		return &recurrence.ValidationError{Field: "startDate", Message: "start date is required"}
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return &recurrence.ValidationError{Field: "endDate", Message: "end date is before start date"}
	}
	if c.Rule == nil {
		return nil
	}
	return c.Rule.Validate()
}

type Completion struct {
	ID             int64     `json:"id"`
	ChoreID        int64     `json:"choreId"`
	OccurrenceDate string    `json:"occurrenceDate"`
	CompletedBy    string    `json:"completedBy"`
	CompletedAt    time.Time `json:"completedAt"`
	Notes          *string   `json:"notes"`
}

// HistoryEntry is a completion joined with its chore's title.
type HistoryEntry struct {
	Completion
	ChoreTitle string `json:"choreTitle"`
}

// OccurrenceKey identifies one virtual occurrence of a chore.
type OccurrenceKey struct {
	ChoreID int64
	Date    string
}

func NewOccurrenceKey(choreID int64, date time.Time) OccurrenceKey {
	return OccurrenceKey{ChoreID: choreID, Date: recurrence.FormatDate(date)}
}

// String returns the composite id used by the calendar UI.
func (k OccurrenceKey) String() string {
	return fmt.Sprintf("%d_%s", k.ChoreID, k.Date)
}
