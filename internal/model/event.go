package model

import "time"

// Event is one materialized occurrence as rendered by the calendar.
type Event struct {
	OccurrenceID   string     `json:"occurrenceId"`
	ChoreID        int64      `json:"choreId"`
	OccurrenceDate string     `json:"occurrenceDate"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Color          string     `json:"color"`
	AssigneeID     *int64     `json:"assigneeId,omitempty"`
	AssigneeName   string     `json:"assigneeName,omitempty"`
	IsRecurring    bool       `json:"isRecurring"`
	Completed      bool       `json:"completed"`
	CompletedBy    string     `json:"completedBy,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}
