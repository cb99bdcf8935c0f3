package chore

import (
	"time"

	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusDue       Status = "due"
	StatusUpcoming  Status = "upcoming"
)

// EventStatus classifies an event relative to today's calendar date.
func EventStatus(e model.Event, today time.Time) Status {
	if e.Completed {
		return StatusCompleted
	}
	switch d := recurrence.FormatDate(today); {
	case e.OccurrenceDate < d:
		return StatusOverdue
	case e.OccurrenceDate == d:
		return StatusDue
	default:
		return StatusUpcoming
	}
}

// Summary counts events per status.
type Summary struct {
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
	Due       int `json:"due"`
	Upcoming  int `json:"upcoming"`
}

// Open is the number of events not yet completed.
func (s Summary) Open() int {
	return s.Overdue + s.Due + s.Upcoming
}

func Summarize(events []model.Event, today time.Time) Summary {
	var s Summary
	for _, e := range events {
		switch EventStatus(e, today) {
		case StatusCompleted:
			s.Completed++
		case StatusOverdue:
			s.Overdue++
		case StatusDue:
			s.Due++
		case StatusUpcoming:
			s.Upcoming++
		}
	}
	return s
}
