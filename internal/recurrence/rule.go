package recurrence

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Type names a recurrence variant as it is stored and sent over the wire.
type Type string

const (
	TypeNone    Type = "none"
	TypeDaily   Type = "daily"
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
)

// Rule describes how a chore repeats. It is one of None, Daily, Weekly,
// Monthly or Unrecognized.
type Rule interface {
	Type() Type
	Validate() error
	Describe() string
	isRule()
}

// None is a one-off chore: its only occurrence is its start date.
type None struct{}

// Daily repeats every Interval days from the start date.
type Daily struct {
	Interval int
}

// Weekly repeats on Weekdays of every Interval-th week, counting weeks
// (Sunday to Saturday) from the week containing the start date.
type Weekly struct {
	Interval int
	Weekdays []time.Weekday
}

// Monthly repeats on DayOfMonth of every Interval-th month from the start
// month. Months shorter than DayOfMonth contribute nothing.
type Monthly struct {
	Interval   int
	DayOfMonth int
}

// Unrecognized carries a stored type name this package does not know.
// It never produces occurrences.
type Unrecognized struct {
	Name string
}

func (None) isRule()         {}
func (Daily) isRule()        {}
func (Weekly) isRule()       {}
func (Monthly) isRule()      {}
func (Unrecognized) isRule() {}

func (None) Type() Type           { return TypeNone }
func (Daily) Type() Type          { return TypeDaily }
func (Weekly) Type() Type         { return TypeWeekly }
func (Monthly) Type() Type        { return TypeMonthly }
func (u Unrecognized) Type() Type { return Type(u.Name) }

func (None) Validate() error { return nil }

func (r Daily) Validate() error {
	return validateInterval(r.Interval)
}

func (r Weekly) Validate() error {
	if err := validateInterval(r.Interval); err != nil {
		return err
	}
	if len(r.Weekdays) == 0 {
		return &ValidationError{Field: "recurrenceDaysOfWeek", Message: "at least one weekday is required for weekly recurrence"}
	}
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return &ValidationError{Field: "recurrenceDaysOfWeek", Message: fmt.Sprintf("weekday %d is out of range 0-6", d)}
		}
	}
	return nil
}

func (r Monthly) Validate() error {
	if err := validateInterval(r.Interval); err != nil {
		return err
	}
	if r.DayOfMonth == 0 {
		return &ValidationError{Field: "recurrenceDayOfMonth", Message: "day of month is required for monthly recurrence"}
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return &ValidationError{Field: "recurrenceDayOfMonth", Message: fmt.Sprintf("day of month %d is out of range 1-31", r.DayOfMonth)}
	}
	return nil
}

func (u Unrecognized) Validate() error {
	return &ValidationError{Field: "recurrenceType", Message: fmt.Sprintf("unknown recurrence type %q", u.Name)}
}

func validateInterval(n int) error {
	if n < 1 {
		return &ValidationError{Field: "recurrenceInterval", Message: "interval must be a positive integer"}
	}
	return nil
}

// Describe returns a human-readable description of the rule.
func (None) Describe() string { return "Does not repeat" }

func (r Daily) Describe() string {
	if r.Interval > 1 {
		return fmt.Sprintf("Repeats every %d days", r.Interval)
	}
	return "Repeats daily"
}

func (r Weekly) Describe() string {
	prefix := "Repeats weekly"
	if r.Interval > 1 {
		prefix = fmt.Sprintf("Repeats every %d weeks", r.Interval)
	}
	days := normalizeWeekdays(r.Weekdays)
	if len(days) == 0 {
		return prefix
	}
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.String()[:3])
	}
	return prefix + " on " + strings.Join(names, ", ")
}

func (r Monthly) Describe() string {
	if r.Interval > 1 {
		return fmt.Sprintf("Repeats every %d months on day %d", r.Interval, r.DayOfMonth)
	}
	return fmt.Sprintf("Repeats monthly on day %d", r.DayOfMonth)
}

func (u Unrecognized) Describe() string {
	return fmt.Sprintf("Unknown recurrence %q", u.Name)
}

// Fields is the flat representation of a Rule used by the store columns and
// the JSON API. DayOfMonth 0 means unset.
type Fields struct {
	Type       string
	Interval   int
	DaysOfWeek []int
	DayOfMonth int
}

// Parse builds a validated Rule from user-supplied fields. An empty type is
// a one-off chore. Nothing is coerced: a bad interval, a missing weekday set
// or a missing day of month is a *ValidationError.
func Parse(f Fields) (Rule, error) {
	r := Decode(f)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Decode converts stored fields into a Rule without validating them, so a
// damaged row still yields a value that expansion can report on.
func Decode(f Fields) Rule {
	switch Type(strings.ToLower(strings.TrimSpace(f.Type))) {
	case "", TypeNone:
		return None{}
	case TypeDaily:
		return Daily{Interval: f.Interval}
	case TypeWeekly:
		days := make([]time.Weekday, 0, len(f.DaysOfWeek))
		for _, d := range f.DaysOfWeek {
			days = append(days, time.Weekday(d))
		}
		return Weekly{Interval: f.Interval, Weekdays: days}
	case TypeMonthly:
		return Monthly{Interval: f.Interval, DayOfMonth: f.DayOfMonth}
	default:
		return Unrecognized{Name: f.Type}
	}
}

// Encode flattens a Rule. Interval is 1 for one-off chores.
func Encode(r Rule) Fields {
	switch r := r.(type) {
	case Daily:
		return Fields{Type: string(TypeDaily), Interval: r.Interval}
	case Weekly:
		days := make([]int, 0, len(r.Weekdays))
		for _, d := range normalizeWeekdays(r.Weekdays) {
			days = append(days, int(d))
		}
		return Fields{Type: string(TypeWeekly), Interval: r.Interval, DaysOfWeek: days}
	case Monthly:
		return Fields{Type: string(TypeMonthly), Interval: r.Interval, DayOfMonth: r.DayOfMonth}
	case Unrecognized:
		return Fields{Type: r.Name, Interval: 1}
	default:
		return Fields{Type: string(TypeNone), Interval: 1}
	}
}

// IsRecurring reports whether the rule produces more than its start date.
func IsRecurring(r Rule) bool {
	if r == nil {
		return false
	}
	_, none := r.(None)
	return !none
}

// normalizeWeekdays returns the weekdays sorted ascending without duplicates.
func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}
