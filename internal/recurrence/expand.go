package recurrence

import (
	"fmt"
	"time"
)

// DefaultMaxOccurrences caps how many dates one chore may produce for a
// single query window.
const DefaultMaxOccurrences = 10000

// maxStep is larger than the day or month distance between any two dates
// time.Time can hold, so clamping a step to it never changes the output.
const maxStep int64 = 1 << 50

// Bounds is a chore's own active range. A nil End is unbounded. Damage
// records why stored dates could not be read; such bounds expand to nothing.
type Bounds struct {
	Start  time.Time
	End    *time.Time
	Damage string
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// Expander enumerates occurrence dates. The zero value uses
// DefaultMaxOccurrences.
type Expander struct {
	MaxOccurrences int
}

// Expand is Expander{}.Expand.
func Expand(rule Rule, bounds Bounds, query Window) ([]time.Time, error) {
	return Expander{}.Expand(rule, bounds, query)
}

// Expand returns every occurrence of rule that falls inside both bounds and
// query, sorted ascending and without duplicates. All dates are UTC
// midnights. Invalid rules return a *ValidationError; unrecognized rule
// types and windows that would exceed MaxOccurrences return an error
// wrapping ErrAnomaly.
func (e Expander) Expand(rule Rule, bounds Bounds, query Window) ([]time.Time, error) {
	if rule == nil {
		rule = None{}
	}
	if u, ok := rule.(Unrecognized); ok {
		return nil, fmt.Errorf("%w %q", ErrUnrecognizedType, u.Name)
	}
	if bounds.Damage != "" {
		return nil, fmt.Errorf("%w: %s", ErrDamagedBounds, bounds.Damage)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	start := Day(bounds.Start)
	lo, hi := Day(query.Start), Day(query.End)
	if lo.Before(start) {
		lo = start
	}
	if bounds.End != nil {
		end := Day(*bounds.End)
		if end.Before(start) {
			return nil, &ValidationError{Field: "endDate", Message: "end date is before start date"}
		}
		if end.Before(hi) {
			hi = end
		}
	}
	if hi.Before(lo) {
		return nil, nil
	}

	limit := e.MaxOccurrences
	if limit <= 0 {
		limit = DefaultMaxOccurrences
	}
	c := &collector{limit: limit}

	var err error
	switch r := rule.(type) {
	case None:
		if !start.Before(lo) && !start.After(hi) {
			err = c.add(start)
		}
	case Daily:
		err = expandDaily(c, start, lo, hi, int64(r.Interval))
	case Weekly:
		err = expandWeekly(c, start, lo, hi, int64(r.Interval), normalizeWeekdays(r.Weekdays))
	case Monthly:
		err = expandMonthly(c, start, lo, hi, int64(r.Interval), r.DayOfMonth)
	default:
		return nil, fmt.Errorf("%w %T", ErrUnrecognizedType, rule)
	}
	if err != nil {
		return nil, err
	}
	return c.dates, nil
}

// expandDaily emits start + k*interval for every k landing in [lo, hi].
func expandDaily(c *collector, start, lo, hi time.Time, interval int64) error {
	step := clampStep(interval)
	off := daysBetween(start, lo)
	last := daysBetween(start, hi)
	if r := off % step; r != 0 {
		off += step - r
	}
	for ; off <= last; off += step {
		if err := c.add(addDays(start, off)); err != nil {
			return err
		}
	}
	return nil
}

// expandWeekly walks the eligible weeks, which are every interval-th week
// counted from the Sunday starting the chore's own first week.
func expandWeekly(c *collector, start, lo, hi time.Time, interval int64, days []time.Weekday) error {
	anchor := weekStart(start)
	period := clampStep(interval) * 7
	first := daysBetween(anchor, lo)
	last := daysBetween(anchor, hi)

	for week := first - first%period; week <= last; week += period {
		for _, d := range days {
			off := week + int64(d)
			if off < first {
				continue
			}
			if off > last {
				return nil
			}
			if err := c.add(addDays(anchor, off)); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandMonthly walks the eligible months, every interval-th month counted
// from the start month. A month without dayOfMonth is skipped, not clamped.
func expandMonthly(c *collector, start, lo, hi time.Time, interval int64, dayOfMonth int) error {
	step := clampStep(interval)
	base := monthIndex(start)
	first := monthIndex(lo)
	last := monthIndex(hi)

	for m := base + ((first-base)/step)*step; m <= last; m += step {
		year, month := int(m/12), time.Month(m%12+1)
		if dayOfMonth > DaysIn(year, month) {
			continue
		}
		d := time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
		if d.Before(lo) {
			continue
		}
		if d.After(hi) {
			return nil
		}
		if err := c.add(d); err != nil {
			return err
		}
	}
	return nil
}

func clampStep(n int64) int64 {
	if n > maxStep {
		return maxStep
	}
	return n
}

type collector struct {
	dates []time.Time
	limit int
}

func (c *collector) add(d time.Time) error {
	if len(c.dates) >= c.limit {
		return fmt.Errorf("%w: more than %d occurrences in window", ErrOccurrenceLimit, c.limit)
	}
	c.dates = append(c.dates, d)
	return nil
}
