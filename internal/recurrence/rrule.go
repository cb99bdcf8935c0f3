package recurrence

import (
	"fmt"

	"github.com/teambition/rrule-go"
)

var rruleWeekdays = [...]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// NewRRule builds the RFC 5545 equivalent of rule over bounds. Weeks start
// on Sunday so interval counting matches Expand. One-off chores return nil.
func NewRRule(rule Rule, bounds Bounds) (*rrule.RRule, error) {
	if rule == nil {
		return nil, nil
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if bounds.Damage != "" {
		return nil, fmt.Errorf("%w: %s", ErrDamagedBounds, bounds.Damage)
	}

	opt := rrule.ROption{
		Dtstart: Day(bounds.Start),
		Wkst:    rrule.SU,
	}
	if bounds.End != nil {
		opt.Until = Day(*bounds.End)
	}

	switch r := rule.(type) {
	case None:
		return nil, nil
	case Daily:
		opt.Freq = rrule.DAILY
		opt.Interval = r.Interval
	case Weekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = r.Interval
		for _, d := range normalizeWeekdays(r.Weekdays) {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case Monthly:
		opt.Freq = rrule.MONTHLY
		opt.Interval = r.Interval
		opt.Bymonthday = []int{r.DayOfMonth}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnrecognizedType, rule.Type())
	}

	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	return rr, nil
}

// RRuleString returns the RRULE value (without DTSTART) for rule, or "" for
// a one-off chore.
func RRuleString(rule Rule, bounds Bounds) (string, error) {
	rr, err := NewRRule(rule, bounds)
	if err != nil || rr == nil {
		return "", err
	}
	return rr.OrigOptions.RRuleString(), nil
}
