package availability

import (
	"errors"
	"fmt"
	"time"
)

// Kind says whether a rule opens or blocks a listing.
type Kind string

const (
	KindOpen    Kind = "open"
	KindBlocked Kind = "blocked"
)

func (k Kind) Valid() bool {
	return k == KindOpen || k == KindBlocked
}

var (
	ErrInvalidKind    = errors.New("rule kind must be open or blocked")
	ErrInvalidWeekday = errors.New("repeat weekdays must be between 0 (Sunday) and 6 (Saturday)")
)

// Rule is a host-defined availability override for one listing.
//
// A rule without RepeatWeekdays applies once over [StartsAt, EndsAt). A
// recurring rule reapplies the clock time of StartsAt, with the same length,
// on every matching weekday up to and including RepeatUntil.
type Rule struct {
	ID             string
	Kind           Kind
	StartsAt       time.Time
	EndsAt         time.Time
	RepeatWeekdays []time.Weekday
	RepeatUntil    *time.Time
}

func (r Rule) Recurring() bool {
	return len(r.RepeatWeekdays) > 0
}

// Validate checks the rule shape. It does not look at other rules.
func (r Rule) Validate() error {
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if !r.StartsAt.Before(r.EndsAt) {
		return ErrInvalidInterval
	}
	var seen [7]bool
	for _, wd := range r.RepeatWeekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return ErrInvalidWeekday
		}
		if seen[wd] {
			return fmt.Errorf("duplicate weekday %d: %w", wd, ErrInvalidWeekday)
		}
		seen[wd] = true
	}
	return nil
}

func (r Rule) repeatsOn(wd time.Weekday) bool {
	for _, d := range r.RepeatWeekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// Expand returns the concrete occurrences of r that intersect q, ordered by
// start time. Occurrences of a recurring rule may overlap each other when the
// base span is longer than a day; callers must treat the result as a union.
func Expand(r Rule, q Interval) []Interval {
	base := Interval{Start: r.StartsAt.UTC(), End: r.EndsAt.UTC()}
	if !r.Recurring() {
		if base.Overlaps(q) {
			return []Interval{base}
		}
		return nil
	}

	span := base.Duration()
	if span <= 0 {
		return nil
	}
	offset := timeOfDay(base.Start)

	// An occurrence anchored on day d ends at d+offset+span, so days earlier
	// than q.Start-offset-span can never reach into the window.
	first := startOfDay(q.Start.Add(-offset - span))
	last := startOfDay(q.End)

	var until time.Time
	if r.RepeatUntil != nil {
		until = startOfDay(*r.RepeatUntil)
	}

	var out []Interval
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if !r.repeatsOn(d.Weekday()) {
			continue
		}
		if r.RepeatUntil != nil && d.After(until) {
			break
		}
		start := d.Add(offset)
		occ := Interval{Start: start, End: start.Add(span)}
		if occ.Overlaps(q) {
			out = append(out, occ)
		}
	}
	return out
}

// ExpandAll expands every rule of the given kind against q.
func ExpandAll(rules []Rule, kind Kind, q Interval) []Interval {
	var out []Interval
	for _, r := range rules {
		if r.Kind != kind {
			continue
		}
		out = append(out, Expand(r, q)...)
	}
	return out
}
