package availability

import (
	"fmt"
	"strings"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCanceled  BookingStatus = "canceled"
)

// Blocks reports whether a booking in this status holds its slot.
// Anything that is not canceled does, including unknown statuses.
func (s BookingStatus) Blocks() bool {
	return s != StatusCanceled
}

// Booking is the part of a booking the resolver looks at.
type Booking struct {
	ID string
	Interval
	Status BookingStatus
}

// Record is what the resolver knows about a single listing.
type Record struct {
	Bookings []Booking
	Rules    []Rule
}

func (rec Record) hasOpenRules() bool {
	for _, r := range rec.Rules {
		if r.Kind == KindOpen {
			return true
		}
	}
	return false
}

// Reason explains a negative verdict.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonBooked  Reason = "booked"
	ReasonBlocked Reason = "blocked"
	ReasonClosed  Reason = "closed"
)

type Verdict struct {
	Available bool
	Reason    Reason
}

// GateMode controls how open rules admit a query interval.
type GateMode string

const (
	// GateContain admits a query only if it lies inside the union of the open
	// occurrences.
	GateContain GateMode = "contain"
	// GateIntersect admits a query that touches any open occurrence, even if
	// part of it falls outside.
	GateIntersect GateMode = "intersect"
)

func ParseGateMode(s string) (GateMode, error) {
	switch GateMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", GateContain:
		return GateContain, nil
	case GateIntersect:
		return GateIntersect, nil
	}
	return "", fmt.Errorf("unknown open gate mode %q", s)
}

// Resolver decides availability for listings. The zero value uses GateContain.
type Resolver struct {
	Gate GateMode
}

func NewResolver(gate GateMode) *Resolver {
	return &Resolver{Gate: gate}
}

// Resolve returns the verdict for one listing over q.
//
// Order matters: a live booking or a blocked occurrence vetoes the query
// outright; only then do open rules, if the listing has any, narrow the
// default-open state down to their occurrences.
func (r *Resolver) Resolve(rec Record, q Interval) Verdict {
	for _, b := range rec.Bookings {
		if b.Status.Blocks() && b.Overlaps(q) {
			return Verdict{Reason: ReasonBooked}
		}
	}

	for _, rule := range rec.Rules {
		if rule.Kind == KindBlocked && len(Expand(rule, q)) > 0 {
			return Verdict{Reason: ReasonBlocked}
		}
	}

	if rec.hasOpenRules() && !r.admits(ExpandAll(rec.Rules, KindOpen, q), q) {
		return Verdict{Reason: ReasonClosed}
	}

	return Verdict{Available: true}
}

// IsAvailable is Resolve reduced to a boolean.
func (r *Resolver) IsAvailable(rec Record, q Interval) bool {
	return r.Resolve(rec, q).Available
}

func (r *Resolver) admits(open []Interval, q Interval) bool {
	if len(open) == 0 {
		return false
	}
	if r.Gate == GateIntersect {
		// Expand only returns occurrences that intersect q.
		return true
	}
	for _, iv := range Merge(open) {
		if iv.Contains(q) {
			return true
		}
	}
	return false
}
