package rule

import (
	"net/http"
	"time"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "availability entry not found")
	ErrListingNotFound  = apperror.New(http.StatusNotFound, "listing not found")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrUnsupported      = apperror.New(http.StatusServiceUnavailable, "availability rules not supported by this deployment")
	ErrInvalidRule      = apperror.New(http.StatusBadRequest, "invalid availability entry")
)

// Entry is a stored availability rule of one listing.
type Entry struct {
	availability.Rule
	ListingID string
	// HostID is the owner of the listing, filled in on reads.
	HostID    string
	CreatedAt time.Time
}

type Input struct {
	Kind           availability.Kind
	StartsAt       time.Time
	EndsAt         time.Time
	RepeatWeekdays []time.Weekday
	RepeatUntil    *time.Time
}

// Patch changes the fields that are set. ClearRepeatUntil removes the end
// date of a recurring rule.
type Patch struct {
	Kind             *availability.Kind
	StartsAt         *time.Time
	EndsAt           *time.Time
	RepeatWeekdays   *[]time.Weekday
	RepeatUntil      *time.Time
	ClearRepeatUntil bool
}

func (p Patch) apply(r *availability.Rule) {
	if p.Kind != nil {
		r.Kind = *p.Kind
	}
	if p.StartsAt != nil {
		r.StartsAt = p.StartsAt.UTC()
	}
	if p.EndsAt != nil {
		r.EndsAt = p.EndsAt.UTC()
	}
	if p.RepeatWeekdays != nil {
		r.RepeatWeekdays = *p.RepeatWeekdays
	}
	switch {
	case p.ClearRepeatUntil:
		r.RepeatUntil = nil
	case p.RepeatUntil != nil:
		until := p.RepeatUntil.UTC()
		r.RepeatUntil = &until
	}
}
