package http

import (
	"time"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/rule"
)

const dateLayout = "2006-01-02"

type CreateEntryRequest struct {
	Kind           string    `json:"kind" binding:"required,oneof=open blocked"`
	StartsAt       time.Time `json:"starts_at" binding:"required"`
	EndsAt         time.Time `json:"ends_at" binding:"required,gtfield=StartsAt"`
	RepeatWeekdays []int     `json:"repeat_weekdays" binding:"omitempty,max=7,weekdays"`
	// RepeatUntil is a calendar date, inclusive.
	RepeatUntil *string `json:"repeat_until" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateEntryRequest changes only the fields present. An empty repeat_until
// removes the end date.
type UpdateEntryRequest struct {
	Kind           *string    `json:"kind" binding:"omitempty,oneof=open blocked"`
	StartsAt       *time.Time `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
	RepeatWeekdays *[]int     `json:"repeat_weekdays" binding:"omitempty,max=7,weekdays"`
	RepeatUntil    *string    `json:"repeat_until" binding:"omitempty,datetime=2006-01-02"`
}

func toWeekdays(days []int) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := make([]time.Weekday, len(days))
	for i, d := range days {
		out[i] = time.Weekday(d)
	}
	return out
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r CreateEntryRequest) toInput() (rule.Input, error) {
	until, err := parseDate(r.RepeatUntil)
	if err != nil {
		return rule.Input{}, err
	}
	return rule.Input{
		Kind:           availability.Kind(r.Kind),
		StartsAt:       r.StartsAt,
		EndsAt:         r.EndsAt,
		RepeatWeekdays: toWeekdays(r.RepeatWeekdays),
		RepeatUntil:    until,
	}, nil
}

func (r UpdateEntryRequest) toPatch() (rule.Patch, error) {
	p := rule.Patch{StartsAt: r.StartsAt, EndsAt: r.EndsAt}
	if r.Kind != nil {
		k := availability.Kind(*r.Kind)
		p.Kind = &k
	}
	if r.RepeatWeekdays != nil {
		wd := toWeekdays(*r.RepeatWeekdays)
		p.RepeatWeekdays = &wd
	}
	if r.RepeatUntil != nil {
		if *r.RepeatUntil == "" {
			p.ClearRepeatUntil = true
		} else {
			until, err := parseDate(r.RepeatUntil)
			if err != nil {
				return rule.Patch{}, err
			}
			p.RepeatUntil = until
		}
	}
	return p, nil
}

type EntryResponse struct {
	ID             string    `json:"id"`
	ListingID      string    `json:"listing_id"`
	Kind           string    `json:"kind"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	RepeatWeekdays []int     `json:"repeat_weekdays"`
	RepeatUntil    *string   `json:"repeat_until"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewEntryResponse(e *rule.Entry) EntryResponse {
	resp := EntryResponse{
		ID:             e.ID,
		ListingID:      e.ListingID,
		Kind:           string(e.Kind),
		StartsAt:       e.StartsAt,
		EndsAt:         e.EndsAt,
		RepeatWeekdays: make([]int, len(e.RepeatWeekdays)),
		CreatedAt:      e.CreatedAt,
	}
	for i, wd := range e.RepeatWeekdays {
		resp.RepeatWeekdays[i] = int(wd)
	}
	if e.RepeatUntil != nil {
		s := e.RepeatUntil.Format(dateLayout)
		resp.RepeatUntil = &s
	}
	return resp
}
