package booking

import (
	"net/http"
	"time"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrListingNotFound  = apperror.New(http.StatusNotFound, "listing not found")
	ErrSlotUnavailable  = apperror.New(http.StatusConflict, "slot no longer available")
	ErrInvalidInterval  = apperror.New(http.StatusBadRequest, "from must be before to")
	ErrStartTimePast    = apperror.New(http.StatusBadRequest, "cannot create booking in the past")
	ErrOwnListing       = apperror.New(http.StatusBadRequest, "hosts cannot book their own listing")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrPaymentFailed    = apperror.New(http.StatusBadGateway, "payment provider unavailable")

	// ErrStatusUnsupported is returned by repositories whose schema has no
	// booking status or checkout session columns.
	ErrStatusUnsupported = apperror.New(http.StatusServiceUnavailable, "booking status not supported by this deployment")
)

type Booking struct {
	ID                string
	ListingID         string
	ListingTitle      string
	HostID            string
	DriverID          string
	StartTime         time.Time
	EndTime           time.Time
	Status            availability.BookingStatus
	AmountCents       int64
	Currency          string
	CheckoutSessionID *string
	CreatedAt         time.Time
}

func (b *Booking) Interval() availability.Interval {
	return availability.Interval{Start: b.StartTime, End: b.EndTime}
}

// LockedListing is the listing row held locked while a booking is checked
// and inserted.
type LockedListing struct {
	ID            string
	HostID        string
	Title         string
	PricePerDay   int64
	Archived      bool
	HostAccountID *string
}

// CheckFunc decides, under the listing lock, whether the booking may be
// inserted. It may fill in derived booking fields such as the amount.
type CheckFunc func(l LockedListing, rec availability.Record) error

// Price charges pricePerDay for every started day of iv.
func Price(pricePerDay int64, iv availability.Interval) int64 {
	days := int64((iv.Duration() + 24*time.Hour - 1) / (24 * time.Hour))
	return max(days, 1) * pricePerDay
}
