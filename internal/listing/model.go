package listing

import (
	"net/http"
	"time"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "listing not found")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrInvalidInterval  = apperror.New(http.StatusBadRequest, "from must be before to")
	ErrInvalidLocation  = apperror.New(http.StatusBadRequest, "invalid search location")
	ErrInvalidRadius    = apperror.New(http.StatusBadRequest, "radius_km must be between 0 and 100")
	ErrInvalidPrice     = apperror.New(http.StatusBadRequest, "invalid price range")
	ErrInvalidDailyRate = apperror.New(http.StatusBadRequest, "price_per_day must be positive")
	ErrInvalidStatus    = apperror.New(http.StatusBadRequest, "invalid listing status")
	ErrHasBookings      = apperror.New(http.StatusConflict, "listing has bookings, archive it instead")
)

// MaxRadiusKm bounds a search radius.
const MaxRadiusKm = 100

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

// Listing is a parking space offered by a host.
type Listing struct {
	ID               string
	HostID           string
	Title            string
	Address          string
	AvailabilityText string
	PricePerDay      int64 // minor currency units
	Latitude         float64
	Longitude        float64
	Amenities        []string
	ImageURLs        []string
	Rating           float64
	RatingCount      int
	Status           Status
	CreatedAt        time.Time
}

// Nearby is a listing returned by a radius query together with its distance
// from the search point.
type Nearby struct {
	*Listing
	DistanceKm float64
}

// CandidateFilter narrows the radius query before availability is resolved.
type CandidateFilter struct {
	Lat       float64
	Lng       float64
	RadiusKm  float64
	MinPrice  *int64
	MaxPrice  *int64
	Amenities []string
	Text      string
	Limit     int
}

// SearchResult is one entry of a search response.
type SearchResult struct {
	Nearby
	IsAvailable bool
	Reason      availability.Reason
}

// Detail is a single listing, with availability when a window was asked for.
type Detail struct {
	*Listing
	IsAvailable *bool
	Reason      availability.Reason
}
