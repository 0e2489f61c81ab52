package http

import (
	"strings"
	"time"

	"github.com/curbshare/parking-backend/internal/listing"
)

type SearchQuery struct {
	Lat       *float64  `form:"lat" binding:"required,latitude"`
	Lng       *float64  `form:"lng" binding:"required,longitude"`
	RadiusKm  float64   `form:"radius_km" binding:"omitempty,gt=0,lte=100"`
	From      time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To        time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Mode      string    `form:"mode" binding:"omitempty,oneof=filter annotate"`
	MinPrice  *int64    `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice  *int64    `form:"max_price" binding:"omitempty,gte=0"`
	Amenities []string  `form:"amenities"`
	Q         string    `form:"q" binding:"max=100"`
}

// DefaultRadiusKm is used when a search omits radius_km.
const DefaultRadiusKm = 5

// splitAmenities accepts both repeated and comma separated values.
func splitAmenities(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

// WindowQuery is the optional from/to pair on a single listing fetch.
type WindowQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type CreateListingRequest struct {
	Title            string   `json:"title" binding:"required,max=200"`
	Address          string   `json:"address" binding:"required,max=300"`
	AvailabilityText string   `json:"availability_text" binding:"max=500"`
	PricePerDay      int64    `json:"price_per_day" binding:"gt=0"`
	Latitude         *float64 `json:"latitude" binding:"required,latitude"`
	Longitude        *float64 `json:"longitude" binding:"required,longitude"`
	Amenities        []string `json:"amenities" binding:"max=30,dive,max=50"`
	ImageURLs        []string `json:"image_urls" binding:"max=10,dive,url"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active archived"`
}

type ListingResponse struct {
	ID               string    `json:"id"`
	HostID           string    `json:"host_id"`
	Title            string    `json:"title"`
	Address          string    `json:"address"`
	AvailabilityText string    `json:"availability_text"`
	PricePerDay      int64     `json:"price_per_day"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Amenities        []string  `json:"amenities"`
	ImageURLs        []string  `json:"image_urls"`
	Rating           float64   `json:"rating"`
	RatingCount      int       `json:"rating_count"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewListingResponse(l *listing.Listing) ListingResponse {
	return ListingResponse{
		ID:               l.ID,
		HostID:           l.HostID,
		Title:            l.Title,
		Address:          l.Address,
		AvailabilityText: l.AvailabilityText,
		PricePerDay:      l.PricePerDay,
		Latitude:         l.Latitude,
		Longitude:        l.Longitude,
		Amenities:        l.Amenities,
		ImageURLs:        l.ImageURLs,
		Rating:           l.Rating,
		RatingCount:      l.RatingCount,
		Status:           string(l.Status),
		CreatedAt:        l.CreatedAt,
	}
}

type SearchResultResponse struct {
	ListingResponse
	DistanceKm  float64 `json:"distance_km"`
	IsAvailable bool    `json:"is_available"`
	Reason      string  `json:"reason,omitempty"`
}

type SearchResponse struct {
	Items []SearchResultResponse `json:"items"`
	Count int                    `json:"count"`
}

type DetailResponse struct {
	ListingResponse
	IsAvailable *bool  `json:"is_available,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
