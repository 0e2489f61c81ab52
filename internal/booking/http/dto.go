package http

import (
	"time"

	"github.com/curbshare/parking-backend/internal/booking"
)

type CreateBookingBody struct {
	ListingID string    `json:"listing_id" binding:"required,uuid"`
	From      time.Time `json:"from" binding:"required"`
	To        time.Time `json:"to" binding:"required,gtfield=From"`
}

type BookingResponse struct {
	ID                string    `json:"id"`
	ListingID         string    `json:"listing_id"`
	ListingTitle      string    `json:"listing_title"`
	DriverID          string    `json:"driver_id"`
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	Status            string    `json:"status"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	CheckoutSessionID *string   `json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                b.ID,
		ListingID:         b.ListingID,
		ListingTitle:      b.ListingTitle,
		DriverID:          b.DriverID,
		From:              b.StartTime,
		To:                b.EndTime,
		Status:            string(b.Status),
		AmountCents:       b.AmountCents,
		Currency:          b.Currency,
		CheckoutSessionID: b.CheckoutSessionID,
		CreatedAt:         b.CreatedAt,
	}
}

type CreateBookingResponse struct {
	Booking     BookingResponse `json:"booking"`
	CheckoutURL string          `json:"checkout_url"`
}

type CancelBookingResponse struct {
	Booking         BookingResponse `json:"booking"`
	AlreadyCanceled bool            `json:"already_canceled"`
}
