package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/curbshare/parking-backend/internal/availability"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Outcome is what a webhook event means for the booking behind a session.
type Outcome struct {
	EventID   string
	EventType string
	SessionID string
	// Status is empty for events that do not change a booking.
	Status availability.BookingStatus
}

var sessionStatuses = map[stripe.EventType]availability.BookingStatus{
	"checkout.session.completed":               availability.StatusConfirmed,
	"checkout.session.async_payment_succeeded": availability.StatusConfirmed,
	"checkout.session.expired":                 availability.StatusCanceled,
	"checkout.session.async_payment_failed":    availability.StatusCanceled,
}

// ParseWebhook verifies the Stripe-Signature header and maps checkout
// session events to booking statuses.
func ParseWebhook(payload []byte, sigHeader, secret string, tolerance time.Duration) (Outcome, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Outcome{EventID: evt.ID, EventType: string(evt.Type)}
	status, ok := sessionStatuses[evt.Type]
	if !ok {
		return out, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return Outcome{}, fmt.Errorf("invalid checkout session payload: %w", err)
	}
	out.SessionID = session.ID
	out.Status = status
	return out, nil
}
