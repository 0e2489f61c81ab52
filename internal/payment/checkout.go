package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// CheckoutInput describes the payment for one pending booking.
type CheckoutInput struct {
	BookingID        string
	ListingID        string
	ListingTitle     string
	AmountCents      int64
	Currency         string
	PlatformFeeCents int64
	HostAccountID    string
	CustomerEmail    string
}

// Session is a hosted checkout page the driver is redirected to.
type Session struct {
	ID  string
	URL string
}

// Checkout creates hosted payment sessions.
type Checkout interface {
	CreateSession(ctx context.Context, in CheckoutInput) (Session, error)
}

// ReturnURLs builds the success and cancel pages for a web base URL. Stripe
// substitutes {CHECKOUT_SESSION_ID} itself.
func ReturnURLs(webBaseURL string) (success, cancel string) {
	base := strings.TrimRight(webBaseURL, "/")
	return base + "/booking/success?session_id={CHECKOUT_SESSION_ID}",
		base + "/booking/cancel?session_id={CHECKOUT_SESSION_ID}"
}

type StripeCheckout struct {
	api        *client.API
	successURL string
	cancelURL  string
}

func NewStripeCheckout(secretKey, webBaseURL string) *StripeCheckout {
	success, cancel := ReturnURLs(webBaseURL)
	return &StripeCheckout{
		api:        client.New(secretKey, nil),
		successURL: success,
		cancelURL:  cancel,
	}
}

func (s *StripeCheckout) CreateSession(ctx context.Context, in CheckoutInput) (Session, error) {
	params := s.sessionParams(in)
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe checkout session: %w", err)
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

// sessionParams builds the checkout request. With a connected host account
// the payment is routed to the host and the platform keeps its fee.
func (s *StripeCheckout) sessionParams(in CheckoutInput) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(s.successURL),
		CancelURL:          stripe.String(s.cancelURL),
		ClientReferenceID:  stripe.String(in.BookingID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(in.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Parking booking: " + in.ListingTitle),
					},
					UnitAmount: stripe.Int64(in.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	if in.HostAccountID != "" {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(in.PlatformFeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(in.HostAccountID),
			},
		}
	}
	params.IdempotencyKey = stripe.String("booking-" + in.BookingID)
	params.AddMetadata("booking_id", in.BookingID)
	params.AddMetadata("listing_id", in.ListingID)
	params.AddMetadata("platform_fee_cents", strconv.FormatInt(in.PlatformFeeCents, 10))
	params.AddMetadata("host_account_id", in.HostAccountID)
	return params
}

// MockCheckout stands in for Stripe when no secret key is configured. The
// returned URL points straight at the success page.
type MockCheckout struct {
	successURL string
}

func NewMockCheckout(webBaseURL string) *MockCheckout {
	success, _ := ReturnURLs(webBaseURL)
	return &MockCheckout{successURL: success}
}

func (m *MockCheckout) CreateSession(_ context.Context, _ CheckoutInput) (Session, error) {
	id := "cs_mock_" + uuid.NewString()
	return Session{
		ID:  id,
		URL: strings.ReplaceAll(m.successURL, "{CHECKOUT_SESSION_ID}", id),
	}, nil
}

// PlatformFee returns bps basis points of amount, rounded half up.
func PlatformFee(amount int64, bps int) int64 {
	return (amount*int64(bps) + 5000) / 10000
}
