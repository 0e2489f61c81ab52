package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/payment"
	"github.com/curbshare/parking-backend/internal/pkg/request"
)

type CreateRequest struct {
	DriverID    string
	DriverEmail string
	ListingID   string
	From        time.Time
	To          time.Time
}

// Created is a pending booking and the checkout page that pays for it.
type Created struct {
	Booking     *Booking
	CheckoutURL string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Created, error)
	GetByID(ctx context.Context, id, userID string, isAdmin bool) (*Booking, error)
	ListByDriver(ctx context.Context, driverID string, page request.ListParams) ([]*Booking, int, error)
	// Cancel cancels a booking owned by driverID. Canceling twice is not an
	// error; alreadyCanceled reports it.
	Cancel(ctx context.Context, id, driverID string, isAdmin bool) (b *Booking, alreadyCanceled bool, err error)
	ApplyPayment(ctx context.Context, out payment.Outcome) error
}

type Options struct {
	Currency       string
	PlatformFeeBps int
	Now            func() time.Time
}

type service struct {
	repo     Repository
	resolver *availability.Resolver
	checkout payment.Checkout
	logger   *slog.Logger
	opts     Options
}

func NewService(repo Repository, resolver *availability.Resolver, checkout payment.Checkout, logger *slog.Logger, opts Options) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Currency == "" {
		opts.Currency = "eur"
	}
	return &service{
		repo:     repo,
		resolver: resolver,
		checkout: checkout,
		logger:   logger,
		opts:     opts,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	window, err := availability.NewInterval(req.From, req.To)
	if err != nil {
		return nil, ErrInvalidInterval
	}
	if window.Start.Before(s.opts.Now().UTC()) {
		return nil, ErrStartTimePast
	}

	b := &Booking{
		ListingID: req.ListingID,
		DriverID:  req.DriverID,
		StartTime: window.Start,
		EndTime:   window.End,
		Status:    availability.StatusPending,
		Currency:  s.opts.Currency,
	}

	var hostAccount string
	err = s.repo.CreateChecked(ctx, b, func(l LockedListing, rec availability.Record) error {
		if l.Archived {
			return ErrListingNotFound
		}
		if l.HostID == req.DriverID {
			return ErrOwnListing
		}
		if v := s.resolver.Resolve(rec, window); !v.Available {
			s.logger.InfoContext(ctx, "booking rejected",
				"listing_id", l.ID,
				"reason", v.Reason,
			)
			return ErrSlotUnavailable
		}

		b.ListingTitle = l.Title
		b.HostID = l.HostID
		b.AmountCents = Price(l.PricePerDay, window)
		if l.HostAccountID != nil {
			hostAccount = *l.HostAccountID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session, err := s.checkout.CreateSession(ctx, payment.CheckoutInput{
		BookingID:        b.ID,
		ListingID:        b.ListingID,
		ListingTitle:     b.ListingTitle,
		AmountCents:      b.AmountCents,
		Currency:         b.Currency,
		PlatformFeeCents: payment.PlatformFee(b.AmountCents, s.opts.PlatformFeeBps),
		HostAccountID:    hostAccount,
		CustomerEmail:    req.DriverEmail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "checkout failed, releasing slot", "booking_id", b.ID, "err", err)
		s.release(ctx, b.ID)
		return nil, ErrPaymentFailed
	}

	// A pending booking without its session id can never be settled by a
	// webhook, so the attach must not be cut short by the request.
	if err := s.repo.AttachCheckoutSession(context.WithoutCancel(ctx), b.ID, session.ID); err != nil {
		s.logger.WarnContext(ctx, "attach checkout session failed, releasing slot", "booking_id", b.ID, "err", err)
		s.release(ctx, b.ID)
		return nil, err
	}
	b.CheckoutSessionID = &session.ID

	return &Created{Booking: b, CheckoutURL: session.URL}, nil
}

// release cancels a pending booking whose checkout could not be set up. The
// request context may already be done; the slot must be freed regardless.
func (s *service) release(ctx context.Context, id string) {
	if err := s.repo.Cancel(context.WithoutCancel(ctx), id); err != nil {
		s.logger.ErrorContext(ctx, "release slot failed", "booking_id", id, "err", err)
	}
}

func (s *service) GetByID(ctx context.Context, id, userID string, isAdmin bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.DriverID != userID && b.HostID != userID {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

func (s *service) ListByDriver(ctx context.Context, driverID string, page request.ListParams) ([]*Booking, int, error) {
	page.Normalize()
	return s.repo.ListByDriver(ctx, driverID, page.PageSize, page.Offset())
}

func (s *service) Cancel(ctx context.Context, id, driverID string, isAdmin bool) (*Booking, bool, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !isAdmin && b.DriverID != driverID {
		return nil, false, ErrPermissionDenied
	}
	if b.Status == availability.StatusCanceled {
		return b, true, nil
	}

	if err := s.repo.Cancel(ctx, id); err != nil {
		return nil, false, err
	}
	b.Status = availability.StatusCanceled
	return b, false, nil
}

func (s *service) ApplyPayment(ctx context.Context, out payment.Outcome) error {
	if out.Status == "" || out.SessionID == "" {
		return nil
	}

	n, err := s.repo.SetStatusByCheckoutSession(ctx, out.SessionID, out.Status)
	if errors.Is(err, ErrStatusUnsupported) {
		s.logger.WarnContext(ctx, "booking status columns missing, webhook status update skipped",
			"event_id", out.EventID,
			"session_id", out.SessionID,
		)
		return nil
	}
	if err != nil {
		return err
	}

	if n == 0 {
		s.logger.WarnContext(ctx, "no pending booking for checkout session",
			"event_id", out.EventID,
			"event_type", out.EventType,
			"session_id", out.SessionID,
		)
		return nil
	}
	s.logger.InfoContext(ctx, "booking status updated",
		"session_id", out.SessionID,
		"status", out.Status,
	)
	return nil
}
