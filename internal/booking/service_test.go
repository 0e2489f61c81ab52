package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/payment"
	"github.com/curbshare/parking-backend/internal/pkg/request"
)

// memRepo keeps bookings in memory. Its mutex plays the part of the listing
// row lock.
type memRepo struct {
	mu       sync.Mutex
	listings map[string]LockedListing
	rules    map[string][]availability.Rule
	bookings map[string]*Booking
	sessions map[string]string
	seq      int
}

func newMemRepo() *memRepo {
	return &memRepo{
		listings: map[string]LockedListing{},
		rules:    map[string][]availability.Rule{},
		bookings: map[string]*Booking{},
		sessions: map[string]string{},
	}
}

func (r *memRepo) CreateChecked(_ context.Context, b *Booking, check CheckFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[b.ListingID]
	if !ok {
		return ErrListingNotFound
	}

	rec := availability.Record{Rules: r.rules[b.ListingID]}
	for _, existing := range r.bookings {
		if existing.ListingID == b.ListingID {
			rec.Bookings = append(rec.Bookings, availability.Booking{
				ID:       existing.ID,
				Interval: existing.Interval(),
				Status:   existing.Status,
			})
		}
	}

	// Widen the window in which a second writer could slip in.
	time.Sleep(time.Millisecond)

	if err := check(l, rec); err != nil {
		return err
	}

	r.seq++
	b.ID = fmt.Sprintf("b%d", r.seq)
	b.CreatedAt = time.Now()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) ListByDriver(_ context.Context, driverID string, limit, offset int) ([]*Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Booking
	for _, b := range r.bookings {
		if b.DriverID == driverID {
			cp := *b
			out = append(out, &cp)
		}
	}
	total := len(out)
	out = out[min(offset, total):min(offset+limit, total)]
	return out, total, nil
}

func (r *memRepo) AttachCheckoutSession(_ context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.CheckoutSessionID = &sessionID
	r.sessions[sessionID] = id
	return nil
}

func (r *memRepo) Cancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = availability.StatusCanceled
	return nil
}

func (r *memRepo) SetStatusByCheckoutSession(_ context.Context, sessionID string, status availability.BookingStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sessions[sessionID]
	if !ok || r.bookings[id].Status != availability.StatusPending {
		return 0, nil
	}
	r.bookings[id].Status = status
	return 1, nil
}

type failingCheckout struct{}

func (failingCheckout) CreateSession(context.Context, payment.CheckoutInput) (payment.Session, error) {
	return payment.Session{}, errors.New("stripe down")
}

var now = time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
}

func newTestService(repo Repository, checkout payment.Checkout) Service {
	return NewService(
		repo,
		availability.NewResolver(availability.GateContain),
		checkout,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options{Currency: "eur", PlatformFeeBps: 1000, Now: func() time.Time { return now }},
	)
}

func seededRepo() *memRepo {
	repo := newMemRepo()
	repo.listings["l1"] = LockedListing{ID: "l1", HostID: "host", Title: "Driveway", PricePerDay: 1200}
	return repo
}

func TestCreateBooking(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))

	c, err := svc.Create(context.Background(), CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)
	assert.Equal(t, availability.StatusPending, c.Booking.Status)
	assert.Equal(t, int64(1200), c.Booking.AmountCents)
	require.NotNil(t, c.Booking.CheckoutSessionID)
	assert.Contains(t, c.CheckoutURL, *c.Booking.CheckoutSessionID)
}

func TestCreateBookingValidation(t *testing.T) {
	repo := seededRepo()
	repo.listings["archived"] = LockedListing{ID: "archived", HostID: "host", Archived: true}
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 12), To: at(1, 12)})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 6), To: at(1, 12)})
	assert.ErrorIs(t, err, ErrStartTimePast)

	_, err = svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "missing", From: at(1, 10), To: at(1, 12)})
	assert.ErrorIs(t, err, ErrListingNotFound)

	_, err = svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "archived", From: at(1, 10), To: at(1, 12)})
	assert.ErrorIs(t, err, ErrListingNotFound)

	_, err = svc.Create(ctx, CreateRequest{DriverID: "host", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	assert.ErrorIs(t, err, ErrOwnListing)
}

func TestCreateBookingConflictsAndBoundaries(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{DriverID: "d2", ListingID: "l1", From: at(1, 11), To: at(1, 13)})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Back-to-back bookings share an endpoint and both succeed.
	_, err = svc.Create(ctx, CreateRequest{DriverID: "d2", ListingID: "l1", From: at(1, 12), To: at(1, 14)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{DriverID: "d3", ListingID: "l1", From: at(1, 8), To: at(1, 10)})
	require.NoError(t, err)
}

func TestCreateBookingRespectsRules(t *testing.T) {
	repo := seededRepo()
	repo.rules["l1"] = []availability.Rule{{
		ID:             "open",
		Kind:           availability.KindOpen,
		StartsAt:       at(1, 9),
		EndsAt:         at(1, 17),
		RepeatWeekdays: []time.Weekday{time.Monday},
	}}
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))
	ctx := context.Background()

	// Jan 8 2024 is a Monday, Jan 9 a Tuesday.
	_, err := svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(8, 10), To: at(8, 12)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(9, 10), To: at(9, 12)})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestConcurrentOverlappingBookings(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))

	const attempts = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
		start     = make(chan struct{})
	)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			// Every window overlaps 11:00-12:00.
			from := at(1, 9+i%3)
			_, err := svc.Create(context.Background(), CreateRequest{
				DriverID:  fmt.Sprintf("d%d", i),
				ListingID: "l1",
				From:      from,
				To:        from.Add(3 * time.Hour),
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrSlotUnavailable):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
}

func TestCheckoutFailureReleasesSlot(t *testing.T) {
	repo := seededRepo()
	ctx := context.Background()

	_, err := newTestService(repo, failingCheckout{}).Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	assert.ErrorIs(t, err, ErrPaymentFailed)

	_, err = newTestService(repo, payment.NewMockCheckout("http://web")).Create(ctx, CreateRequest{DriverID: "d2", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)
}

// attachFailingRepo fails to record the checkout session, or, with
// ctxSensitive, fails only when the caller's context is already done.
type attachFailingRepo struct {
	*memRepo
	ctxSensitive bool
}

func (r *attachFailingRepo) AttachCheckoutSession(ctx context.Context, id, sessionID string) error {
	if !r.ctxSensitive {
		return errors.New("connection reset")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memRepo.AttachCheckoutSession(ctx, id, sessionID)
}

func TestAttachFailureReleasesSlot(t *testing.T) {
	repo := seededRepo()
	ctx := context.Background()

	_, err := newTestService(&attachFailingRepo{memRepo: repo}, payment.NewMockCheckout("http://web")).
		Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.Error(t, err)

	_, err = newTestService(repo, payment.NewMockCheckout("http://web")).
		Create(ctx, CreateRequest{DriverID: "d2", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)
}

func TestAttachSurvivesCanceledRequest(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(&attachFailingRepo{memRepo: repo, ctxSensitive: true}, payment.NewMockCheckout("http://web"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), c.Booking.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CheckoutSessionID)
	assert.Equal(t, *c.Booking.CheckoutSessionID, *stored.CheckoutSessionID)
}

func TestCancelBooking(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)

	_, _, err = svc.Cancel(ctx, c.Booking.ID, "d2", false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	b, already, err := svc.Cancel(ctx, c.Booking.ID, "d1", false)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, availability.StatusCanceled, b.Status)

	_, already, err = svc.Cancel(ctx, c.Booking.ID, "d1", false)
	require.NoError(t, err)
	assert.True(t, already)

	// The canceled booking no longer holds the slot.
	_, err = svc.Create(ctx, CreateRequest{DriverID: "d2", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)
}

func TestGetByIDVisibility(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)

	for _, who := range []string{"d1", "host"} {
		_, err := svc.GetByID(ctx, c.Booking.ID, who, false)
		assert.NoError(t, err, who)
	}
	_, err = svc.GetByID(ctx, c.Booking.ID, "stranger", false)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.GetByID(ctx, c.Booking.ID, "stranger", true)
	assert.NoError(t, err)
}

func TestListByDriverPages(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))
	ctx := context.Background()

	for day := 2; day <= 4; day++ {
		_, err := svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(day, 10), To: at(day, 12)})
		require.NoError(t, err)
	}

	items, total, err := svc.ListByDriver(ctx, "d1", request.ListParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)

	items, total, err = svc.ListByDriver(ctx, "d2", request.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestApplyPayment(t *testing.T) {
	repo := seededRepo()
	svc := newTestService(repo, payment.NewMockCheckout("http://web"))
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateRequest{DriverID: "d1", ListingID: "l1", From: at(1, 10), To: at(1, 12)})
	require.NoError(t, err)
	session := *c.Booking.CheckoutSessionID

	require.NoError(t, svc.ApplyPayment(ctx, payment.Outcome{SessionID: session, Status: availability.StatusConfirmed}))
	b, err := repo.GetByID(ctx, c.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, availability.StatusConfirmed, b.Status)

	// A late expiry does not undo a confirmed booking.
	require.NoError(t, svc.ApplyPayment(ctx, payment.Outcome{SessionID: session, Status: availability.StatusCanceled}))
	b, err = repo.GetByID(ctx, c.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, availability.StatusConfirmed, b.Status)

	require.NoError(t, svc.ApplyPayment(ctx, payment.Outcome{SessionID: "cs_unknown", Status: availability.StatusConfirmed}))
	require.NoError(t, svc.ApplyPayment(ctx, payment.Outcome{EventType: "payment_intent.created"}))
}

func TestPrice(t *testing.T) {
	iv := func(h int) availability.Interval {
		return availability.Interval{Start: at(1, 0), End: at(1, 0).Add(time.Duration(h) * time.Hour)}
	}
	assert.Equal(t, int64(1000), Price(1000, iv(1)))
	assert.Equal(t, int64(1000), Price(1000, iv(24)))
	assert.Equal(t, int64(2000), Price(1000, iv(25)))
}
