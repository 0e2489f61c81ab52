package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/db"
	"github.com/curbshare/parking-backend/internal/listing"
)

type Repository interface {
	// CreateChecked locks the listing, loads its availability record, runs
	// check and inserts b, all in one transaction. Concurrent calls for the
	// same listing are serialized.
	CreateChecked(ctx context.Context, b *Booking, check CheckFunc) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	// ListByDriver returns one page of the driver's bookings and the total count.
	ListByDriver(ctx context.Context, driverID string, limit, offset int) ([]*Booking, int, error)
	AttachCheckoutSession(ctx context.Context, id, sessionID string) error
	// Cancel frees the booking's slot.
	Cancel(ctx context.Context, id string) error
	// SetStatusByCheckoutSession moves the pending booking paid through
	// sessionID to status and reports how many rows changed.
	SetStatusByCheckoutSession(ctx context.Context, sessionID string, status availability.BookingStatus) (int64, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
	caps db.Capabilities
}

func NewPgxRepository(pool *pgxpool.Pool, caps db.Capabilities) Repository {
	return &pgxRepository{pool: pool, caps: caps}
}

func (r *pgxRepository) CreateChecked(ctx context.Context, b *Booking, check CheckFunc) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		const lockQuery = `
			SELECT l.id, l.host_id, l.title, l.price_per_day, l.status = 'archived', u.host_stripe_account_id
			FROM public.listings l
			JOIN public.users u ON u.id = l.host_id
			WHERE l.id = $1
			FOR UPDATE OF l`

		var l LockedListing
		if err := tx.QueryRow(ctx, lockQuery, b.ListingID).Scan(
			&l.ID, &l.HostID, &l.Title, &l.PricePerDay, &l.Archived, &l.HostAccountID,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrListingNotFound
			}
			return fmt.Errorf("lock listing failed: %w", err)
		}

		records, err := listing.LoadRecords(ctx, tx, r.caps, []string{l.ID}, b.Interval())
		if err != nil {
			return err
		}
		if err := check(l, records[l.ID]); err != nil {
			return err
		}

		return r.insert(ctx, tx, b)
	})
}

func (r *pgxRepository) insert(ctx context.Context, tx pgx.Tx, b *Booking) error {
	query, args, err := r.insertQuery(b)
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt); err != nil {
		if db.IsExclusionViolation(err) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

// insertQuery builds the booking insert. Without a status column the row is
// live as soon as it exists, so b is reported as confirmed.
func (r *pgxRepository) insertQuery(b *Booking) (string, []any, error) {
	cols := []string{"listing_id", "driver_id", "start_time", "end_time", "amount_cents", "currency"}
	vals := []any{b.ListingID, b.DriverID, b.StartTime, b.EndTime, b.AmountCents, b.Currency}
	if r.caps.BookingStatus {
		cols = append(cols, "status")
		vals = append(vals, b.Status)
	} else {
		b.Status = availability.StatusConfirmed
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Insert("public.bookings").
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING id, created_at").
		ToSql()
}

func (r *pgxRepository) selectBookings() squirrel.SelectBuilder {
	status := "'confirmed'"
	if r.caps.BookingStatus {
		status = "COALESCE(b.status, 'confirmed')"
	}
	session := "NULL::text"
	if r.caps.CheckoutSession {
		session = "b.checkout_session_id"
	}

	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			"b.id", "b.listing_id", "l.title", "l.host_id", "b.driver_id",
			"b.start_time", "b.end_time", status,
			"COALESCE(b.amount_cents, 0)", "COALESCE(b.currency, '')",
			session, "b.created_at",
		).
		From("public.bookings b").
		Join("public.listings l ON l.id = b.listing_id")
}

func scanDest(b *Booking) []any {
	return []any{
		&b.ID, &b.ListingID, &b.ListingTitle, &b.HostID, &b.DriverID,
		&b.StartTime, &b.EndTime, &b.Status,
		&b.AmountCents, &b.Currency,
		&b.CheckoutSessionID, &b.CreatedAt,
	}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := r.selectBookings().Where(squirrel.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	var b Booking
	if err := r.pool.QueryRow(ctx, query, args...).Scan(scanDest(&b)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return &b, nil
}

func (r *pgxRepository) ListByDriver(ctx context.Context, driverID string, limit, offset int) ([]*Booking, int, error) {
	query, args, err := r.selectBookings().
		Column("count(*) OVER() AS total_count").
		Where(squirrel.Eq{"b.driver_id": driverID}).
		OrderBy("b.start_time DESC", "b.id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		var b Booking
		if err := rows.Scan(append(scanDest(&b), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *pgxRepository) AttachCheckoutSession(ctx context.Context, id, sessionID string) error {
	if !r.caps.CheckoutSession {
		return nil
	}

	const query = `UPDATE public.bookings SET checkout_session_id = $1 WHERE id = $2`
	ct, err := r.pool.Exec(ctx, query, sessionID, id)
	if err != nil {
		return fmt.Errorf("attach checkout session failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// cancelQuery frees a slot. Without a status column a canceled booking
// cannot be told apart from a live one, so the row goes.
func (r *pgxRepository) cancelQuery() string {
	if !r.caps.BookingStatus {
		return `DELETE FROM public.bookings WHERE id = $1`
	}
	return `UPDATE public.bookings SET status = 'canceled' WHERE id = $1`
}

func (r *pgxRepository) Cancel(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, r.cancelQuery(), id)
	if err != nil {
		return fmt.Errorf("cancel booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) SetStatusByCheckoutSession(ctx context.Context, sessionID string, status availability.BookingStatus) (int64, error) {
	if !r.caps.BookingStatus || !r.caps.CheckoutSession {
		return 0, ErrStatusUnsupported
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", status).
		Where(squirrel.Eq{"checkout_session_id": sessionID, "status": availability.StatusPending}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update booking status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update booking status failed: %w", err)
	}
	return ct.RowsAffected(), nil
}
