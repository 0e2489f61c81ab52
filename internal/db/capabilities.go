package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Capabilities records which optional schema features the connected database
// has. Older deployments may be missing any of them mid-migration.
type Capabilities struct {
	// bookings.status exists. Without it every stored booking counts as confirmed.
	BookingStatus bool
	// bookings.checkout_session_id exists.
	CheckoutSession bool
	// listing_availability exists. Without it open/blocked rules are skipped.
	AvailabilityRules bool
	RatingCount       bool
	ImageURLs         bool
}

// FullCapabilities is the current schema.
func FullCapabilities() Capabilities {
	return Capabilities{
		BookingStatus:     true,
		CheckoutSession:   true,
		AvailabilityRules: true,
		RatingCount:       true,
		ImageURLs:         true,
	}
}

// Querier is the subset of pgx used by the probes.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type probe struct {
	name  string
	query string
	set   func(*Capabilities, bool)
}

var probes = []probe{
	{"booking status", "SELECT status FROM public.bookings LIMIT 0", func(c *Capabilities, ok bool) { c.BookingStatus = ok }},
	{"booking checkout session", "SELECT checkout_session_id FROM public.bookings LIMIT 0", func(c *Capabilities, ok bool) { c.CheckoutSession = ok }},
	{"availability rules", "SELECT id, kind, starts_at, ends_at, repeat_weekdays, repeat_until FROM public.listing_availability LIMIT 0", func(c *Capabilities, ok bool) { c.AvailabilityRules = ok }},
	{"listing rating count", "SELECT rating_count FROM public.listings LIMIT 0", func(c *Capabilities, ok bool) { c.RatingCount = ok }},
	{"listing image urls", "SELECT image_urls FROM public.listings LIMIT 0", func(c *Capabilities, ok bool) { c.ImageURLs = ok }},
}

// DetectCapabilities probes the schema once. A missing column or table turns
// the matching capability off and logs a warning; any other failure is
// returned unchanged.
func DetectCapabilities(ctx context.Context, q Querier, logger *slog.Logger) (Capabilities, error) {
	var caps Capabilities
	for _, p := range probes {
		ok, err := runProbe(ctx, q, p.query)
		if err != nil {
			return Capabilities{}, fmt.Errorf("probe %s failed: %w", p.name, err)
		}
		if !ok {
			logger.Warn("schema capability missing, using reduced feature set", "capability", p.name)
		}
		p.set(&caps, ok)
	}
	return caps, nil
}

func runProbe(ctx context.Context, q Querier, query string) (bool, error) {
	rows, err := q.Query(ctx, query)
	if err == nil {
		rows.Close()
		err = rows.Err()
	}
	if err == nil {
		return true, nil
	}
	if IsMissingSchema(err) {
		return false, nil
	}
	return false, err
}

// IsMissingSchema reports whether err is Postgres complaining about an
// undefined column or table.
func IsMissingSchema(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UndefinedColumn || pgErr.Code == pgerrcode.UndefinedTable
}

// IsExclusionViolation reports whether err comes from an exclusion constraint,
// which the bookings table uses to forbid overlapping live bookings.
func IsExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ExclusionViolation
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
