package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/db"
)

// LoadRecords reads everything the resolver needs for the given listings:
// bookings overlapping window and every rule that can produce an occurrence
// inside it. Listings without bookings or rules get an empty record.
//
// q may be the pool or a transaction, so booking creation can load the record
// under the listing lock.
func LoadRecords(ctx context.Context, q db.Querier, caps db.Capabilities, ids []string, window availability.Interval) (map[string]availability.Record, error) {
	records := make(map[string]availability.Record, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	if err := loadBookings(ctx, q, caps, ids, window, records); err != nil {
		return nil, err
	}
	if caps.AvailabilityRules {
		if err := loadRules(ctx, q, ids, window, records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func loadBookings(ctx context.Context, q db.Querier, caps db.Capabilities, ids []string, window availability.Interval, records map[string]availability.Record) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	// Without a status column every stored booking holds its slot.
	status := fmt.Sprintf("'%s'", availability.StatusConfirmed)
	if caps.BookingStatus {
		status = "COALESCE(status, 'confirmed')"
	}

	query, args, err := psql.Select("id", "listing_id", "start_time", "end_time", status).
		From("public.bookings").
		Where(squirrel.Expr("listing_id = ANY(?::uuid[])", ids)).
		Where(squirrel.Lt{"start_time": window.End}).
		Where(squirrel.Gt{"end_time": window.Start}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build load bookings query failed: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load bookings failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b          availability.Booking
			listingID  string
			start, end time.Time
		)
		if err := rows.Scan(&b.ID, &listingID, &start, &end, &b.Status); err != nil {
			return fmt.Errorf("scan booking failed: %w", err)
		}
		b.Interval = availability.Interval{Start: start.UTC(), End: end.UTC()}

		rec := records[listingID]
		rec.Bookings = append(rec.Bookings, b)
		records[listingID] = rec
	}
	return rows.Err()
}

func loadRules(ctx context.Context, q db.Querier, ids []string, window availability.Interval, records map[string]availability.Record) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(append([]string{"listing_id"}, RuleColumns...)...).
		From("public.listing_availability").
		Where(squirrel.Expr("listing_id = ANY(?::uuid[])", ids)).
		Where(squirrel.Or{
			// Recurring rules are expanded in Go, so all of them are needed.
			squirrel.Expr("COALESCE(cardinality(repeat_weekdays), 0) > 0"),
			squirrel.And{
				squirrel.Lt{"starts_at": window.End},
				squirrel.Gt{"ends_at": window.Start},
			},
		}).
		OrderBy("starts_at ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build load rules query failed: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load rules failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var listingID string
		var row RuleRow
		if err := rows.Scan(append([]any{&listingID}, row.Dest()...)...); err != nil {
			return fmt.Errorf("scan rule failed: %w", err)
		}

		rec := records[listingID]
		rec.Rules = append(rec.Rules, row.Rule())
		records[listingID] = rec
	}
	return rows.Err()
}

// RuleColumns are the listing_availability columns RuleRow scans.
var RuleColumns = []string{"id", "kind", "starts_at", "ends_at", "repeat_weekdays", "repeat_until"}

// RuleRow is the raw form of a listing_availability row.
type RuleRow struct {
	ID             string
	Kind           string
	StartsAt       time.Time
	EndsAt         time.Time
	RepeatWeekdays []int16
	RepeatUntil    *time.Time
}

// Dest returns scan targets in RuleColumns order.
func (r *RuleRow) Dest() []any {
	return []any{&r.ID, &r.Kind, &r.StartsAt, &r.EndsAt, &r.RepeatWeekdays, &r.RepeatUntil}
}

func (r RuleRow) Rule() availability.Rule {
	rule := availability.Rule{
		ID:       r.ID,
		Kind:     availability.Kind(r.Kind),
		StartsAt: r.StartsAt.UTC(),
		EndsAt:   r.EndsAt.UTC(),
	}
	for _, wd := range r.RepeatWeekdays {
		rule.RepeatWeekdays = append(rule.RepeatWeekdays, time.Weekday(wd))
	}
	if r.RepeatUntil != nil {
		until := r.RepeatUntil.UTC()
		rule.RepeatUntil = &until
	}
	return rule
}
