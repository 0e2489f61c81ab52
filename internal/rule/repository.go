package rule

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curbshare/parking-backend/internal/listing"
)

type Repository interface {
	// ListingHost returns the host that owns listingID.
	ListingHost(ctx context.Context, listingID string) (string, error)
	List(ctx context.Context, listingID string) ([]*Entry, error)
	GetByID(ctx context.Context, id string) (*Entry, error)
	Create(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func weekdays(e *Entry) []int16 {
	if len(e.RepeatWeekdays) == 0 {
		return nil
	}
	out := make([]int16, len(e.RepeatWeekdays))
	for i, wd := range e.RepeatWeekdays {
		out[i] = int16(wd)
	}
	return out
}

func (r *pgxRepository) selectEntries() squirrel.SelectBuilder {
	cols := make([]string, 0, len(listing.RuleColumns)+3)
	for _, c := range listing.RuleColumns {
		cols = append(cols, "a."+c)
	}
	cols = append(cols, "a.listing_id", "l.host_id", "a.created_at")

	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(cols...).
		From("public.listing_availability a").
		Join("public.listings l ON l.id = a.listing_id")
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var raw listing.RuleRow
	var e Entry
	if err := row.Scan(append(raw.Dest(), &e.ListingID, &e.HostID, &e.CreatedAt)...); err != nil {
		return nil, err
	}
	e.Rule = raw.Rule()
	return &e, nil
}

func (r *pgxRepository) ListingHost(ctx context.Context, listingID string) (string, error) {
	var hostID string
	err := r.pool.QueryRow(ctx, `SELECT host_id FROM public.listings WHERE id = $1`, listingID).Scan(&hostID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrListingNotFound
		}
		return "", fmt.Errorf("get listing host failed: %w", err)
	}
	return hostID, nil
}

func (r *pgxRepository) List(ctx context.Context, listingID string) ([]*Entry, error) {
	query, args, err := r.selectEntries().
		Where(squirrel.Eq{"a.listing_id": listingID}).
		OrderBy("a.starts_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list availability query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability failed: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Entry, error) {
	query, args, err := r.selectEntries().Where(squirrel.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get availability query failed: %w", err)
	}

	e, err := scanEntry(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get availability failed: %w", err)
	}
	return e, nil
}

func (r *pgxRepository) Create(ctx context.Context, e *Entry) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.listing_availability").
		Columns("listing_id", "kind", "starts_at", "ends_at", "repeat_weekdays", "repeat_until").
		Values(e.ListingID, e.Kind, e.StartsAt, e.EndsAt, weekdays(e), e.RepeatUntil).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create availability query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("create availability failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Update(ctx context.Context, e *Entry) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.listing_availability").
		Set("kind", e.Kind).
		Set("starts_at", e.StartsAt).
		Set("ends_at", e.EndsAt).
		Set("repeat_weekdays", weekdays(e)).
		Set("repeat_until", e.RepeatUntil).
		Where(squirrel.Eq{"id": e.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update availability query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update availability failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM public.listing_availability WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
