package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/db"
)

type Repository interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id string) (*Listing, error)
	ListByHost(ctx context.Context, hostID string, limit, offset int) ([]*Listing, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	// Delete removes a listing owned by hostID.
	Delete(ctx context.Context, id, hostID string) error

	// Candidates returns non-archived listings within the filter radius,
	// nearest first.
	Candidates(ctx context.Context, f CandidateFilter) ([]Nearby, error)
	LoadRecords(ctx context.Context, ids []string, window availability.Interval) (map[string]availability.Record, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
	caps db.Capabilities
}

func NewPgxRepository(pool *pgxpool.Pool, caps db.Capabilities) Repository {
	return &pgxRepository{pool: pool, caps: caps}
}

const searchPoint = "ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography"

// columns projects a Listing, substituting defaults for optional columns the
// schema does not have yet.
func (r *pgxRepository) columns() []string {
	ratingCount := "0"
	if r.caps.RatingCount {
		ratingCount = "COALESCE(l.rating_count, 0)"
	}
	imageURLs := "'{}'::text[]"
	if r.caps.ImageURLs {
		imageURLs = "COALESCE(l.image_urls, '{}')"
	}
	return []string{
		"l.id", "l.host_id", "l.title", "l.address",
		"COALESCE(l.availability_text, '')", "l.price_per_day",
		"ST_Y(l.geom)", "ST_X(l.geom)",
		"COALESCE(l.amenities, '{}')", imageURLs,
		"COALESCE(l.rating, 5)::float8", ratingCount,
		"l.status", "l.created_at",
	}
}

func scanDest(l *Listing) []any {
	return []any{
		&l.ID, &l.HostID, &l.Title, &l.Address,
		&l.AvailabilityText, &l.PricePerDay,
		&l.Latitude, &l.Longitude,
		&l.Amenities, &l.ImageURLs,
		&l.Rating, &l.RatingCount,
		&l.Status, &l.CreatedAt,
	}
}

func (r *pgxRepository) Create(ctx context.Context, l *Listing) error {
	cols := []string{"host_id", "title", "address", "availability_text", "price_per_day", "amenities", "geom", "status"}
	vals := []any{
		l.HostID, l.Title, l.Address, l.AvailabilityText, l.PricePerDay, l.Amenities,
		squirrel.Expr("ST_SetSRID(ST_MakePoint(?, ?), 4326)", l.Longitude, l.Latitude),
		l.Status,
	}
	if r.caps.ImageURLs {
		cols = append(cols, "image_urls")
		vals = append(vals, l.ImageURLs)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.listings").
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING id, COALESCE(rating, 5)::float8, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create listing query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&l.ID, &l.Rating, &l.CreatedAt); err != nil {
		return fmt.Errorf("create listing failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Listing, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(r.columns()...).
		From("public.listings l").
		Where(squirrel.Eq{"l.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get listing query failed: %w", err)
	}

	var l Listing
	if err := r.pool.QueryRow(ctx, query, args...).Scan(scanDest(&l)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get listing failed: %w", err)
	}
	return &l, nil
}

func (r *pgxRepository) ListByHost(ctx context.Context, hostID string, limit, offset int) ([]*Listing, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(r.columns()...).
		Column("count(*) OVER() AS total_count").
		From("public.listings l").
		Where(squirrel.Eq{"l.host_id": hostID}).
		OrderBy("l.created_at DESC", "l.id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list listings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings failed: %w", err)
	}
	defer rows.Close()

	var listings []*Listing
	var total int
	for rows.Next() {
		var l Listing
		if err := rows.Scan(append(scanDest(&l), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan listing failed: %w", err)
		}
		listings = append(listings, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.listings").
		Set("status", status).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update listing status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update listing status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id, hostID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.listings").
		Where(squirrel.Eq{"id": id, "host_id": hostID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete listing query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrHasBookings
		}
		return fmt.Errorf("delete listing failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Candidates(ctx context.Context, f CandidateFilter) ([]Nearby, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(r.columns()...).
		Column(squirrel.Expr("ST_Distance(l.geom::geography, "+searchPoint+") / 1000.0 AS distance_km", f.Lng, f.Lat)).
		From("public.listings l").
		Where(squirrel.Expr("ST_DWithin(l.geom::geography, "+searchPoint+", ?)", f.Lng, f.Lat, f.RadiusKm*1000)).
		Where(squirrel.NotEq{"l.status": StatusArchived})

	if f.MinPrice != nil {
		query = query.Where(squirrel.GtOrEq{"l.price_per_day": *f.MinPrice})
	}
	if f.MaxPrice != nil {
		query = query.Where(squirrel.LtOrEq{"l.price_per_day": *f.MaxPrice})
	}
	if len(f.Amenities) > 0 {
		query = query.Where(squirrel.Expr("l.amenities @> ?::text[]", f.Amenities))
	}
	if text := strings.TrimSpace(f.Text); text != "" {
		pattern := "%" + text + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"l.title": pattern},
			squirrel.ILike{"l.address": pattern},
		})
	}

	query = query.OrderBy("distance_km ASC", "l.id ASC")
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidates query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates failed: %w", err)
	}
	defer rows.Close()

	var out []Nearby
	for rows.Next() {
		n := Nearby{Listing: &Listing{}}
		if err := rows.Scan(append(scanDest(n.Listing), &n.DistanceKm)...); err != nil {
			return nil, fmt.Errorf("scan candidate failed: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *pgxRepository) LoadRecords(ctx context.Context, ids []string, window availability.Interval) (map[string]availability.Record, error) {
	return LoadRecords(ctx, r.pool, r.caps, ids, window)
}
