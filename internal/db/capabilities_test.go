package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyRows struct{ err error }

func (r *emptyRows) Close()                                       {}
func (r *emptyRows) Err() error                                   { return r.err }
func (r *emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *emptyRows) Next() bool                                   { return false }
func (r *emptyRows) Scan(...any) error                            { return nil }
func (r *emptyRows) Values() ([]any, error)                       { return nil, nil }
func (r *emptyRows) RawValues() [][]byte                          { return nil }
func (r *emptyRows) Conn() *pgx.Conn                              { return nil }

// fakeQuerier fails any query containing one of the configured fragments.
type fakeQuerier struct {
	failures map[string]error
	// deferred errors surface from rows.Err instead of Query.
	deferred bool
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	for fragment, err := range q.failures {
		if strings.Contains(sql, fragment) {
			if q.deferred {
				return &emptyRows{err: err}, nil
			}
			return nil, err
		}
	}
	return &emptyRows{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDetectCapabilitiesFullSchema(t *testing.T) {
	caps, err := DetectCapabilities(context.Background(), &fakeQuerier{}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, FullCapabilities(), caps)
}

func TestDetectCapabilitiesLegacySchema(t *testing.T) {
	for _, deferred := range []bool{false, true} {
		q := &fakeQuerier{
			deferred: deferred,
			failures: map[string]error{
				"SELECT status":          &pgconn.PgError{Code: pgerrcode.UndefinedColumn},
				"checkout_session_id":    &pgconn.PgError{Code: pgerrcode.UndefinedColumn},
				"listing_availability":   &pgconn.PgError{Code: pgerrcode.UndefinedTable},
				"SELECT image_urls FROM": &pgconn.PgError{Code: pgerrcode.UndefinedColumn},
			},
		}

		caps, err := DetectCapabilities(context.Background(), q, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, Capabilities{RatingCount: true}, caps)
	}
}

func TestDetectCapabilitiesPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	q := &fakeQuerier{failures: map[string]error{"rating_count": boom}}

	_, err := DetectCapabilities(context.Background(), q, discardLogger())
	assert.ErrorIs(t, err, boom)

	q = &fakeQuerier{failures: map[string]error{"rating_count": &pgconn.PgError{Code: pgerrcode.InsufficientPrivilege}}}
	_, err = DetectCapabilities(context.Background(), q, discardLogger())
	assert.Error(t, err)
}

func TestErrorClassifiers(t *testing.T) {
	excl := &pgconn.PgError{Code: pgerrcode.ExclusionViolation}
	assert.True(t, IsExclusionViolation(excl))
	assert.True(t, IsExclusionViolation(errors.Join(errors.New("insert"), excl)))
	assert.False(t, IsExclusionViolation(errors.New("other")))

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, IsMissingSchema(excl))
}
