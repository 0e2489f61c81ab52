package rule

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/pkg/apperror"
)

type memRepo struct {
	hosts   map[string]string
	entries map[string]*Entry
}

func newMemRepo() *memRepo {
	return &memRepo{
		hosts:   map[string]string{"l1": "host-1"},
		entries: map[string]*Entry{},
	}
}

func (r *memRepo) ListingHost(_ context.Context, listingID string) (string, error) {
	h, ok := r.hosts[listingID]
	if !ok {
		return "", ErrListingNotFound
	}
	return h, nil
}

func (r *memRepo) List(_ context.Context, listingID string) ([]*Entry, error) {
	var out []*Entry
	for _, e := range r.entries {
		if e.ListingID == listingID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, e *Entry) error {
	e.ID = fmt.Sprintf("a%d", len(r.entries)+1)
	e.HostID = r.hosts[e.ListingID]
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *memRepo) Update(_ context.Context, e *Entry) error {
	if _, ok := r.entries[e.ID]; !ok {
		return ErrNotFound
	}
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.entries[id]; !ok {
		return ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

var (
	host     = Actor{UserID: "host-1"}
	stranger = Actor{UserID: "host-2"}
	admin    = Actor{UserID: "root", IsAdmin: true}
)

func weeklyInput() Input {
	return Input{
		Kind:           availability.KindOpen,
		StartsAt:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC),
		RepeatWeekdays: []time.Weekday{time.Monday, time.Wednesday},
	}
}

func TestCreateAndList(t *testing.T) {
	svc := NewService(newMemRepo(), true)
	ctx := context.Background()

	e, err := svc.Create(ctx, host, "l1", weeklyInput())
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.True(t, e.Recurring())

	entries, err := svc.List(ctx, host, "l1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.List(ctx, stranger, "l1")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.List(ctx, admin, "l1")
	assert.NoError(t, err)

	_, err = svc.Create(ctx, host, "missing", weeklyInput())
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestCreateRejectsInvalidRule(t *testing.T) {
	svc := NewService(newMemRepo(), true)

	in := weeklyInput()
	in.EndsAt = in.StartsAt
	_, err := svc.Create(context.Background(), host, "l1", in)
	assert.ErrorIs(t, err, availability.ErrInvalidInterval)
	assert.ErrorIs(t, err, ErrInvalidRule)
	assert.Equal(t, http.StatusBadRequest, apperror.StatusCode(err))

	in = weeklyInput()
	in.Kind = "sometimes"
	_, err = svc.Create(context.Background(), host, "l1", in)
	assert.ErrorIs(t, err, availability.ErrInvalidKind)
}

func TestUpdatePatchesFields(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, true)
	ctx := context.Background()

	in := weeklyInput()
	until := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	in.RepeatUntil = &until
	e, err := svc.Create(ctx, host, "l1", in)
	require.NoError(t, err)

	blocked := availability.KindBlocked
	updated, err := svc.Update(ctx, host, e.ID, Patch{Kind: &blocked, ClearRepeatUntil: true})
	require.NoError(t, err)
	assert.Equal(t, availability.KindBlocked, updated.Kind)
	assert.Nil(t, updated.RepeatUntil)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, updated.RepeatWeekdays)

	none := []time.Weekday{}
	updated, err = svc.Update(ctx, host, e.ID, Patch{RepeatWeekdays: &none})
	require.NoError(t, err)
	assert.False(t, updated.Recurring())

	_, err = svc.Update(ctx, stranger, e.ID, Patch{Kind: &blocked})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	bad := e.StartsAt.Add(-time.Hour)
	_, err = svc.Update(ctx, host, e.ID, Patch{EndsAt: &bad})
	assert.ErrorIs(t, err, availability.ErrInvalidInterval)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestDelete(t *testing.T) {
	svc := NewService(newMemRepo(), true)
	ctx := context.Background()

	e, err := svc.Create(ctx, host, "l1", weeklyInput())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, stranger, e.ID), ErrPermissionDenied)
	require.NoError(t, svc.Delete(ctx, host, e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, host, e.ID), ErrNotFound)
}

func TestUnsupportedSchema(t *testing.T) {
	svc := NewService(newMemRepo(), false)
	ctx := context.Background()

	_, err := svc.List(ctx, host, "l1")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = svc.Create(ctx, host, "l1", weeklyInput())
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = svc.Update(ctx, host, "a1", Patch{})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, svc.Delete(ctx, host, "a1"), ErrUnsupported)
	assert.Equal(t, http.StatusServiceUnavailable, apperror.StatusCode(err))
}
