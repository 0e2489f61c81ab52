package booking

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curbshare/parking-backend/internal/availability"
	"github.com/curbshare/parking-backend/internal/db"
)

func TestInsertQueryFollowsSchema(t *testing.T) {
	b := &Booking{ListingID: "l1", DriverID: "d1", StartTime: at(2, 10), EndTime: at(2, 12), Status: availability.StatusPending}

	full := &pgxRepository{caps: db.FullCapabilities()}
	query, args, err := full.insertQuery(b)
	require.NoError(t, err)
	assert.Contains(t, query, "status")
	assert.Len(t, args, 7)
	assert.Equal(t, availability.StatusPending, b.Status)

	legacy := &pgxRepository{caps: db.Capabilities{}}
	query, args, err = legacy.insertQuery(b)
	require.NoError(t, err)
	assert.NotContains(t, query, "status")
	assert.Len(t, args, 6)
	assert.Equal(t, availability.StatusConfirmed, b.Status)
}

func TestCancelQueryFollowsSchema(t *testing.T) {
	full := &pgxRepository{caps: db.FullCapabilities()}
	assert.True(t, strings.HasPrefix(full.cancelQuery(), "UPDATE public.bookings SET status = 'canceled'"))

	legacy := &pgxRepository{caps: db.Capabilities{}}
	assert.True(t, strings.HasPrefix(legacy.cancelQuery(), "DELETE FROM public.bookings"))
}

func TestSetStatusUnsupportedOnLegacySchema(t *testing.T) {
	for _, caps := range []db.Capabilities{{}, {BookingStatus: true}, {CheckoutSession: true}} {
		r := &pgxRepository{caps: caps}
		_, err := r.SetStatusByCheckoutSession(context.Background(), "cs_1", availability.StatusConfirmed)
		assert.ErrorIs(t, err, ErrStatusUnsupported)
	}

	legacy := &pgxRepository{caps: db.Capabilities{}}
	assert.NoError(t, legacy.AttachCheckoutSession(context.Background(), "b1", "cs_1"))
}
