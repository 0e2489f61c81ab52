package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curbshare/parking-backend/internal/availability"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/parking")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, availability.DefaultSearchLimit, cfg.SearchResultLimit)
	assert.Equal(t, availability.GateContain, cfg.OpenGate)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, 1000, cfg.PlatformFeeBps)
	assert.Equal(t, 5*time.Minute, cfg.StripeWebhookTolerance)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "secret")
	_, err := Load()
	assert.ErrorContains(t, err, "DB_DSN")

	t.Setenv("DB_DSN", "postgres://localhost/parking")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/parking")
	t.Setenv("JWT_SECRET", "secret")

	t.Setenv("OPEN_GATE_MODE", "sometimes")
	_, err := Load()
	assert.ErrorContains(t, err, "OPEN_GATE_MODE")

	t.Setenv("OPEN_GATE_MODE", "intersect")
	t.Setenv("SEARCH_CANDIDATE_LIMIT", "50")
	_, err = Load()
	assert.ErrorContains(t, err, "SEARCH_CANDIDATE_LIMIT")

	t.Setenv("SEARCH_CANDIDATE_LIMIT", "")
	t.Setenv("BCRYPT_COST", "high")
	_, err = Load()
	assert.ErrorContains(t, err, "BCRYPT_COST")

	t.Setenv("BCRYPT_COST", "")
	t.Setenv("PLATFORM_FEE_BPS", "12000")
	_, err = Load()
	assert.ErrorContains(t, err, "PLATFORM_FEE_BPS")
}
