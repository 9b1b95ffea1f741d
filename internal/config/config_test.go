package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.BookingTTL)
	assert.Equal(t, time.Hour, cfg.ExpirySweepInterval)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "15m")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("MIDTRANS_PRODUCTION", "true")
	t.Setenv("TIMEZONE", "Africa/Addis_Ababa")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.ExpirySweepInterval)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.True(t, cfg.MidtransProduction)
	assert.Equal(t, "Africa/Addis_Ababa", cfg.Location.String())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad duration", "BOOKING_TTL", "thirty days"},
		{"bad int", "RATE_LIMIT_BURST", "many"},
		{"bad bool", "MIDTRANS_PRODUCTION", "maybe"},
		{"bad timezone", "TIMEZONE", "Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
