package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30, cfg.HistoryPageSize)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, ":8090", cfg.ObsHTTPAddr)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("HTTP_ADDR", "9100")
	t.Setenv("API_BASE_URL", "http://example.test/")
	t.Setenv("HISTORY_PAGE_SIZE", "9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, ":9100", cfg.ObsHTTPAddr)
	assert.Equal(t, "http://example.test", cfg.APIBaseURL)
	assert.Equal(t, 30, cfg.HistoryPageSize)
}

func TestLoad_RejectsBadInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "0s")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("POLL_INTERVAL", "soon")
	_, err = Load()
	assert.Error(t, err)
}
