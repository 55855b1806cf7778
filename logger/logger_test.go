package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf).WithField("component", "worker").WithError(errors.New("boom"))

	log.Warn().Str("link", "https://example.com/jobs/1").Msg("Delivery failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "worker", entry["component"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "https://example.com/jobs/1", entry["link"])
	assert.Equal(t, "Delivery failed", entry["message"])
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, "warn", getLogLevel().String())

	t.Setenv("LOG_LEVEL", "not-a-level")
	assert.Equal(t, "info", getLogLevel().String())

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("JOBFEED_ENVIRONMENT", "production")
	assert.Equal(t, "info", getLogLevel().String())

	t.Setenv("JOBFEED_ENVIRONMENT", "development")
	assert.Equal(t, "debug", getLogLevel().String())
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error().Msg("ignored")
	})
}
