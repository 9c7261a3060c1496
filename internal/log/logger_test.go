package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "debug", Output: &buf, Service: "test"}))
	t.Cleanup(func() { _ = Configure(Config{}) })

	l := WithComponent("bus")
	l.Debug().Str(FieldKind, "trace.event").Msg("published")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "bus", entry[FieldComponent])
	assert.Equal(t, "trace.event", entry[FieldKind])
	assert.Equal(t, "published", entry["message"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Level: "warn", Output: &buf}))
	t.Cleanup(func() { _ = Configure(Config{}) })

	l := Base()
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigure_Console(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Format: "console", Output: &buf}))
	t.Cleanup(func() { _ = Configure(Config{}) })

	l := Base()
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestConfigure_Invalid(t *testing.T) {
	assert.Error(t, Configure(Config{Level: "loud"}))
	assert.Error(t, Configure(Config{Format: "xml"}))
}

func TestDerive(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Config{Output: &buf}))
	t.Cleanup(func() { _ = Configure(Config{}) })

	l := Derive(func(c *zerolog.Context) {
		*c = c.Str(FieldWindowID, "status-1")
	})
	l.Info().Msg("closed")
	assert.Contains(t, buf.String(), `"window_id":"status-1"`)
}
