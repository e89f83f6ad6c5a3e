package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("info", &buf))
	t.Cleanup(func() { Configure(DefaultLevel, nil) })

	Event(New("loader"), "refresh_complete").WithField("rows", 3).Info("refreshed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "loader", line["component"])
	assert.Equal(t, "refresh_complete", line["event_type"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "refreshed", line["message"])
	assert.Equal(t, float64(3), line["rows"])
	assert.NotEmpty(t, line["timestamp"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("", &buf))
	t.Cleanup(func() { Configure(DefaultLevel, nil) })

	New("loader").Info("hidden")
	assert.Empty(t, buf.String())

	New("loader").Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigure_InvalidLevel(t *testing.T) {
	err := Configure("chatty", nil)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestOrDiscard(t *testing.T) {
	entry := New("x")
	assert.Same(t, entry, OrDiscard(entry))
	assert.NotPanics(t, func() { OrDiscard(nil).Error("dropped") })
}
