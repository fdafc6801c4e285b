package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l, err := New(&buf, "info", "json")
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Str("room", "kongs").Msg("room created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "kongs", entry["room"])
	assert.Equal(t, "room created", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewConsole(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l, err := New(&buf, "debug", "console")
	require.NoError(t, err)

	l.Debug().Str("room", "kongs").Msg("tick")

	assert.Contains(t, buf.String(), "tick")
	assert.Contains(t, buf.String(), "kongs")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNewInvalidLevel(t *testing.T) {
	t.Parallel()
	_, err := New(&bytes.Buffer{}, "loud", "json")
	assert.Error(t, err)
}
