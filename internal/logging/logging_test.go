package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := NewWithOutput(&buf, "debug", "JSON")
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("provider", "CoinGecko").Warn("provider failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warning", entry["level"])
	require.Equal(t, "CoinGecko", entry["provider"])
	require.Equal(t, "provider failed", entry["msg"])
}

func TestNewWithOutput_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewWithOutput(&bytes.Buffer{}, "loud", "text")
	require.ErrorContains(t, err, "log level")

	_, err = NewWithOutput(&bytes.Buffer{}, "info", "xml")
	require.ErrorContains(t, err, "log format")
}
