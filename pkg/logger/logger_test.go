package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogger_VerboseEnablesDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, false).Debug("hidden")
	require.Empty(t, buf.String())

	NewWithWriter(&buf, true).Debug("shown", "key", "value")
	require.Contains(t, buf.String(), "shown")
	require.Contains(t, buf.String(), "value")
}

func TestLogger_DropsEmptyStringAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, false).Info("msg", "empty", "", "set", "x")
	require.NotContains(t, buf.String(), "empty=")
	require.Contains(t, buf.String(), "set=")
}

func TestLogger_FormatRFC3339Millis(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 15, 7, 30, 5, 123456789, time.UTC)
	require.Equal(t, "2025-01-15T07:30:05.123Z", formatRFC3339Millis(ts))
}
