package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	cases := map[Level]zerolog.Level{
		TRACE:     zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		" Warn ":  zerolog.WarnLevel,
		ERROR:     zerolog.ErrorLevel,
		PANIC:     zerolog.PanicLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}

	for in, expected := range cases {
		require.Equal(t, expected, in.zero(), string(in))
	}
}

func TestZeroLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newZeroLogger(&buf, WARN)

	logger.Info().Msg("hidden")
	require.Zero(t, buf.Len())

	logger.Error().Stack().Err(errors.New("boom")).Msg("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "visible", line["message"])
	require.Equal(t, "boom", line["error"])
	require.Equal(t, "sitetrack", line["service"])
	require.Contains(t, line, "stack")
	require.Contains(t, line, "caller")
}
