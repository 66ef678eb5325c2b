package logger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shelfhub/shelfclient/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, buff.Len(), 0)
	templogger.Logger.Info().Msg("Test")
	require.Contains(t, buff.String(), "Test")
}

type testMethod struct {
	fn    func(msg string, args ...any)
	level string
}

func TestSugarFields(t *testing.T) {
	buffer := bytes.NewBuffer([]byte{})
	data, err := logger.New().FromBuffer(buffer).Level("debug").Make()
	require.NoError(t, err)
	log := data.Sugar()

	methods := []testMethod{
		{fn: log.Error, level: "error"},
		{fn: log.Warn, level: "warn"},
		{fn: log.Info, level: "info"},
		{fn: log.Debug, level: "debug"},
	}

	for _, m := range methods {
		t.Run(fmt.Sprintf("testing %s", m.level), func(t *testing.T) {
			buffer.Reset()
			m.fn("shelf loaded", "shelf", "s1", "count", 3)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buffer.Bytes(), &line))
			require.Equal(t, m.level, line["level"])
			require.Equal(t, "shelf loaded", line["message"])
			require.Equal(t, "s1", line["shelf"])
			require.EqualValues(t, 3, line["count"])
		})
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	buffer := bytes.NewBuffer([]byte{})
	data, err := logger.New().FromBuffer(buffer).Make()
	require.NoError(t, err)

	data.Sugar().Debug("hidden")
	require.Zero(t, buffer.Len())
}
