package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(console *bytes.Buffer) *SlogManager {
	m := NewSlogManager()
	m.console = console
	return m
}

// closeBuffer records Close calls on a buffer.
type closeBuffer struct {
	bytes.Buffer
	closed int
}

func (b *closeBuffer) Close() error {
	b.closed++
	return nil
}

func TestSetup_ConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	m := newTestManager(&console)
	m.Setup(&file, "info", nil)
	m.Logger().Info("hello file")

	assert.Contains(t, console.String(), "hello file")
	assert.Contains(t, file.String(), "hello file")
}

func TestSetup_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	m := newTestManager(&console)
	m.Setup(nil, "info", nil)
	m.Logger().Info("hello console")

	assert.Contains(t, console.String(), "hello console")
	assert.Equal(t, &console, m.Output())
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := newTestManager(&buf)
	m.Setup(nil, "debug", nil)

	m.Logger().Debug("debug msg")
	m.Logger().Info("info msg")

	output := buf.String()
	assert.Contains(t, output, "debug msg")
	assert.Contains(t, output, "info msg")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := newTestManager(&buf)
	m.Setup(nil, "info", nil)

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_UTCTimestamps(t *testing.T) {
	var buf bytes.Buffer
	m := newTestManager(&buf)
	m.Setup(nil, "info", nil)
	m.Logger().Info("stamped")

	line := strings.TrimSpace(buf.String())
	require.True(t, strings.HasPrefix(line, "time="))
	stamp := strings.Fields(line)[0][len("time="):]
	_, err := time.Parse(time.RFC3339, stamp)
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(stamp, "Z"))
}

func TestSetup_RemoteReceivesJSON(t *testing.T) {
	var console bytes.Buffer
	remote := &closeBuffer{}
	m := newTestManager(&console)
	m.Setup(nil, "info", remote)
	m.Logger().Warn("remote record", "waypoints", 16)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(remote.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "remote record", entry["msg"])
	assert.Equal(t, float64(16), entry["waypoints"])

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 1, remote.closed)
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var console, buf1, buf2 bytes.Buffer
	m := newTestManager(&console)

	m.Setup(&buf1, "info", nil)
	m.Logger().Info("first")

	m.Setup(&buf2, "info", nil)
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second", "old file should not receive new logs")
	assert.Contains(t, buf2.String(), "second")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestFanout_DeliversToEverySink(t *testing.T) {
	var console, remote bytes.Buffer
	f := newFanout(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		nil,
		slog.NewJSONHandler(&remote, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	require.Len(t, f, 2)

	logger := slog.New(f)
	logger.Info("grid generated", "lines", 7)
	logger.Warn("trigger fallback", "interval", 1.0)

	assert.Contains(t, console.String(), "grid generated")
	assert.Contains(t, console.String(), "trigger fallback")
	assert.NotContains(t, remote.String(), "grid generated")
	assert.Contains(t, remote.String(), `"msg":"trigger fallback"`)
}

func TestFanout_Enabled(t *testing.T) {
	info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	assert.False(t, newFanout(info).Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, newFanout(info, debug).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, newFanout().Enabled(context.Background(), slog.LevelError))
}

func TestFanout_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(slog.NewTextHandler(&buf, nil))

	slog.New(f.WithAttrs([]slog.Attr{slog.String("sensor", "l2")})).Info("profile")
	assert.Contains(t, buf.String(), "sensor=l2")

	slog.New(f.WithGroup("dsm")).Info("opened", "cols", 3)
	assert.Contains(t, buf.String(), "dsm.cols=3")

	assert.Equal(t, slog.Handler(f), f.WithGroup(""))
}

// failingSink rejects every record.
type failingSink struct {
	slog.Handler
}

func (failingSink) Enabled(context.Context, slog.Level) bool { return true }

func (failingSink) Handle(context.Context, slog.Record) error {
	return errors.New("graylog unreachable")
}

func TestFanout_FailingSink(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(failingSink{}, slog.NewTextHandler(&buf, nil))

	r := slog.NewRecord(time.Now(), slog.LevelError, "mission written", 0)
	err := f.Handle(context.Background(), r)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "graylog unreachable")
	assert.Contains(t, buf.String(), "mission written")
}

func TestForRun(t *testing.T) {
	var console bytes.Buffer
	m := newTestManager(&console)
	m.Setup(nil, "info", nil)

	m.ForRun("3F2B8C1E").Info("grid generated")
	assert.Contains(t, console.String(), "run=3F2B8C1E")
	assert.Contains(t, console.String(), "elapsed=")
}

func TestRunHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewRunHandler(slog.NewJSONHandler(&buf, nil), "3F2B8C1E")
	h.now = func() time.Time { return h.start.Add(1500 * time.Millisecond) }

	logger := slog.New(h).With("sensor", "m3m")
	logger.Info("grid generated", "lines", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "3F2B8C1E", entry["run"])
	assert.Equal(t, "m3m", entry["sensor"])
	assert.Equal(t, float64(7), entry["lines"])
	assert.Equal(t, float64(1500*time.Millisecond), entry["elapsed"])
}

func TestRunHandler_Enabled(t *testing.T) {
	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := NewRunHandler(inner, "run")
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	assert.Equal(t, h, h.WithGroup(""))
}

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, "warn")
	log.Info().Msg("filtered")
	log.Warn().Str("path", "missions.db").Msg("catalogue unavailable")

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "catalogue unavailable")
	assert.Contains(t, out, "path=missions.db")
}

func TestNewZerolog_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, "verbose")
	log.Debug().Msg("debug")
	log.Info().Msg("info")

	assert.NotContains(t, buf.String(), "debug")
	assert.Contains(t, buf.String(), "info")
}
