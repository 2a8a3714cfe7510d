package database

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/mission"
)

func newCatalogue(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(config.DBConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "missions.db")}, zerolog.Nop())
	require.NoError(t, m.Connect())
	require.NoError(t, m.Setup())
	t.Cleanup(func() { m.Close() })
	return m
}

func summary(i int, sensor string) mission.Summary {
	return mission.Summary{
		ID:           fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
		Created:      time.Date(2026, 10, 1, 12, i, 0, 0, time.UTC),
		Path:         fmt.Sprintf("out/plot%d.kmz", i),
		Sensor:       sensor,
		Pattern:      "lines",
		AltitudeMode: "rtf",
		Lon:          8,
		Lat:          47,
		Altitude:     50,
		Spacing:      20,
		Waypoints:    16,
		Distance:     1045.2,
		Duration:     348.4,
	}
}

func TestConnect_SQLite(t *testing.T) {
	m := newCatalogue(t)
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestConnect_MissingPath(t *testing.T) {
	m := NewManager(config.DBConfig{Type: "sqlite"}, zerolog.Nop())
	assert.Error(t, m.Connect())
	assert.False(t, m.IsValid)
	assert.ErrorIs(t, m.Setup(), ErrNotConnected)
}

func TestConnect_PostgresFallsBackToSQLite(t *testing.T) {
	cfg := config.DBConfig{
		Type:     "postgres",
		Path:     filepath.Join(t.TempDir(), "fallback.db"),
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "flightplanner",
	}
	m := NewManager(cfg, zerolog.Nop())
	require.NoError(t, m.Connect())
	t.Cleanup(func() { m.Close() })
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestRecordAndList(t *testing.T) {
	m := newCatalogue(t)
	for i := 1; i <= 3; i++ {
		require.NoError(t, m.Record(summary(i, "m3m")))
	}
	require.NoError(t, m.Record(summary(4, "l2")))

	all, err := m.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, summary(4, "l2").ID, all[0].ID, "newest first")

	m3m, err := m.List("m3m", 2)
	require.NoError(t, err)
	require.Len(t, m3m, 2)
	assert.Equal(t, summary(3, "m3m").ID, m3m[0].ID)
	assert.Equal(t, summary(2, "m3m").ID, m3m[1].ID)
}

func TestRecord_Duplicate(t *testing.T) {
	m := newCatalogue(t)
	require.NoError(t, m.Record(summary(1, "m3m")))
	assert.Error(t, m.Record(summary(1, "m3m")))
}

func TestGet(t *testing.T) {
	m := newCatalogue(t)
	want := summary(7, "m3m")
	require.NoError(t, m.Record(want))

	rec, err := m.Get(want.ID)
	require.NoError(t, err)
	assert.Equal(t, "out/plot7.kmz", rec.Path)
	assert.Equal(t, 16, rec.Waypoints)

	got, err := rec.DecodeSummary()
	require.NoError(t, err)
	assert.Equal(t, want.Spacing, got.Spacing)
	assert.True(t, want.Created.Equal(got.Created))

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNotConnected(t *testing.T) {
	m := NewManager(config.DBConfig{}, zerolog.Nop())
	assert.ErrorIs(t, m.Record(summary(1, "m3m")), ErrNotConnected)
	_, err := m.List("", 0)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, m.Close())
}
