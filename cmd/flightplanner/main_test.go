package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronefield/flightplanner/internal/logging"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config-dir", t.TempDir(), "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "plot")

	out, err := execute(t, "generate",
		"--latlon", "47.0,8.0",
		"--destination", dest,
		"--altitude", "50",
		"--width", "100",
		"--height", "100",
		"--spacing", "20",
		"--buffer", "10",
		"--altitudetype", "constant",
		"--preview",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "== Settings ==")
	assert.Contains(t, out, "altitude=50\n")
	assert.Contains(t, out, "Mission written to "+dest+".kmz (distance ")
	assert.FileExists(t, dest+".kmz")
	assert.FileExists(t, dest+".kml")
}

func TestGenerate_Photo(t *testing.T) {
	dir := t.TempDir()
	targets := filepath.Join(dir, "trees.geojson")
	require.NoError(t, os.WriteFile(targets, []byte(`{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"name": "oak"}, "geometry": {"type": "Point", "coordinates": [8.0005, 47.0005]}},
  {"type": "Feature", "properties": {"name": "elm"}, "geometry": {"type": "Point", "coordinates": [8.001, 47.001]}}]}`), 0o644))
	dest := filepath.Join(dir, "trees")

	out, err := execute(t, "generate",
		"--poi", targets,
		"--destination", dest,
		"--altitude", "40",
		"--photos", "2",
		"--photo-radius", "10",
		"--altitudetype", "constant",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "poi.photos=2\n")
	assert.Contains(t, out, "poi.photoAltitude=10\n")
	assert.NotContains(t, out, "width=")
	assert.Contains(t, out, "Mission written to "+dest+".kmz")
	assert.FileExists(t, dest+".kmz")
}

func TestGenerate_Slot(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "generate",
		"--latlon", "47.0,8.0",
		"--destination", dir,
		"--spacing", "20",
		"--slot",
	)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	id := entries[0].Name()
	assert.Equal(t, strings.ToUpper(id), id)
	assert.FileExists(t, filepath.Join(dir, id, id+".kmz"))
	assert.Contains(t, out, filepath.Join(dir, id, id+".kmz"))
}

func TestGenerate_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FLIGHTPLANNER_DB_ENABLED", "true")
	t.Setenv("FLIGHTPLANNER_DB_PATH", filepath.Join(dir, "missions.db"))

	_, err := execute(t, "generate",
		"--latlon", "47.0,8.0",
		"--destination", filepath.Join(dir, "plot"),
		"--spacing", "20",
	)
	require.NoError(t, err)

	out, err := execute(t, "history")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "m3m")
	assert.Contains(t, lines[1], filepath.Join(dir, "plot.kmz"))
}

func TestGenerate_InvalidSetting(t *testing.T) {
	_, err := execute(t, "generate", "--destination", filepath.Join(t.TempDir(), "plot"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing plot coordinate")
}

func TestSensors(t *testing.T) {
	out, err := execute(t, "sensors")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "m3m")
	assert.Contains(t, out, "Zenmuse L2 LiDAR")
}

func TestActions(t *testing.T) {
	out, err := execute(t, "actions")
	require.NoError(t, err)
	assert.Contains(t, out, "gimbalRotate: gimbalHeadingYawBase=aircraft")
	assert.Contains(t, out, "gimbalPitchRotateAngle=-90")
	assert.Contains(t, out, "aircraftCalibration:")
	assert.Contains(t, out, "orientedShoot: payloadPositionIndex=0 payloadLensIndex=zoom")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 13)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseSink_ReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	a := &app{zlog: logging.NewZerolog(&buf, "info")}

	a.closeSink("catalogue", closerFunc(func() error { return errors.New("database is locked") }))
	a.closeSink("metrics", closerFunc(func() error { return nil }))

	out := buf.String()
	assert.Contains(t, out, "Closing sink")
	assert.Contains(t, out, "sink=catalogue")
	assert.Contains(t, out, "database is locked")
	assert.NotContains(t, out, "sink=metrics")
}
