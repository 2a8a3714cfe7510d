package terrain

import (
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronefield/flightplanner/internal/dsm"
	"github.com/dronefield/flightplanner/internal/geo"
)

type testWaypoint struct {
	pos        geo.LonLat
	alt        *float64
	calibrates bool
	radius     float64
}

func (w *testWaypoint) Position() geo.LonLat { return w.pos }

func (w *testWaypoint) Altitude() (float64, bool) {
	if w.alt == nil {
		return 0, false
	}
	return *w.alt, true
}

func (w *testWaypoint) SetAltitude(v float64) { w.alt = &v }

func (w *testWaypoint) CalibrationRadius() (float64, bool) { return w.radius, w.calibrates }

func flatGrid(v float64) *dsm.Grid {
	g := &dsm.Grid{
		OriginLon: 7.99, OriginLat: 47.01,
		PixelWidth: 0.0001, PixelHeight: 0.0001,
		Cols: 200, Rows: 200,
		HasNoData: true, NoData: -9999,
	}
	g.Values = make([]float64, g.Cols*g.Rows)
	for i := range g.Values {
		g.Values[i] = v
	}
	return g
}

func setAt(t *testing.T, g *dsm.Grid, p geo.LonLat, v float64) {
	t.Helper()
	col, row, ok := g.Cell(p)
	require.True(t, ok)
	g.Values[row*g.Cols+col] = v
}

func newResolver(t *testing.T, g *dsm.Grid, datum Datum) *Resolver {
	t.Helper()
	frame, err := geo.NewFrame(geo.LonLat{Lon: 8, Lat: 47})
	require.NoError(t, err)
	return NewResolver(g, frame, datum, nil)
}

func TestResolvePoint(t *testing.T) {
	g := flatGrid(500)
	setAt(t, g, geo.LonLat{Lon: 8.005, Lat: 47.005}, -9999)
	r := newResolver(t, g, DatumEllipsoid)

	alt, err := r.ResolvePoint(geo.LonLat{Lon: 8, Lat: 47}, 50)
	require.NoError(t, err)
	assert.Equal(t, 550.0, alt)

	_, err = r.ResolvePoint(geo.LonLat{Lon: 8.005, Lat: 47.005}, 50)
	assert.ErrorIs(t, err, ErrNoElevationData)

	_, err = r.ResolvePoint(geo.LonLat{Lon: 9, Lat: 47}, 50)
	assert.ErrorIs(t, err, ErrNoElevationData)
}

func TestResolveSegmentCorridor(t *testing.T) {
	g := flatGrid(500)
	// roughly 5 m and 50 m north of the segment midpoint
	setAt(t, g, geo.LonLat{Lon: 8.001, Lat: 47.00009}, 700)
	setAt(t, g, geo.LonLat{Lon: 8.001, Lat: 47.00045}, 900)
	r := newResolver(t, g, DatumEllipsoid)

	wp0 := &testWaypoint{pos: geo.LonLat{Lon: 8, Lat: 47}}
	wp1 := &testWaypoint{pos: geo.LonLat{Lon: 8.002, Lat: 47}}
	alt, err := r.ResolveSegment(wp0, wp1, 50, 20)
	require.NoError(t, err)
	assert.Equal(t, 750.0, alt)
}

func TestResolveSegmentCalibrationCircle(t *testing.T) {
	g := flatGrid(500)
	// about 28 m south of the start, outside the 20 m corridor
	setAt(t, g, geo.LonLat{Lon: 8.00005, Lat: 46.999775}, 800)
	r := newResolver(t, g, DatumEllipsoid)

	wp1 := &testWaypoint{pos: geo.LonLat{Lon: 8.002, Lat: 47}}
	plain := &testWaypoint{pos: geo.LonLat{Lon: 8, Lat: 47}}
	alt, err := r.ResolveSegment(plain, wp1, 50, 20)
	require.NoError(t, err)
	assert.Equal(t, 550.0, alt)

	calibrating := &testWaypoint{pos: geo.LonLat{Lon: 8, Lat: 47}, calibrates: true, radius: 30}
	alt, err = r.ResolveSegment(calibrating, wp1, 50, 20)
	require.NoError(t, err)
	assert.Equal(t, 850.0, alt)
}

func TestResolveSegmentNoData(t *testing.T) {
	r := newResolver(t, flatGrid(-9999), DatumEllipsoid)
	wp0 := &testWaypoint{pos: geo.LonLat{Lon: 8, Lat: 47}, calibrates: true}
	wp1 := &testWaypoint{pos: geo.LonLat{Lon: 8.002, Lat: 47}}

	_, err := r.ResolveSegment(wp0, wp1, 50, 20)
	assert.ErrorIs(t, err, ErrNoElevationData)
}

func TestApply(t *testing.T) {
	g := flatGrid(500)
	setAt(t, g, geo.LonLat{Lon: 8.0021, Lat: 47.001}, 700)
	r := newResolver(t, g, DatumEllipsoid)

	wps := []*testWaypoint{
		{pos: geo.LonLat{Lon: 8, Lat: 47}},
		{pos: geo.LonLat{Lon: 8.002, Lat: 47}},
		{pos: geo.LonLat{Lon: 8.002, Lat: 47.002}},
	}
	list := make([]Waypoint, len(wps))
	for i, wp := range wps {
		list[i] = wp
	}
	require.NoError(t, r.Apply(list, 50, 20))

	var got []float64
	for _, wp := range wps {
		alt, ok := wp.Altitude()
		require.True(t, ok)
		got = append(got, alt)
	}
	assert.Equal(t, []float64{550, 750, 750}, got)
}

func TestApplyFailsOnMissingPoint(t *testing.T) {
	g := flatGrid(500)
	r := newResolver(t, g, DatumEllipsoid)
	wps := []Waypoint{
		&testWaypoint{pos: geo.LonLat{Lon: 8, Lat: 47}},
		&testWaypoint{pos: geo.LonLat{Lon: 8.5, Lat: 47}},
	}
	err := r.Apply(wps, 50, 20)
	assert.ErrorIs(t, err, ErrNoElevationData)
}

func TestMSLDatum(t *testing.T) {
	g := flatGrid(500)
	ellipsoid, err := newResolver(t, g, DatumEllipsoid).Elevation(geo.LonLat{Lon: 8, Lat: 47})
	require.NoError(t, err)
	msl, err := newResolver(t, g, DatumMSL).Elevation(geo.LonLat{Lon: 8, Lat: 47})
	require.NoError(t, err)

	// the geoid lies roughly 48 m above the ellipsoid in central Europe
	assert.InDelta(t, 48, msl-ellipsoid, 10)
}

func TestCapsule(t *testing.T) {
	a, b := geom.XY{X: 0, Y: 0}, geom.XY{X: 100, Y: 0}
	ring := capsule(a, b, 20)
	assert.Equal(t, ring[0], ring[len(ring)-1])
	for _, p := range ring {
		var d float64
		switch {
		case p.X < 0:
			d = math.Hypot(p.X, p.Y)
		case p.X > 100:
			d = math.Hypot(p.X-100, p.Y)
		default:
			d = math.Abs(p.Y)
		}
		assert.InDelta(t, 20, d, 1e-9)
	}

	circle := capsule(a, a, 30)
	assert.Len(t, circle, circleSegments+1)
	for _, p := range circle {
		assert.InDelta(t, 30, math.Hypot(p.X, p.Y), 1e-9)
	}
}

func TestPolygon(t *testing.T) {
	open := []geo.LonLat{{Lon: 8, Lat: 47}, {Lon: 8.01, Lat: 47}, {Lon: 8.01, Lat: 47.01}, {Lon: 8, Lat: 47.01}}
	poly, err := polygon(open)
	require.NoError(t, err)

	ring := poly.ExteriorRing()
	require.Equal(t, 5, ring.Coordinates().Length())
	assert.Equal(t, ring.StartPoint(), ring.EndPoint())

	inside := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: 8.005, Y: 47.005}})
	outside := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: 8.02, Y: 47.005}})
	assert.True(t, geom.Intersects(poly.AsGeometry(), inside.AsGeometry()))
	assert.False(t, geom.Intersects(poly.AsGeometry(), outside.AsGeometry()))

	closed, err := polygon(append(open, open[0]))
	require.NoError(t, err)
	assert.Equal(t, 5, closed.ExteriorRing().Coordinates().Length())
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"rtf": ModeRealTime, "constant": ModeConstant, "DSM": ModeDSM} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("agl")
	assert.Error(t, err)
}
