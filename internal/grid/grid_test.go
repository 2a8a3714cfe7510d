package grid

import (
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareSpec() Spec {
	return Spec{
		Bounds:    BoundsAround(geom.XY{}, 100, 100),
		Spacing:   20,
		Buffer:    10,
		PlotAngle: 90,
	}
}

func TestPositionsSymmetric(t *testing.T) {
	tests := []struct {
		name              string
		lo, hi            float64
		spacing, buffer   float64
		expectedPositions int
	}{
		{name: "exact fit", lo: -50, hi: 50, spacing: 20, buffer: 10, expectedPositions: 7},
		{name: "remainder", lo: 0, hi: 95, spacing: 20, buffer: 10, expectedPositions: 6},
		{name: "no buffer", lo: 3, hi: 40, spacing: 7, buffer: 0, expectedPositions: 6},
		{name: "narrow", lo: 0, hi: 5, spacing: 20, buffer: 0, expectedPositions: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Positions(tt.lo, tt.hi, tt.spacing, tt.buffer)
			require.NoError(t, err)
			require.Len(t, got, tt.expectedPositions)

			nearGap := got[0] - tt.lo
			farGap := tt.hi - got[len(got)-1]
			assert.InDelta(t, nearGap, farGap, 1e-9)
			for i := 1; i < len(got); i++ {
				assert.InDelta(t, tt.spacing, got[i]-got[i-1], 1e-9)
			}
		})
	}
}

func TestPositionsInvalidSpacing(t *testing.T) {
	_, err := Positions(0, 10, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidSpacing)
	_, err = Positions(0, 10, -2, 1)
	assert.ErrorIs(t, err, ErrInvalidSpacing)
}

func TestLinesScenario(t *testing.T) {
	s := squareSpec()
	points, err := Generate(PatternLines, s, nil)
	require.NoError(t, err)
	require.Len(t, points, 14, "7 lines with two endpoints each")

	for i := 0; i < len(points); i += 2 {
		a, b := points[i], points[i+1]
		assert.Equal(t, a.Y, b.Y, "line %d is horizontal", i/2)
		assert.InDelta(t, 60, math.Abs(a.X), 1e-9)
		assert.InDelta(t, 60, math.Abs(b.X), 1e-9)
		assert.NotEqual(t, a.X, b.X)
		if i > 0 {
			assert.Less(t, a.Y, points[i-1].Y, "lines are flown top to bottom")
			assert.Equal(t, points[i-1].X, a.X, "direction alternates")
		}
	}
	assert.Equal(t, geom.XY{X: -60, Y: 60}, points[0])
}

func TestSimpleGridCrossPass(t *testing.T) {
	s := squareSpec()
	points, err := SimpleGrid(s, true)
	require.NoError(t, err)

	// 13 points of the first pass, the cross pass starts on the last kept
	// point so its first point is merged.
	require.Len(t, points, 26)
	assert.Equal(t, geom.XY{X: -60, Y: -60}, points[12])
	assert.Equal(t, geom.XY{X: -60, Y: 60}, points[13])
	for i := 14; i+1 < len(points); i += 2 {
		assert.Equal(t, points[i].X, points[i+1].X, "cross lines are vertical")
		assert.InDelta(t, 120, math.Abs(points[i+1].Y-points[i].Y), 1e-9)
	}
	assert.Equal(t, geom.XY{X: 60, Y: 60}, points[len(points)-1])
}

func TestSimpleGridRotated(t *testing.T) {
	s := squareSpec()
	s.PlotAngle = 180
	straight, err := SimpleGrid(squareSpec(), false)
	require.NoError(t, err)
	rotated, err := SimpleGrid(s, false)
	require.NoError(t, err)
	require.Len(t, rotated, len(straight))

	// a quarter turn maps (x, y) onto (y, -x)
	for i := range straight {
		assert.InDelta(t, straight[i].Y, rotated[i].X, 1e-9)
		assert.InDelta(t, -straight[i].X, rotated[i].Y, 1e-9)
	}
}

func onSquare(p geom.XY, half float64) bool {
	return math.Abs(math.Max(math.Abs(p.X), math.Abs(p.Y))-half) < 1e-6
}

func TestFreeAngleCoversRectangle(t *testing.T) {
	rect := BoundsAround(geom.XY{}, 120, 120).Corners()
	start := geom.XY{X: 100, Y: 100}

	for _, angle := range []float64{0, 30, 45, 90, 135} {
		points, err := FreeAngle(rect, angle, 20, &start, nil)
		require.NoError(t, err)
		require.NotEmpty(t, points)
		require.Zero(t, len(points)%2)

		dir := geom.XY{X: math.Cos(angle * math.Pi / 180), Y: math.Sin(angle * math.Pi / 180)}
		for i := 0; i < len(points); i += 2 {
			a, b := points[i], points[i+1]
			assert.True(t, onSquare(a, 60), "angle %v point %v", angle, a)
			assert.True(t, onSquare(b, 60), "angle %v point %v", angle, b)
			d := geom.XY{X: b.X - a.X, Y: b.Y - a.Y}
			cross := d.X*dir.Y - d.Y*dir.X
			assert.InDelta(t, 0, cross, 1e-6, "line follows the requested angle")
		}

		first := math.Hypot(points[0].X-start.X, points[0].Y-start.Y)
		for _, c := range []geom.XY{points[1], points[len(points)-2], points[len(points)-1]} {
			assert.LessOrEqual(t, first, math.Hypot(c.X-start.X, c.Y-start.Y)+1e-9)
		}
	}
}

func TestFreeAngleSkipsDegenerateScanLines(t *testing.T) {
	diamond := []geom.XY{{X: 0, Y: -10}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: -10, Y: 0}}
	points, err := FreeAngle(diamond, 90, 10, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []geom.XY{{X: 0, Y: -10}, {X: 0, Y: 10}}, points)
}

func TestFreeAngleNoLines(t *testing.T) {
	flat := []geom.XY{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 0}}
	_, err := FreeAngle(flat, 90, 10, nil, nil)
	assert.ErrorIs(t, err, ErrNoLines)
}

func TestDoubleGrid(t *testing.T) {
	s := squareSpec()
	simple, err := SimpleGrid(s, true)
	require.NoError(t, err)
	points, err := Generate(PatternDouble, s, nil)
	require.NoError(t, err)

	require.Greater(t, len(points), len(simple))
	assert.Equal(t, simple, points[:len(simple)])
	for _, p := range points[len(simple):] {
		assert.True(t, onSquare(p, 60), "diagonal point %v", p)
	}
	// 9 diagonal lines per pass over the 120 m square
	assert.Len(t, points, len(simple)+2*18)
}

func TestParsePattern(t *testing.T) {
	for in, want := range map[string]Pattern{"lines": PatternLines, "simple": PatternSimple, "grid": PatternSimple, "double": PatternDouble} {
		got, err := ParsePattern(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePattern("spiral")
	assert.Error(t, err)
}
