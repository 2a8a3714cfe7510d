// Package grid builds the raw flight line geometry over a rectangular plot.
//
// All coordinates are local easting/northing in meters. Lines are returned as
// flat point lists where consecutive pairs form the start and end of one
// flight line and the order of the list is the order of flight.
package grid

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/dronefield/flightplanner/internal/geo"
)

var (
	// ErrInvalidSpacing is returned for a non-positive line spacing.
	ErrInvalidSpacing = errors.New("line spacing must be positive")
	// ErrNoLines is returned when a pattern produces no flight lines.
	ErrNoLines = errors.New("grid produced no flight lines")
)

// Pattern selects the flight line layout.
type Pattern string

const (
	// PatternLines flies parallel lines in the plot direction only.
	PatternLines Pattern = "lines"
	// PatternSimple adds a perpendicular pass to the lines.
	PatternSimple Pattern = "simple"
	// PatternDouble adds two diagonal passes to the simple grid.
	PatternDouble Pattern = "double"
)

// ParsePattern accepts the pattern names used on the command line.
func ParsePattern(s string) (Pattern, error) {
	switch Pattern(s) {
	case PatternLines, PatternSimple, PatternDouble:
		return Pattern(s), nil
	case "grid":
		return PatternSimple, nil
	}
	return "", fmt.Errorf("unknown grid pattern %q", s)
}

// Bounds is an axis aligned rectangle in the local frame.
type Bounds struct {
	Left   float64
	Right  float64
	Bottom float64
	Top    float64
}

// BoundsAround returns the rectangle of the given size centered on c.
func BoundsAround(c geom.XY, width, height float64) Bounds {
	return Bounds{
		Left:   c.X - width/2,
		Right:  c.X + width/2,
		Bottom: c.Y - height/2,
		Top:    c.Y + height/2,
	}
}

// Center returns the center of the rectangle.
func (b Bounds) Center() geom.XY {
	return geom.XY{X: (b.Left + b.Right) / 2, Y: (b.Bottom + b.Top) / 2}
}

// Expand grows the rectangle by d on every side.
func (b Bounds) Expand(d float64) Bounds {
	return Bounds{Left: b.Left - d, Right: b.Right + d, Bottom: b.Bottom - d, Top: b.Top + d}
}

// Corners returns the corners counter-clockwise starting at the bottom left.
func (b Bounds) Corners() []geom.XY {
	return []geom.XY{
		{X: b.Left, Y: b.Bottom},
		{X: b.Right, Y: b.Bottom},
		{X: b.Right, Y: b.Top},
		{X: b.Left, Y: b.Top},
	}
}

// Spec describes the plot and line parameters shared by all patterns.
type Spec struct {
	Bounds  Bounds
	Spacing float64
	Buffer  float64
	// PlotAngle is the plot rotation in degrees from east; 90 means the
	// rectangle is not rotated.
	PlotAngle float64
}

// Rotation returns the clockwise rotation applied to the unrotated layout.
func (s Spec) Rotation() float64 {
	return s.PlotAngle - 90
}

// Positions returns the scan positions covering [lo, hi] extended by buffer
// on both sides. The number of intervals is floor(span/spacing) and the
// remainder is split evenly so the first and last position are equally far
// from their edges.
func Positions(lo, hi, spacing, buffer float64) ([]float64, error) {
	if spacing <= 0 || math.IsNaN(spacing) {
		return nil, ErrInvalidSpacing
	}
	span := hi - lo + 2*buffer
	if span < 0 {
		return nil, ErrNoLines
	}
	n := int(math.Floor(span/spacing + 1e-9))
	offset := (span - float64(n)*spacing) / 2
	out := make([]float64, n+1)
	for k := range out {
		out[k] = lo - buffer + offset + float64(k)*spacing
	}
	return out, nil
}

// Lines returns east-west boustrophedon lines over b, flown from the top
// line down, each extended by buffer past the left and right edges.
func Lines(b Bounds, spacing, buffer float64) ([]geom.XY, error) {
	ys, err := Positions(b.Bottom, b.Top, spacing, buffer)
	if err != nil {
		return nil, err
	}
	xs := [2]float64{b.Left - buffer, b.Right + buffer}
	points := make([]geom.XY, 0, 2*len(ys))
	for i := len(ys) - 1; i >= 0; i-- {
		points = append(points, geom.XY{X: xs[0], Y: ys[i]}, geom.XY{X: xs[1], Y: ys[i]})
		xs[0], xs[1] = xs[1], xs[0]
	}
	return points, nil
}

// crossLines returns north-south lines over b, ordered so that the first
// line end is the one nearest to from.
func crossLines(b Bounds, spacing, buffer float64, from geom.XY) ([]geom.XY, error) {
	xs, err := Positions(b.Left, b.Right, spacing, buffer)
	if err != nil {
		return nil, err
	}
	if math.Abs(xs[0]-from.X) > math.Abs(xs[len(xs)-1]-from.X) {
		for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
			xs[i], xs[j] = xs[j], xs[i]
		}
	}
	ys := [2]float64{b.Bottom - buffer, b.Top + buffer}
	if math.Abs(ys[0]-from.Y) > math.Abs(ys[1]-from.Y) {
		ys[0], ys[1] = ys[1], ys[0]
	}
	points := make([]geom.XY, 0, 2*len(xs))
	for _, x := range xs {
		points = append(points, geom.XY{X: x, Y: ys[0]}, geom.XY{X: x, Y: ys[1]})
		ys[0], ys[1] = ys[1], ys[0]
	}
	return points, nil
}

// SimpleGrid flies Lines in the plot direction. With cross set it drops the
// last point of that pass and continues with a perpendicular pass starting
// from the corner nearest to where the first pass ended. The result is
// rotated about the plot center by the plot angle.
func SimpleGrid(s Spec, cross bool) ([]geom.XY, error) {
	points, err := Lines(s.Bounds, s.Spacing, s.Buffer)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrNoLines
	}

	if cross {
		points = points[:len(points)-1]
		var from geom.XY
		if len(points) > 0 {
			from = points[len(points)-1]
		}
		second, err := crossLines(s.Bounds, s.Spacing, s.Buffer, from)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 && samePoint(second[0], from) {
			second = second[1:]
		}
		points = append(points, second...)
	}

	if s.PlotAngle != 90 {
		points = geo.Rotate(points, s.Bounds.Center(), s.Rotation())
	}
	return points, nil
}

// DoubleGrid combines the simple grid with two diagonal passes at plus and
// minus 45 degrees to the plot lines. Each pass starts at the end of the
// buffered rectangle nearest to where the previous pass finished.
func DoubleGrid(s Spec, logger *slog.Logger) ([]geom.XY, error) {
	points, err := SimpleGrid(s, true)
	if err != nil {
		return nil, err
	}

	rect := geo.Rotate(s.Bounds.Expand(s.Buffer).Corners(), s.Bounds.Center(), s.Rotation())
	// direction of the primary lines measured counter-clockwise from east
	base := -s.Rotation()
	for _, offset := range []float64{45, 135} {
		start := points[len(points)-1]
		pass, err := FreeAngle(rect, base+offset, s.Spacing, &start, logger)
		if err != nil {
			return nil, err
		}
		points = append(points, pass...)
	}
	return points, nil
}

// Generate dispatches to the generator of the given pattern.
func Generate(p Pattern, s Spec, logger *slog.Logger) ([]geom.XY, error) {
	var (
		points []geom.XY
		err    error
	)
	switch p {
	case PatternLines:
		points, err = SimpleGrid(s, false)
	case PatternSimple:
		points, err = SimpleGrid(s, true)
	case PatternDouble:
		points, err = DoubleGrid(s, logger)
	default:
		return nil, fmt.Errorf("unknown grid pattern %q", p)
	}
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrNoLines
	}
	return points, nil
}

func samePoint(a, b geom.XY) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}
