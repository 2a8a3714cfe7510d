package mission

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/geo"
	"github.com/dronefield/flightplanner/internal/grid"
)

// Plot is the rectangular target area in its local UTM frame.
type Plot struct {
	Center geo.LonLat
	Width  float64
	Height float64
	// Angle is the direction of the plot base edge in degrees; 90 is an
	// unrotated plot.
	Angle float64

	Frame  *geo.Frame
	Bounds grid.Bounds
	// Corners and BufferedCorners are counter-clockwise from the bottom
	// left corner of the unrotated rectangle.
	Corners         []geo.LonLat
	BufferedCorners []geo.LonLat
}

// NewPlot derives the plot from the settings. With a second point the
// base edge runs from Point to Point2: the width is their distance, the
// angle their bearing and the plot lies to the left of the edge.
func NewPlot(s config.Settings) (*Plot, error) {
	p := &Plot{
		Center: s.Point,
		Width:  s.Width,
		Height: s.Height,
		Angle:  s.PlotAngle,
	}
	if s.Point2 != nil {
		dist, azimuth := geo.Inverse(s.Point, *s.Point2)
		if dist == 0 {
			return nil, fmt.Errorf("%w: both plot points coincide", config.ErrInvalidSetting)
		}
		p.Width = dist
		p.Angle = azimuth
		mid := geo.Destination(s.Point, azimuth, dist/2)
		p.Center = geo.Destination(mid, azimuth-90, s.Height/2)
	}

	frame, err := geo.NewFrame(p.Center)
	if err != nil {
		return nil, err
	}
	p.Frame = frame

	center := frame.Project(p.Center)
	p.Bounds = grid.BoundsAround(center, p.Width, p.Height)
	p.Corners = frame.UnprojectAll(p.rotate(p.Bounds.Corners(), center))
	p.BufferedCorners = frame.UnprojectAll(p.rotate(p.Bounds.Expand(s.Buffer).Corners(), center))
	return p, nil
}

func (p *Plot) rotate(points []geom.XY, center geom.XY) []geom.XY {
	if p.Angle == 90 {
		return points
	}
	return geo.Rotate(points, center, p.Angle-90)
}

// GridSpec returns the line layout parameters of the plot.
func (p *Plot) GridSpec(spacing, buffer float64) grid.Spec {
	return grid.Spec{Bounds: p.Bounds, Spacing: spacing, Buffer: buffer, PlotAngle: p.Angle}
}

// NearestCorner returns the unbuffered corner closest to pos.
func (p *Plot) NearestCorner(pos geo.LonLat) geo.LonLat {
	best, bestDist := p.Corners[0], geo.Distance(pos, p.Corners[0])
	for _, c := range p.Corners[1:] {
		if d := geo.Distance(pos, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
