package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Rotate turns points about center by angle degrees, clockwise. Plot and
// flight angles are given relative to east with 90 meaning "not rotated", so
// callers pass angle-90.
func Rotate(points []geom.XY, center geom.XY, angle float64) []geom.XY {
	sin, cos := sinCosDeg(360 - angle)
	out := make([]geom.XY, len(points))
	for i, p := range points {
		dx := p.X - center.X
		dy := p.Y - center.Y
		out[i] = geom.XY{
			X: center.X + dx*cos - dy*sin,
			Y: center.Y + dx*sin + dy*cos,
		}
	}
	return out
}

// RotatePoint is Rotate for a single point.
func RotatePoint(p, center geom.XY, angle float64) geom.XY {
	return Rotate([]geom.XY{p}, center, angle)[0]
}

// sinCosDeg returns exact values for multiples of 90 degrees so that
// rotations by 0 and 180 do not accumulate rounding noise.
func sinCosDeg(deg float64) (sin, cos float64) {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	switch d {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(d * math.Pi / 180)
}
