package grid

import (
	"log/slog"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/dronefield/flightplanner/internal/geo"
)

const intersectEpsilon = 1e-9

type scanLine struct {
	x         float64
	low, high float64
}

// FreeAngle covers the polygon rect (normally the four corners of the
// rotated, buffered plot) with parallel lines spaced by spacing and running
// at angle degrees counter-clockwise from east. Of the four possible start
// corners the one nearest to start is used; with a nil start the path begins
// at the lowest end of the first scan line.
func FreeAngle(rect []geom.XY, angle, spacing float64, start *geom.XY, logger *slog.Logger) ([]geom.XY, error) {
	if spacing <= 0 || math.IsNaN(spacing) {
		return nil, ErrInvalidSpacing
	}
	if len(rect) < 3 {
		return nil, ErrNoLines
	}
	if logger == nil {
		logger = slog.Default()
	}

	center := centroid(rect)
	// turn the polygon so the flight lines become vertical
	toScan := angle - 90
	local := geo.Rotate(rect, center, toScan)

	minX, maxX := local[0].X, local[0].X
	for _, p := range local[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
	}
	xs, err := Positions(minX, maxX, spacing, 0)
	if err != nil {
		return nil, err
	}

	lines := make([]scanLine, 0, len(xs))
	for _, x := range xs {
		ys := intersect(local, x)
		if len(ys) < 2 {
			logger.Debug("skipping scan line", "x", x, "intersections", len(ys), "angle", angle)
			continue
		}
		low, high := ys[0], ys[0]
		for _, y := range ys[1:] {
			low = math.Min(low, y)
			high = math.Max(high, y)
		}
		lines = append(lines, scanLine{x: x, low: low, high: high})
	}
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	var from *geom.XY
	if start != nil {
		p := geo.RotatePoint(*start, center, toScan)
		from = &p
	}
	points := pickVariant(lines, from)
	return geo.Rotate(points, center, -toScan), nil
}

// intersect returns the distinct y values where the vertical line at x
// meets the closed polygon.
func intersect(poly []geom.XY, x float64) []float64 {
	var ys []float64
	add := func(y float64) {
		for _, v := range ys {
			if math.Abs(v-y) < intersectEpsilon {
				return
			}
		}
		ys = append(ys, y)
	}
	for i := range poly {
		p, q := poly[i], poly[(i+1)%len(poly)]
		dp, dq := p.X-x, q.X-x
		if math.Abs(dp) < intersectEpsilon {
			dp = 0
		}
		if math.Abs(dq) < intersectEpsilon {
			dq = 0
		}
		if dp*dq > 0 {
			continue
		}
		if p.X == q.X || (dp == 0 && dq == 0) {
			add(p.Y)
			add(q.Y)
			continue
		}
		t := (x - p.X) / (q.X - p.X)
		add(p.Y + t*(q.Y-p.Y))
	}
	return ys
}

// pickVariant builds the boustrophedon path over lines for every
// combination of sweep direction and first line direction and returns the
// one starting closest to from.
func pickVariant(lines []scanLine, from *geom.XY) []geom.XY {
	var best []geom.XY
	bestDist := math.Inf(1)
	for _, reverse := range []bool{false, true} {
		for _, down := range []bool{false, true} {
			points := boustrophedon(lines, reverse, down)
			if from == nil {
				return points
			}
			d := math.Hypot(points[0].X-from.X, points[0].Y-from.Y)
			if d < bestDist {
				best, bestDist = points, d
			}
		}
	}
	return best
}

func boustrophedon(lines []scanLine, reverse, down bool) []geom.XY {
	points := make([]geom.XY, 0, 2*len(lines))
	for i := range lines {
		l := lines[i]
		if reverse {
			l = lines[len(lines)-1-i]
		}
		a, b := geom.XY{X: l.x, Y: l.low}, geom.XY{X: l.x, Y: l.high}
		if down {
			a, b = b, a
		}
		points = append(points, a, b)
		down = !down
	}
	return points
}

func centroid(points []geom.XY) geom.XY {
	var c geom.XY
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(points))
	return geom.XY{X: c.X / n, Y: c.Y / n}
}
