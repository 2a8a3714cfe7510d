// Package terrain turns above-ground flight heights into absolute altitudes
// by sampling a surface model along the mission.
package terrain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/westphae/geomag/pkg/egm96"

	"github.com/dronefield/flightplanner/internal/geo"
	"github.com/dronefield/flightplanner/internal/util"
)

var ErrNoElevationData = errors.New("no elevation data")

// Mode is the altitude mode of a mission.
type Mode string

const (
	// ModeRealTime leaves terrain following to the aircraft sensors.
	ModeRealTime Mode = "rtf"
	// ModeConstant flies at a constant height above the start point.
	ModeConstant Mode = "constant"
	// ModeDSM resolves absolute altitudes from a surface model.
	ModeDSM Mode = "dsm"
)

// ParseMode accepts the altitude type names of the command line.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeRealTime, ModeConstant, ModeDSM:
		return m, nil
	}
	return "", fmt.Errorf("unknown altitude type %q", s)
}

// Datum is the vertical reference of the surface model values.
type Datum string

const (
	DatumEllipsoid Datum = "ellipsoid"
	DatumMSL       Datum = "msl"
)

const (
	// DefaultSafetyBuffer is the corridor half width around a segment.
	DefaultSafetyBuffer = 20.0
	// DefaultCalibrationRadius is used when a calibrating waypoint does not
	// report its own radius.
	DefaultCalibrationRadius = 30.0

	quarterSegments = 16
	circleSegments  = 64
)

// Surface is a raster of ground elevations in a geographic system.
type Surface interface {
	At(p geo.LonLat) (float64, bool)
	Window(minLon, minLat, maxLon, maxLat float64, fn func(center geo.LonLat, v float64))
}

// Waypoint is the view of a mission waypoint the resolver works on.
type Waypoint interface {
	geo.Located
	SetAltitude(v float64)
	CalibrationRadius() (float64, bool)
}

// Resolver samples one surface model for one mission.
type Resolver struct {
	surface Surface
	frame   *geo.Frame
	datum   Datum
	logger  *slog.Logger
}

// NewResolver uses frame for metric buffering around waypoints.
func NewResolver(surface Surface, frame *geo.Frame, datum Datum, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if datum == "" {
		datum = DatumEllipsoid
	}
	return &Resolver{surface: surface, frame: frame, datum: datum, logger: logger}
}

// toEllipsoid converts a surface value to the height above the WGS84
// ellipsoid.
func (r *Resolver) toEllipsoid(p geo.LonLat, v float64) float64 {
	if r.datum != DatumMSL {
		return v
	}
	msl, err := egm96.NewLocationGeodetic(p.Lat, p.Lon, 0).HeightAboveMSL()
	if err != nil {
		r.logger.Warn("geoid lookup failed, using surface value as is", "position", p.String(), "error", err)
		return v
	}
	// at zero ellipsoidal height the MSL height is minus the undulation
	return v - msl
}

// Elevation returns the ground elevation at p.
func (r *Resolver) Elevation(p geo.LonLat) (float64, error) {
	v, ok := r.surface.At(p)
	if !ok {
		return 0, fmt.Errorf("%w at %s", ErrNoElevationData, p)
	}
	if v <= 0 {
		r.logger.Warn("surface elevation is not positive, check the DSM", "position", p.String(), "elevation", v)
	}
	return r.toEllipsoid(p, v), nil
}

// ResolvePoint returns the altitude agl meters above the ground at p.
func (r *Resolver) ResolvePoint(p geo.LonLat, agl float64) (float64, error) {
	ground, err := r.Elevation(p)
	if err != nil {
		return 0, err
	}
	return ground + agl, nil
}

// ResolveSegment returns agl plus the highest ground within buffer meters
// of the segment from wp0 to wp1. A calibrating wp0 also clears the circle
// flown during calibration.
func (r *Resolver) ResolveSegment(wp0, wp1 Waypoint, agl, buffer float64) (float64, error) {
	a, b := wp0.Position(), wp1.Position()
	corridor := r.unproject(capsule(r.frame.Project(a), r.frame.Project(b), buffer))
	highest, ok := r.maxWithin(corridor, a, b)

	if radius, calibrates := wp0.CalibrationRadius(); calibrates {
		if radius <= 0 {
			radius = DefaultCalibrationRadius
		}
		circle := r.unproject(capsule(r.frame.Project(a), r.frame.Project(a), radius))
		if v, found := r.maxWithin(circle, a); found && (!ok || v > highest) {
			highest, ok = v, true
		}
	}
	if !ok {
		return 0, fmt.Errorf("%w between %s and %s", ErrNoElevationData, a, b)
	}
	if highest <= 0 {
		r.logger.Warn("highest surface elevation along segment is not positive, check the DSM",
			"from", a.String(), "to", b.String(), "elevation", highest)
	}
	return highest + agl, nil
}

// Apply resolves every waypoint, first from the ground beneath it, then from
// the corridors of the segments it belongs to.
func (r *Resolver) Apply(wps []Waypoint, agl, buffer float64) error {
	for i, wp := range wps {
		alt, err := r.ResolvePoint(wp.Position(), agl)
		if err != nil {
			return fmt.Errorf("waypoint %d: %w", i, err)
		}
		wp.SetAltitude(alt)
	}

	if len(wps) < 2 {
		return nil
	}
	segments := make([]float64, len(wps)-1)
	for i := range segments {
		alt, err := r.ResolveSegment(wps[i], wps[i+1], agl, buffer)
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		segments[i] = alt
	}
	for i, wp := range wps {
		alt := math.Inf(-1)
		if i > 0 {
			alt = segments[i-1]
		}
		if i < len(segments) {
			alt = math.Max(alt, segments[i])
		}
		wp.SetAltitude(util.Round(alt, 1))
	}
	r.logger.Debug("resolved terrain altitudes", "waypoints", len(wps), "frame", r.frame.String())
	return nil
}

// maxWithin returns the highest converted sample inside ring and at the
// extra positions.
func (r *Resolver) maxWithin(ring []geo.LonLat, extra ...geo.LonLat) (float64, bool) {
	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, p := range ring {
		minLon, maxLon = math.Min(minLon, p.Lon), math.Max(maxLon, p.Lon)
		minLat, maxLat = math.Min(minLat, p.Lat), math.Max(maxLat, p.Lat)
	}

	highest, found := math.Inf(-1), false
	take := func(p geo.LonLat, v float64) {
		if v = r.toEllipsoid(p, v); v > highest {
			highest = v
		}
		found = true
	}
	if poly, err := polygon(ring); err == nil {
		r.surface.Window(minLon, minLat, maxLon, maxLat, func(center geo.LonLat, v float64) {
			pt := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: center.Lon, Y: center.Lat}})
			if geom.Intersects(poly.AsGeometry(), pt.AsGeometry()) {
				take(center, v)
			}
		})
	} else {
		r.logger.Warn("cannot build sampling polygon, sampling outline only", "error", err)
	}
	// pixels larger than the corridor may have no center inside it
	for _, p := range append(extra, ring...) {
		if v, ok := r.surface.At(p); ok {
			take(p, v)
		}
	}
	return highest, found
}

func (r *Resolver) unproject(points []geom.XY) []geo.LonLat {
	return r.frame.UnprojectAll(points)
}

// capsule returns the closed outline of the segment a-b buffered by radius.
// Equal end points give a circle.
func capsule(a, b geom.XY, radius float64) []geom.XY {
	if a == b {
		out := make([]geom.XY, 0, circleSegments+1)
		for i := 0; i <= circleSegments; i++ {
			t := 2 * math.Pi * float64(i) / circleSegments
			out = append(out, geom.XY{X: a.X + radius*math.Cos(t), Y: a.Y + radius*math.Sin(t)})
		}
		return out
	}

	heading := math.Atan2(b.Y-a.Y, b.X-a.X)
	half := 2 * quarterSegments
	out := make([]geom.XY, 0, 2*(half+1)+1)
	arc := func(c geom.XY, from float64) {
		for i := 0; i <= half; i++ {
			t := from + math.Pi*float64(i)/float64(half)
			out = append(out, geom.XY{X: c.X + radius*math.Cos(t), Y: c.Y + radius*math.Sin(t)})
		}
	}
	arc(b, heading-math.Pi/2)
	arc(a, heading+math.Pi/2)
	return append(out, out[0])
}

// polygon closes ring if needed and builds the WGS84 sampling polygon.
func polygon(ring []geo.LonLat) (geom.Polygon, error) {
	coords := make([]float64, 0, 2*len(ring)+2)
	for _, p := range ring {
		coords = append(coords, p.Lon, p.Lat)
	}
	if first, last := ring[0], ring[len(ring)-1]; first != last {
		coords = append(coords, first.Lon, first.Lat)
	}
	outer := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{outer})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, fmt.Errorf("sampling polygon: %w", err)
	}
	return poly, nil
}
