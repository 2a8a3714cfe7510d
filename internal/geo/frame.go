package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrUnsupportedZone is returned when no UTM transform exists for a position.
var ErrUnsupportedZone = errors.New("no UTM zone for position")

// Frame is the local projected coordinate system of a mission. It is chosen
// once from the plot center and used for all subsequent geometry.
type Frame struct {
	Zone  int
	North bool
	EPSG  int

	toLocal func(a, b, c float64) (float64, float64, float64)
	toWGS84 func(a, b, c float64) (float64, float64, float64)
}

// UTMZone returns the UTM zone and hemisphere of a position, with the
// widened zones of south-west Norway and Svalbard.
func UTMZone(p LonLat) (zone int, north bool) {
	zone = int(math.Floor((p.Lon+180)/6)) + 1
	switch {
	case p.Lat >= 56 && p.Lat < 64 && p.Lon >= 3 && p.Lon < 12:
		zone = 32
	case p.Lat >= 72 && p.Lat <= 84 && p.Lon >= 0 && p.Lon < 42:
		switch {
		case p.Lon < 9:
			zone = 31
		case p.Lon < 21:
			zone = 33
		case p.Lon < 33:
			zone = 35
		default:
			zone = 37
		}
	}
	return min(max(zone, 1), 60), p.Lat >= 0
}

// NewFrame picks the UTM zone containing origin and prepares the transforms.
func NewFrame(origin LonLat) (*Frame, error) {
	if !origin.Valid() {
		return nil, ErrInvalidCoordinates
	}
	zone, north := UTMZone(origin)
	code := 32700 + zone
	if north {
		code = 32600 + zone
	}

	epsg := wgs84.EPSG()
	f := &Frame{
		Zone:    zone,
		North:   north,
		EPSG:    code,
		toLocal: epsg.Transform(4326, code),
		toWGS84: epsg.Transform(code, 4326),
	}

	xy := f.Project(origin)
	if math.IsNaN(xy.X) || math.IsNaN(xy.Y) {
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedZone, code)
	}
	return f, nil
}

// String returns the EPSG code of the frame, e.g. "EPSG:32632".
func (f *Frame) String() string {
	return fmt.Sprintf("EPSG:%d", f.EPSG)
}

// Project converts a WGS84 position to easting/northing in meters.
func (f *Frame) Project(p LonLat) geom.XY {
	x, y, _ := f.toLocal(p.Lon, p.Lat, 0)
	return geom.XY{X: x, Y: y}
}

// ProjectAll converts a list of positions.
func (f *Frame) ProjectAll(points []LonLat) []geom.XY {
	out := make([]geom.XY, len(points))
	for i, p := range points {
		out[i] = f.Project(p)
	}
	return out
}

// Unproject converts easting/northing back to a WGS84 position.
func (f *Frame) Unproject(xy geom.XY) LonLat {
	lon, lat, _ := f.toWGS84(xy.X, xy.Y, 0)
	return LonLat{Lon: lon, Lat: lat}
}

// UnprojectAll converts a list of local points.
func (f *Frame) UnprojectAll(points []geom.XY) []LonLat {
	out := make([]LonLat, len(points))
	for i, xy := range points {
		out[i] = f.Unproject(xy)
	}
	return out
}
