package geo

import (
	"errors"
	"math"

	"github.com/tidwall/geodesic"
)

// ErrAltitudeUnresolved is returned when a 3D distance is requested for a
// point without a resolved altitude.
var ErrAltitudeUnresolved = errors.New("altitude not resolved")

// Located is anything with a position and an optional altitude.
type Located interface {
	Position() LonLat
	Altitude() (float64, bool)
}

// Inverse solves the geodesic inverse problem on the WGS84 ellipsoid and
// returns the distance in meters and the initial azimuth in degrees.
func Inverse(a, b LonLat) (dist, azimuth float64) {
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &dist, &azimuth, nil)
	return dist, azimuth
}

// Distance returns the horizontal geodesic distance in meters.
func Distance(a, b LonLat) float64 {
	d, _ := Inverse(a, b)
	return d
}

// HeadingAngle returns the initial bearing from a to b in degrees,
// normalized to (-180, 180]. Coincident points yield 0.
func HeadingAngle(a, b LonLat) float64 {
	d, azi := Inverse(a, b)
	if d == 0 {
		return 0
	}
	return NormalizeAngle(azi)
}

// NormalizeAngle maps an angle in degrees to (-180, 180].
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// Destination returns the point reached from a after dist meters on the given
// initial bearing.
func Destination(a LonLat, bearing, dist float64) LonLat {
	var lat, lon float64
	geodesic.WGS84.Direct(a.Lat, a.Lon, bearing, dist, &lat, &lon, nil)
	return LonLat{Lon: lon, Lat: lat}
}

// SegmentDistance3D combines the geodesic distance between two points with
// their altitude difference.
func SegmentDistance3D(p0, p1 Located) (float64, error) {
	alt0, ok0 := p0.Altitude()
	alt1, ok1 := p1.Altitude()
	if !ok0 || !ok1 {
		return 0, ErrAltitudeUnresolved
	}
	horizontal := Distance(p0.Position(), p1.Position())
	vertical := alt1 - alt0
	return math.Hypot(horizontal, vertical), nil
}
