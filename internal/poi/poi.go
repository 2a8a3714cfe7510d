// Package poi reads points of interest from GeoJSON feature collections.
package poi

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"

	geojson "github.com/paulmach/go.geojson"
	"github.com/wroge/wgs84"

	"github.com/dronefield/flightplanner/internal/geo"
)

var (
	ErrNoPoints    = errors.New("no points of interest")
	ErrGeometry    = errors.New("unsupported POI geometry")
	ErrUnknownCRS  = errors.New("unsupported coordinate reference system")
	epsgCodeSuffix = regexp.MustCompile(`(?i)(?:EPSG:{1,2}|/EPSG/0/)(\d+)$`)
)

const wgs84Code = 4326

// POI is one point to photograph.
type POI struct {
	Name  string
	Point geo.LonLat
}

// Load reads the POIs of the feature collection at path.
func Load(path string) ([]POI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pois, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pois, nil
}

// Parse decodes a feature collection. Point and MultiPoint features are
// accepted; coordinates in a named EPSG system are transformed to WGS84.
// Features without a name property are named by their position in the
// collection.
func Parse(data []byte) ([]POI, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	code, err := crsCode(fc.CRS)
	if err != nil {
		return nil, err
	}
	toWGS84 := func(x, y float64) (float64, float64) { return x, y }
	if code != wgs84Code {
		transform := wgs84.EPSG().Transform(code, wgs84Code)
		toWGS84 = func(x, y float64) (float64, float64) {
			lon, lat, _ := transform(x, y, 0)
			return lon, lat
		}
	}

	var out []POI
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("%w: feature %d has no geometry", ErrGeometry, i)
		}
		var coords [][]float64
		switch {
		case f.Geometry.IsPoint():
			coords = [][]float64{f.Geometry.Point}
		case f.Geometry.IsMultiPoint():
			coords = f.Geometry.MultiPoint
		default:
			return nil, fmt.Errorf("%w: feature %d is a %s", ErrGeometry, i, f.Geometry.Type)
		}

		name, err := f.PropertyString("name")
		if err != nil || name == "" {
			name = strconv.Itoa(i + 1)
		}
		for j, c := range coords {
			if len(c) < 2 {
				return nil, fmt.Errorf("%w: feature %d has a short coordinate", ErrGeometry, i)
			}
			lon, lat := toWGS84(c[0], c[1])
			p := geo.LonLat{Lon: lon, Lat: lat}
			if math.IsNaN(lon) || math.IsNaN(lat) || !p.Valid() {
				return nil, fmt.Errorf("%w: feature %d at %v,%v in EPSG:%d", geo.ErrInvalidCoordinates, i, c[0], c[1], code)
			}
			n := name
			if len(coords) > 1 {
				n = fmt.Sprintf("%s.%d", name, j+1)
			}
			out = append(out, POI{Name: n, Point: p})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoPoints
	}
	return out, nil
}

// crsCode returns the EPSG code of a legacy named crs member, or 4326 when
// the member is absent.
func crsCode(crs map[string]interface{}) (int, error) {
	if len(crs) == 0 {
		return wgs84Code, nil
	}
	props, _ := crs["properties"].(map[string]interface{})
	name, _ := props["name"].(string)
	switch name {
	case "urn:ogc:def:crs:OGC:1.3:CRS84", "urn:ogc:def:crs:OGC::CRS84", "CRS84":
		return wgs84Code, nil
	}
	m := epsgCodeSuffix.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCRS, name)
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCRS, name)
	}
	return code, nil
}
