package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// All mission geometry is computed in a local UTM frame (see Frame) and only
// converted back to WGS84 longitude/latitude for raster sampling and output.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// LonLat is a WGS84 position in decimal degrees.
type LonLat struct {
	Lon float64
	Lat float64
}

func (p LonLat) String() string {
	return fmt.Sprintf("%.8f,%.8f", p.Lat, p.Lon)
}

// Valid reports whether the position lies within the WGS84 coordinate range.
func (p LonLat) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// ParseLatLon parses a string in the format "lat,lon" into a LonLat.
func ParseLatLon(coords string) (LonLat, error) {
	// split the string into its components
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return LonLat{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return LonLat{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return LonLat{}, ErrInvalidCoordinates
	}
	p := LonLat{Lon: lon, Lat: lat}
	if !p.Valid() {
		return LonLat{}, ErrInvalidCoordinates
	}
	return p, nil
}
