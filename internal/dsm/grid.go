// Package dsm provides read access to digital surface model rasters in a
// geographic coordinate system.
package dsm

import (
	"errors"
	"math"

	"github.com/dronefield/flightplanner/internal/geo"
)

var (
	ErrOpen         = errors.New("cannot open DSM")
	ErrProjectedCRS = errors.New("projected DSM coordinate systems are not implemented")
	ErrUnsupported  = errors.New("unsupported DSM encoding")
)

// Grid is a north-up raster. OriginLon/OriginLat is the outer corner of the
// top-left pixel; rows run south and columns east.
type Grid struct {
	OriginLon   float64
	OriginLat   float64
	PixelWidth  float64
	PixelHeight float64
	Cols        int
	Rows        int
	Values      []float64

	HasNoData bool
	NoData    float64
}

// Valid reports whether v is an elevation sample.
func (g *Grid) Valid(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return !(g.HasNoData && v == g.NoData)
}

// Cell returns the column and row containing p.
func (g *Grid) Cell(p geo.LonLat) (col, row int, ok bool) {
	col = int(math.Floor((p.Lon - g.OriginLon) / g.PixelWidth))
	row = int(math.Floor((g.OriginLat - p.Lat) / g.PixelHeight))
	if col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
		return 0, 0, false
	}
	return col, row, true
}

// CellCenter returns the position of the center of a pixel.
func (g *Grid) CellCenter(col, row int) geo.LonLat {
	return geo.LonLat{
		Lon: g.OriginLon + (float64(col)+0.5)*g.PixelWidth,
		Lat: g.OriginLat - (float64(row)+0.5)*g.PixelHeight,
	}
}

// At returns the sample of the pixel containing p.
func (g *Grid) At(p geo.LonLat) (float64, bool) {
	col, row, ok := g.Cell(p)
	if !ok {
		return 0, false
	}
	v := g.Values[row*g.Cols+col]
	return v, g.Valid(v)
}

// Window calls fn for every valid pixel whose center lies inside the
// geographic box.
func (g *Grid) Window(minLon, minLat, maxLon, maxLat float64, fn func(center geo.LonLat, v float64)) {
	c0 := int(math.Floor((minLon-g.OriginLon)/g.PixelWidth - 0.5))
	c1 := int(math.Ceil((maxLon-g.OriginLon)/g.PixelWidth - 0.5))
	r0 := int(math.Floor((g.OriginLat-maxLat)/g.PixelHeight - 0.5))
	r1 := int(math.Ceil((g.OriginLat-minLat)/g.PixelHeight - 0.5))
	c0, r0 = max(c0, 0), max(r0, 0)
	c1, r1 = min(c1, g.Cols-1), min(r1, g.Rows-1)

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			center := g.CellCenter(col, row)
			if center.Lon < minLon || center.Lon > maxLon || center.Lat < minLat || center.Lat > maxLat {
				continue
			}
			v := g.Values[row*g.Cols+col]
			if g.Valid(v) {
				fn(center, v)
			}
		}
	}
}
