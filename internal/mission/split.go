package mission

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/dronefield/flightplanner/internal/geo"
)

// DefaultMaxSegmentLength is the longest segment, in meters, left unsplit
// for terrain following.
const DefaultMaxSegmentLength = 20.0

// Split inserts floor(length/maxLength) evenly spaced waypoints into every
// segment longer than maxLength. Coordinates are interpolated in frame,
// altitude and velocity linearly. Inserted waypoints pass through without
// stopping and carry no actions. Segments not longer than maxLength are
// left untouched.
func Split(wps []*Waypoint, frame *geo.Frame, maxLength float64) []*Waypoint {
	if len(wps) < 2 || maxLength <= 0 {
		return wps
	}

	out := make([]*Waypoint, 0, len(wps))
	for i, wp := range wps {
		out = append(out, wp)
		if i == len(wps)-1 {
			break
		}
		next := wps[i+1]
		a, b := frame.Project(wp.Point), frame.Project(next.Point)
		length := math.Hypot(b.X-a.X, b.Y-a.Y)
		if length <= maxLength {
			continue
		}
		n := int(math.Floor(length / maxLength))
		for k := 1; k <= n; k++ {
			t := float64(k) / float64(n+1)
			xy := geom.XY{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
			mid := NewWaypoint(frame.Unproject(xy), lerp(wp.Velocity, next.Velocity, t))
			mid.TurnMode = TurnPassContinuity
			if a0, ok := wp.Altitude(); ok {
				if a1, ok := next.Altitude(); ok {
					mid.SetAltitude(lerp(a0, a1, t))
				}
			}
			out = append(out, mid)
		}
	}
	return out
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
