package mission

import (
	"github.com/dronefield/flightplanner/internal/geo"
	"github.com/dronefield/flightplanner/internal/util"
)

// Turn modes of the DJI waypointTurnParam.
const (
	TurnStop                = "toPointAndStopWithContinuityCurvature"
	TurnPassContinuity      = "toPointAndPassWithContinuityCurvature"
	TurnStopDiscontinuity   = "toPointAndStopWithDiscontinuityCurvature"
	TurnCoordinateTurn      = "coordinateTurn"
	HeadingSmoothTransition = "smoothTransition"
)

// WaypointType separates the takeoff reference and photo stops from flown
// waypoints.
type WaypointType string

const (
	TypeFly     WaypointType = "fly"
	TypeTakeoff WaypointType = "takeoff"
	TypePhoto   WaypointType = "photo"
)

// Waypoint is one point of the flight path.
type Waypoint struct {
	Point    geo.LonLat
	Alt      *float64
	Velocity float64

	TurnMode        string
	TurnDampingDist float64
	UseStraightLine bool

	HeadingMode    string
	Heading        *float64
	HeadingEnabled bool

	Calibrate bool
	Groups    []*ActionGroup
	Type      WaypointType

	// Index is assigned when the path is final.
	Index int
}

// NewWaypoint returns a fly waypoint with the default turn and heading
// parameters.
func NewWaypoint(p geo.LonLat, velocity float64) *Waypoint {
	return &Waypoint{
		Point:           p,
		Velocity:        velocity,
		TurnMode:        TurnStop,
		UseStraightLine: true,
		HeadingMode:     HeadingSmoothTransition,
		HeadingEnabled:  true,
		Type:            TypeFly,
	}
}

func (w *Waypoint) Position() geo.LonLat { return w.Point }

func (w *Waypoint) Altitude() (float64, bool) {
	if w.Alt == nil {
		return 0, false
	}
	return *w.Alt, true
}

// SetAltitude stores v rounded to decimeters.
func (w *Waypoint) SetAltitude(v float64) {
	r := util.Round(v, 1)
	w.Alt = &r
}

// SetHeading stores deg rounded to a tenth of a degree, within (-180, 180].
func (w *Waypoint) SetHeading(deg float64) {
	r := geo.NormalizeAngle(util.Round(deg, 1))
	w.Heading = &r
}

// CalibrationRadius reports the radius of the calibration pattern flown at
// w, if any.
func (w *Waypoint) CalibrationRadius() (float64, bool) {
	if !w.Calibrate {
		return 0, false
	}
	for _, g := range w.Groups {
		for _, a := range g.Actions {
			if c, ok := a.(*AircraftCalibration); ok {
				return c.Distance, true
			}
		}
	}
	return 0, true
}

// AddGroup attaches g to w. Groups keep insertion order.
func (w *Waypoint) AddGroup(g *ActionGroup) {
	w.Groups = append(w.Groups, g)
}
