package mission

import (
	"errors"
	"fmt"
)

var ErrTooFewWaypoints = errors.New("mission needs at least 4 waypoints")

// Phases names the waypoints where the action sequence changes. The grid
// is flown from Launch to PrimaryEnd, the aircraft then turns its gimbal at
// ObliquePrep and records obliques on the way back to MissionEnd.
type Phases struct {
	Launch      *Waypoint
	PrimaryEnd  *Waypoint
	ObliquePrep *Waypoint
	MissionEnd  *Waypoint
}

// PhasesOf returns the phases of a waypoint list: the first waypoint and
// the last three.
func PhasesOf(wps []*Waypoint) (Phases, error) {
	n := len(wps)
	if n < 4 {
		return Phases{}, fmt.Errorf("%w, got %d", ErrTooFewWaypoints, n)
	}
	return Phases{
		Launch:      wps[0],
		PrimaryEnd:  wps[n-3],
		ObliquePrep: wps[n-2],
		MissionEnd:  wps[n-1],
	}, nil
}
