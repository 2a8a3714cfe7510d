package mission

import (
	"errors"
	"fmt"
)

var ErrInvalidGroup = errors.New("invalid action group")

// Trigger kinds of the DJI actionTrigger.
type Trigger string

const (
	TriggerReachPoint       Trigger = "reachPoint"
	TriggerBetweenPoints    Trigger = "betweenAdjacentPoints"
	TriggerMultipleDistance Trigger = "multipleDistance"
	TriggerMultipleTiming   Trigger = "multipleTiming"
)

// ActionGroup is a sequence of actions fired from Start until End.
type ActionGroup struct {
	ID      int
	Trigger Trigger
	Param   *float64
	Start   *Waypoint
	End     *Waypoint
	Mode    string
	Actions []Action
}

// NewGroup attaches a new group starting and ending at start.
func NewGroup(start *Waypoint, trigger Trigger, actions ...Action) *ActionGroup {
	g := &ActionGroup{
		Trigger: trigger,
		Start:   start,
		Mode:    "sequence",
		Actions: actions,
	}
	start.AddGroup(g)
	return g
}

// WithParam sets the trigger parameter (meters or seconds).
func (g *ActionGroup) WithParam(v float64) *ActionGroup {
	g.Param = &v
	return g
}

// EndAt extends the group until wp.
func (g *ActionGroup) EndAt(wp *Waypoint) *ActionGroup {
	g.End = wp
	return g
}

// EndWaypoint returns End, or Start when the group is a single point.
func (g *ActionGroup) EndWaypoint() *Waypoint {
	if g.End == nil {
		return g.Start
	}
	return g.End
}

// Prepend inserts a as the first action of the group.
func (g *ActionGroup) Prepend(a Action) {
	g.Actions = append([]Action{a}, g.Actions...)
}

// Validate checks the group against the assigned waypoint indices.
func (g *ActionGroup) Validate() error {
	if len(g.Actions) == 0 {
		return fmt.Errorf("%w: group %d has no actions", ErrInvalidGroup, g.ID)
	}
	if end := g.EndWaypoint(); end.Index < g.Start.Index {
		return fmt.Errorf("%w: group %d ends at waypoint %d before its start %d", ErrInvalidGroup, g.ID, end.Index, g.Start.Index)
	}
	if (g.Trigger == TriggerMultipleDistance || g.Trigger == TriggerMultipleTiming) && g.Param == nil {
		return fmt.Errorf("%w: group %d trigger %s needs a parameter", ErrInvalidGroup, g.ID, g.Trigger)
	}
	return nil
}
