package mission

import (
	"log/slog"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/sensor"
	"github.com/dronefield/flightplanner/internal/util"
)

const (
	nadirPitch   = -90.0
	obliquePitch = -45.0
	gimbalTime   = 10.0
	obliqueHover = 0.5
)

// shootTrigger is the photo trigger shared by every mapping group of a
// mission.
type shootTrigger struct {
	kind  Trigger
	param float64
}

// triggerFor derives the photo trigger from the front overlap: a distance
// in meters or an interval in seconds depending on the sampling mode.
func triggerFor(s config.Settings, logger *slog.Logger) shootTrigger {
	vfov := s.Profile.MappingVFOV()
	if s.TriggerMode == config.TriggerTime {
		v := sensor.PhotoTriggerInterval(s.FrontOverlap, vfov, s.Altitude, s.FlightSpeed, logger)
		return shootTrigger{kind: TriggerMultipleTiming, param: util.Round(v, 1)}
	}
	d := sensor.TriggerDistance(s.FrontOverlap, vfov, s.Altitude, logger)
	return shootTrigger{kind: TriggerMultipleDistance, param: util.Round(d, 1)}
}

// attacher builds the action groups of a mission, applying configured
// parameter overrides to every action it creates.
type attacher struct {
	overrides Overrides
	logger    *slog.Logger
	trigger   shootTrigger
	lens      string
}

func (a *attacher) act(action Action) Action {
	return a.overrides.Apply(action, a.logger)
}

func (a *attacher) group(wp *Waypoint, trigger Trigger, actions ...Action) *ActionGroup {
	for i := range actions {
		actions[i] = a.act(actions[i])
	}
	return NewGroup(wp, trigger, actions...)
}

func (a *attacher) mapping(wp *Waypoint, actions ...Action) *ActionGroup {
	return a.group(wp, a.trigger.kind, actions...).WithParam(a.trigger.param)
}

// AttachActions adds the sensor specific action groups to the phase
// waypoints.
func AttachActions(ph Phases, s config.Settings, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &attacher{
		overrides: Overrides(s.Actions),
		logger:    logger,
		trigger:   triggerFor(s, logger),
		lens:      s.Profile.ImageFormat,
	}
	if a.lens == "" {
		a.lens = lensVisibleNarrowBand
	}

	if s.Profile.Kind.IsCamera() {
		a.attachCamera(ph)
	} else {
		a.attachLidar(ph)
	}
}

// shooting returns the start and stop actions of the configured sampling
// mode.
func (a *attacher) shooting() (start, stop func() Action) {
	if a.trigger.kind == TriggerMultipleTiming {
		return func() Action { return NewStartTimeLapse(a.lens) },
			func() Action { return NewStopTimeLapse(a.lens) }
	}
	return func() Action { return NewStartContinuousShooting(a.lens) },
		func() Action { return NewStopContinuousShooting(a.lens) }
}

func (a *attacher) attachCamera(ph Phases) {
	start, stop := a.shooting()

	nadir := a.mapping(ph.Launch, NewGimbalPitch(nadirPitch, gimbalTime), start())
	a.group(ph.PrimaryEnd, TriggerReachPoint, stop())
	nadir.EndAt(ph.PrimaryEnd)

	a.group(ph.ObliquePrep, TriggerReachPoint,
		NewGimbalPitch(obliquePitch, gimbalTime), &Hover{Time: obliqueHover})
	oblique := a.mapping(ph.ObliquePrep, NewGimbalPitch(obliquePitch, gimbalTime), start())
	a.group(ph.MissionEnd, TriggerReachPoint, stop())
	oblique.EndAt(ph.MissionEnd)
}

func (a *attacher) attachLidar(ph Phases) {
	a.group(ph.Launch, TriggerReachPoint, NewRecordPointCloud(RecordStart))
	nadir := a.mapping(ph.Launch, NewGimbalPitch(nadirPitch, gimbalTime), &TakePhoto{})
	a.group(ph.PrimaryEnd, TriggerReachPoint, NewRecordPointCloud(RecordStop))

	a.group(ph.ObliquePrep, TriggerReachPoint,
		NewGimbalPitch(obliquePitch, gimbalTime), &Hover{Time: obliqueHover})
	nadir.EndAt(ph.ObliquePrep)
	oblique := a.mapping(ph.ObliquePrep, NewGimbalPitch(obliquePitch, gimbalTime), &TakePhoto{})
	a.group(ph.MissionEnd, TriggerReachPoint, NewGimbalPitch(obliquePitch, gimbalTime))
	oblique.EndAt(ph.MissionEnd)
}

// pointCloudGroup returns the group of wp that controls point cloud
// recording, if any.
func pointCloudGroup(wp *Waypoint) *ActionGroup {
	for _, g := range wp.Groups {
		for _, act := range g.Actions {
			if _, ok := act.(*RecordPointCloud); ok {
				return g
			}
		}
	}
	return nil
}
