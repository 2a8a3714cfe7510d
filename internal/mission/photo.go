package mission

import (
	"fmt"
	"math"

	"github.com/dronefield/flightplanner/internal/geo"
	"github.com/dronefield/flightplanner/internal/poi"
	"github.com/dronefield/flightplanner/internal/terrain"
)

const (
	photoHover    = 1.0
	zoomFocalBase = 24.0
)

// planPhotos builds one photo group per POI: the approach above the POI at
// transit altitude, the photo stops, and the departure back at transit
// altitude.
func (m *Mission) planPhotos() error {
	s := m.Settings
	if len(m.POIs) == 0 {
		pois, err := poi.Load(s.Photo.Path)
		if err != nil {
			return fmt.Errorf("poi: %w", err)
		}
		m.POIs = pois
	}

	frame, err := geo.NewFrame(m.POIs[0].Point)
	if err != nil {
		return fmt.Errorf("poi: %w", err)
	}
	m.Frame = frame
	if s.CalibrateIMU {
		m.logger.Warn("IMU calibration is not flown on photo missions")
	}

	a := &attacher{overrides: Overrides(s.Actions), logger: m.logger}
	m.Waypoints = m.Waypoints[:0]
	for _, target := range m.POIs {
		m.Waypoints = append(m.Waypoints, m.photoGroup(a, target)...)
	}
	m.logger.Info("photo groups generated",
		"pois", len(m.POIs), "photos", s.Photo.Count, "radius", s.Photo.Radius, "frame", frame.String())
	return nil
}

func (m *Mission) photoGroup(a *attacher, target poi.POI) []*Waypoint {
	s := m.Settings
	p := s.Photo
	newWaypoint := func(pos geo.LonLat, alt float64, kind WaypointType) *Waypoint {
		wp := NewWaypoint(pos, s.FlightSpeed)
		wp.TurnMode = s.TurnMode
		wp.Type = kind
		wp.SetAltitude(alt)
		return wp
	}

	approach := newWaypoint(target.Point, s.Altitude, TypeFly)
	a.group(approach, TriggerReachPoint, NewGimbalPitch(nadirPitch, 0))

	photos := make([]*Waypoint, p.Count)
	for i := range photos {
		pos := target.Point
		if p.Radius > 0 {
			pos = geo.Destination(target.Point, 360*float64(i)/float64(p.Count), p.Radius)
		}
		wp := newWaypoint(pos, p.Altitude, TypePhoto)
		if p.Radius > 0 {
			heading := geo.HeadingAngle(pos, target.Point)
			pitch := -math.Atan2(p.Altitude, p.Radius) * 180 / math.Pi
			wp.SetHeading(heading)
			a.group(wp, TriggerReachPoint,
				NewRotateYaw(heading), NewOrientedShoot(heading, pitch, m.focalLength()), &Hover{Time: photoHover})
		} else {
			wp.SetHeading(0)
			a.group(wp, TriggerReachPoint, NewFocus(), &TakePhoto{}, &Hover{Time: photoHover})
		}
		photos[i] = wp
	}
	if p.Zoom > 0 {
		zoom := &Zoom{FocalLength: m.focalLength(), UseFocalFactor: true, FocalFactor: p.Zoom}
		a.group(approach, TriggerBetweenPoints, zoom).EndAt(photos[0])
	}

	depart := newWaypoint(target.Point, s.Altitude, TypeFly)
	out := append([]*Waypoint{approach}, photos...)
	return append(out, depart)
}

// focalLength is the zoom lens focal length in mm the photos are shot with.
func (m *Mission) focalLength() float64 {
	if z := m.Settings.Photo.Zoom; z > 0 {
		return zoomFocalBase * z
	}
	return defaultZoomFocalLength
}

// resolvePhotoAltitudes lifts the transit waypoints above the corridor
// ground and sets every photo stop above the higher ground of its own
// position and its POI.
func (m *Mission) resolvePhotoAltitudes(resolver *terrain.Resolver) error {
	s := m.Settings
	var transit []terrain.Waypoint
	var target geo.LonLat
	for i, wp := range m.Waypoints {
		if wp.Type != TypePhoto {
			transit = append(transit, wp)
			target = wp.Point
			continue
		}
		alt := math.Inf(-1)
		for _, pos := range []geo.LonLat{wp.Point, target} {
			v, err := resolver.ResolvePoint(pos, s.Photo.Altitude)
			if err != nil {
				return fmt.Errorf("photo waypoint %d: %w", i, err)
			}
			alt = math.Max(alt, v)
		}
		wp.SetAltitude(alt)
	}
	return resolver.Apply(transit, s.Altitude, s.SafetyBuffer)
}
