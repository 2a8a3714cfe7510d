package mission

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/sensor"
	"github.com/dronefield/flightplanner/internal/terrain"
	"github.com/dronefield/flightplanner/internal/util"
	"github.com/dronefield/flightplanner/internal/wpml"
)

// HeightModes returns the template and wayline height modes of the
// altitude setup.
func (m *Mission) HeightModes() (template, execute string) {
	switch {
	case m.Settings.AltitudeMode == terrain.ModeRealTime:
		return wpml.HeightRealTimeFollow, wpml.HeightRealTimeFollow
	case m.Settings.AltitudeMode == terrain.ModeDSM && m.TakeoffElevation == nil:
		return wpml.HeightAboveGroundLevel, wpml.HeightWGS84
	default:
		return wpml.HeightRelativeToStart, wpml.HeightRelativeToStart
	}
}

func (m *Mission) missionConfig() wpml.MissionConfig {
	c := wpml.DefaultMissionConfig()
	c.TakeOffSecurityHeight = m.Settings.ToSecureAlt
	c.GlobalTransitionalSpeed = m.Settings.TransitionSpeed
	c.Drone = wpml.Enum(m.Settings.Profile.Drone)
	c.Payload = wpml.Enum(m.Settings.Profile.Payload)
	return c
}

// Template returns the template.kml content of the mission: a mapping
// area for plot missions, the waypoint list for photo missions.
func (m *Mission) Template() *wpml.Template {
	s := m.Settings
	heightMode, _ := m.HeightModes()
	if s.Photo != nil {
		return m.waypointTemplate(heightMode)
	}
	ov := sensor.OverlapPair(s.Profile.Kind, s.Profile.SecondaryHFOV, s.Altitude, s.Spacing,
		s.SidePercent(), s.FrontPercent(), m.logger)

	polygon := make([]wpml.Coordinate, len(m.Plot.Corners))
	for i, c := range m.Plot.Corners {
		polygon[i] = wpml.Coordinate{Lon: c.Lon, Lat: c.Lat}
	}

	shootType := wpml.ShootTypeDistance
	if s.TriggerMode == config.TriggerTime {
		shootType = wpml.ShootTypeTime
	}

	return &wpml.Template{
		Type:              wpml.TemplateTypeMapping2D,
		Created:           m.Created,
		Config:            m.missionConfig(),
		HeightMode:        heightMode,
		GlobalShootHeight: s.Altitude,
		AutoFlightSpeed:   s.FlightSpeed,
		CalibrateIMU:      s.CalibrateIMU,
		ShootType:         shootType,
		Direction:         m.Plot.Angle,
		Margin:            s.Buffer,
		Overlaps:          wpml.Overlaps(ov),
		Polygon:           polygon,
		EllipsoidHeight:   s.Altitude,
		Height:            s.Altitude,
		Payload: wpml.PayloadParam{
			ReturnMode:   s.ReturnMode,
			SamplingRate: s.SamplingRate,
			ScanningMode: s.ScanningMode,
			ImageFormat:  s.Profile.ImageFormat,
		},
	}
}

func (m *Mission) waypointTemplate(heightMode string) *wpml.Template {
	s := m.Settings
	points := make([]wpml.TemplatePoint, len(m.Waypoints))
	for i, wp := range m.Waypoints {
		alt, _ := wp.Altitude()
		points[i] = wpml.TemplatePoint{Point: wpml.Coordinate{Lon: wp.Point.Lon, Lat: wp.Point.Lat}, Height: alt}
	}
	return &wpml.Template{
		Type:              wpml.TemplateTypeWaypoint,
		Created:           m.Created,
		Config:            m.missionConfig(),
		HeightMode:        heightMode,
		GlobalShootHeight: s.Photo.Altitude,
		AutoFlightSpeed:   s.FlightSpeed,
		Height:            s.Altitude,
		TurnMode:          s.TurnMode,
		Points:            points,
		Payload:           wpml.PayloadParam{ImageFormat: s.Profile.ImageFormat},
	}
}

// Wayline returns the waylines.wpml content of the mission. Action group
// ids run across the mission, action ids restart in every group.
func (m *Mission) Wayline() (*wpml.Wayline, error) {
	_, executeMode := m.HeightModes()
	w := &wpml.Wayline{
		Config:            m.missionConfig(),
		ExecuteHeightMode: executeMode,
		Distance:          util.Round(m.Distance, 1),
		Duration:          util.Round(m.Duration, 1),
		AutoFlightSpeed:   m.Settings.FlightSpeed,
		Placemarks:        make([]wpml.Placemark, len(m.Waypoints)),
	}

	groupID := 0
	last := len(m.Waypoints) - 1
	for i, wp := range m.Waypoints {
		alt, ok := wp.Altitude()
		if !ok && i != last {
			return nil, fmt.Errorf("waypoint %d: altitude not resolved", i)
		}
		if wp.Heading == nil && i != last {
			return nil, fmt.Errorf("waypoint %d: heading not resolved", i)
		}
		var heading float64
		if wp.Heading != nil {
			heading = *wp.Heading
		}

		p := wpml.Placemark{
			Point:              wpml.Coordinate{Lon: wp.Point.Lon, Lat: wp.Point.Lat},
			Index:              wp.Index,
			ExecuteHeight:      alt,
			Speed:              util.Round(wp.Velocity, 1),
			HeadingMode:        wp.HeadingMode,
			HeadingAngle:       heading,
			HeadingAngleEnable: wp.HeadingEnabled,
			TurnMode:           wp.TurnMode,
			TurnDampingDist:    wp.TurnDampingDist,
			UseStraightLine:    wp.UseStraightLine,
		}
		for _, g := range wp.Groups {
			g.ID = groupID
			groupID++
			if err := g.Validate(); err != nil {
				return nil, err
			}
			p.Groups = append(p.Groups, convertGroup(g))
		}
		w.Placemarks[i] = p
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func convertGroup(g *ActionGroup) wpml.ActionGroup {
	out := wpml.ActionGroup{
		ID:           g.ID,
		StartIndex:   g.Start.Index,
		EndIndex:     g.EndWaypoint().Index,
		Mode:         g.Mode,
		Trigger:      string(g.Trigger),
		TriggerParam: g.Param,
		Actions:      make([]wpml.Action, len(g.Actions)),
	}
	for i, a := range g.Actions {
		params := Params(a)
		wp := make([]wpml.Param, len(params))
		for j, p := range params {
			wp[j] = wpml.Param(p)
		}
		out.Actions[i] = wpml.Action{ID: i, Func: a.Func(), Params: wp}
	}
	return out
}

// Archive assembles the KMZ content. In DSM mode with embedding enabled the
// surface model is copied below wpmz/res/dsm.
func (m *Mission) Archive() (*wpml.Archive, error) {
	w, err := m.Wayline()
	if err != nil {
		return nil, err
	}
	a := &wpml.Archive{Template: m.Template(), Wayline: w}
	if m.Settings.AltitudeMode == terrain.ModeDSM && m.Settings.EmbedDSM && m.Settings.DSMPath != "" {
		a.Resources = map[string]string{
			"dsm/" + util.SanitizeName(filepath.Base(m.Settings.DSMPath)): m.Settings.DSMPath,
		}
	}
	return a, nil
}

// Write writes the archive, and the preview if enabled, and returns the
// archive path.
func (m *Mission) Write() (string, error) {
	a, err := m.Archive()
	if err != nil {
		return "", err
	}
	path := m.OutputPath()
	if err := a.Write(path); err != nil {
		return "", err
	}
	m.logger.Info("mission archive written", "path", path, "waypoints", len(m.Waypoints))

	if m.Settings.Preview {
		_, executeMode := m.HeightModes()
		relative := executeMode != wpml.HeightWGS84
		if err := wpml.WritePreviewFile(m.PreviewPath(), filepath.Base(path), a.Wayline, relative); err != nil {
			return path, err
		}
		m.logger.Info("preview written", "path", m.PreviewPath())
	}
	return path, nil
}

// OutputPath is the archive location: the destination itself or, in slot
// layout, <destination>/<ID>/<ID>.kmz with the destination as directory.
func (m *Mission) OutputPath() string {
	if !m.Settings.Slot {
		return m.Settings.Destination
	}
	return wpml.SlotPath(m.Settings.Destination, m.ID)
}

// PreviewPath is the KML preview written next to the archive.
func (m *Mission) PreviewPath() string {
	p := m.OutputPath()
	return strings.TrimSuffix(p, filepath.Ext(p)) + ".kml"
}
