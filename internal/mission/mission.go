// Package mission turns resolved settings into a complete DJI waypoint
// mission: plot or points of interest, waypoints, action groups,
// calibrations and altitudes.
package mission

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/dsm"
	"github.com/dronefield/flightplanner/internal/geo"
	"github.com/dronefield/flightplanner/internal/grid"
	"github.com/dronefield/flightplanner/internal/poi"
	"github.com/dronefield/flightplanner/internal/terrain"
	"github.com/dronefield/flightplanner/internal/util"
)

// Mission is one generated flight. It owns every waypoint and action group.
type Mission struct {
	ID       uuid.UUID
	Created  time.Time
	Settings config.Settings

	// Plot is nil on photo missions, POIs is empty on plot missions.
	Plot *Plot
	POIs []poi.POI
	// Frame is the metric frame every planar computation of the mission
	// uses.
	Frame *geo.Frame

	Waypoints    []*Waypoint
	Phases       Phases
	Calibrations int

	// TakeoffElevation is subtracted from every altitude when the mission
	// is flown relative to a takeoff point.
	TakeoffElevation *float64

	Distance float64
	Duration float64

	surface terrain.Surface
	logger  *slog.Logger
}

// New prepares a mission for s.
func New(s config.Settings, logger *slog.Logger) *Mission {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mission{
		ID:       uuid.New(),
		Created:  time.Now().UTC(),
		Settings: s,
		logger:   logger,
	}
}

// WithSurface sets the surface model used in DSM mode instead of opening
// the configured DSM file.
func (m *Mission) WithSurface(surface terrain.Surface) *Mission {
	m.surface = surface
	return m
}

// WithPOIs sets the points of interest of a photo mission instead of
// loading the configured POI file.
func (m *Mission) WithPOIs(pois []poi.POI) *Mission {
	m.POIs = pois
	return m
}

// WithLogger replaces the logger of the mission.
func (m *Mission) WithLogger(logger *slog.Logger) *Mission {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Generate builds the mission for s.
func Generate(s config.Settings, logger *slog.Logger) (*Mission, error) {
	m := New(s, logger)
	if err := m.Run(); err != nil {
		return nil, err
	}
	return m, nil
}

// Run executes the planning pipeline.
func (m *Mission) Run() error {
	s := m.Settings

	plan := m.planPlot
	if s.Photo != nil {
		plan = m.planPhotos
	}
	if err := plan(); err != nil {
		return err
	}

	if s.AltitudeMode == terrain.ModeDSM {
		if err := m.followTerrain(); err != nil {
			return err
		}
	}

	m.setHeadings()
	for i, wp := range m.Waypoints {
		wp.Index = i
	}
	if err := m.computeTotals(); err != nil {
		return err
	}
	m.checkPathLength()
	return nil
}

// planPlot lays the grid over the plot and attaches the mapping actions.
func (m *Mission) planPlot() error {
	s := m.Settings

	plot, err := NewPlot(s)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	m.Plot = plot
	m.Frame = plot.Frame

	points, err := grid.Generate(s.Pattern, plot.GridSpec(s.Spacing, s.Buffer), m.logger)
	if err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	m.buildWaypoints(points)
	m.logger.Info("flight lines generated",
		"pattern", s.Pattern, "points", len(points), "frame", plot.Frame.String())

	if m.Phases, err = PhasesOf(m.Waypoints); err != nil {
		return err
	}
	AttachActions(m.Phases, s, m.logger)

	if s.CalibrateIMU {
		calibrated, err := InsertCalibrations(m.Waypoints, s.CalibrationInterval, Overrides(s.Actions), m.logger)
		if err != nil {
			return err
		}
		m.Calibrations = len(calibrated)
		m.logger.Info("IMU calibrations inserted", "count", m.Calibrations)
	}
	return nil
}

func (m *Mission) buildWaypoints(points []geom.XY) {
	s := m.Settings
	positions := m.Plot.Frame.UnprojectAll(points)
	last := positions[len(positions)-1]
	positions = append(positions, m.Plot.NearestCorner(last), m.Plot.Center)

	m.Waypoints = make([]*Waypoint, len(positions))
	for i, p := range positions {
		wp := NewWaypoint(p, s.FlightSpeed)
		wp.TurnMode = s.TurnMode
		wp.SetAltitude(s.Altitude)
		m.Waypoints[i] = wp
	}
}

func (m *Mission) openSurface() (terrain.Surface, error) {
	if m.surface != nil {
		return m.surface, nil
	}
	g, err := dsm.Open(m.Settings.DSMPath)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// followTerrain resolves absolute altitudes from the surface model. Plot
// missions have their long segments split first.
func (m *Mission) followTerrain() error {
	s := m.Settings
	surface, err := m.openSurface()
	if err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	resolver := terrain.NewResolver(surface, m.Frame, s.Datum, m.logger)

	if s.Photo != nil {
		err = m.resolvePhotoAltitudes(resolver)
	} else {
		err = m.resolvePlotAltitudes(resolver)
	}
	if err != nil {
		return fmt.Errorf("terrain: %w", err)
	}

	if s.Takeoff != nil {
		ground, err := resolver.Elevation(*s.Takeoff)
		if err != nil {
			return fmt.Errorf("terrain: takeoff: %w", err)
		}
		m.TakeoffElevation = &ground
		for _, wp := range m.Waypoints {
			alt, _ := wp.Altitude()
			wp.SetAltitude(alt - ground)
		}
		m.logger.Info("altitudes relative to takeoff", "takeoff", s.Takeoff.String(), "elevation", ground)
	}
	return nil
}

func (m *Mission) resolvePlotAltitudes(resolver *terrain.Resolver) error {
	s := m.Settings
	maxLength := s.MaxSegmentLength
	if maxLength <= 0 {
		maxLength = DefaultMaxSegmentLength
	}
	before := len(m.Waypoints)
	m.Waypoints = Split(m.Waypoints, m.Frame, maxLength)
	m.logger.Debug("segments split", "before", before, "after", len(m.Waypoints), "maxLength", maxLength)

	wps := make([]terrain.Waypoint, len(m.Waypoints))
	for i, wp := range m.Waypoints {
		wps[i] = wp
	}
	return resolver.Apply(wps, s.Altitude, s.SafetyBuffer)
}

// setHeadings points every waypoint at its successor. Photo stops keep the
// heading they were planned with and the last waypoint gets 0.
func (m *Mission) setHeadings() {
	for i, wp := range m.Waypoints {
		if wp.Type == TypePhoto && wp.Heading != nil {
			continue
		}
		if i == len(m.Waypoints)-1 {
			wp.SetHeading(0)
			break
		}
		wp.SetHeading(geo.HeadingAngle(wp.Point, m.Waypoints[i+1].Point))
	}
}

func (m *Mission) computeTotals() error {
	m.Distance, m.Duration = 0, 0
	for i := 0; i < len(m.Waypoints)-1; i++ {
		wp := m.Waypoints[i]
		d, err := geo.SegmentDistance3D(wp, m.Waypoints[i+1])
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		m.Distance += d
		if wp.Velocity > 0 {
			m.Duration += d / wp.Velocity
		}
	}
	return nil
}

// checkPathLength compares the planar path length in the mission frame
// with the geodesic total and warns on a mismatch.
func (m *Mission) checkPathLength() {
	xy := m.Frame.ProjectAll(m.positions())
	flat := make([]float64, 0, 2*len(xy))
	for _, p := range xy {
		flat = append(flat, p.X, p.Y)
	}
	planar := geom.NewLineString(geom.NewSequence(flat, geom.DimXY)).Length()

	var horizontal float64
	for i := 0; i < len(m.Waypoints)-1; i++ {
		horizontal += geo.Distance(m.Waypoints[i].Point, m.Waypoints[i+1].Point)
	}
	if horizontal > 0 && math.Abs(planar-horizontal)/horizontal > 0.01 {
		m.logger.Warn("planar and geodesic path length differ",
			"planar", util.Round(planar, 1), "geodesic", util.Round(horizontal, 1))
	}
}

func (m *Mission) positions() []geo.LonLat {
	out := make([]geo.LonLat, len(m.Waypoints))
	for i, wp := range m.Waypoints {
		out[i] = wp.Point
	}
	return out
}

// Groups returns every action group in waypoint order.
func (m *Mission) Groups() []*ActionGroup {
	var out []*ActionGroup
	for _, wp := range m.Waypoints {
		out = append(out, wp.Groups...)
	}
	return out
}
