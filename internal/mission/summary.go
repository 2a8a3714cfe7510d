package mission

import (
	"time"

	"github.com/dronefield/flightplanner/internal/util"
)

// PatternPhoto is the summary pattern of point of interest missions.
const PatternPhoto = "poi"

// Summary is the record of a generated mission kept by the catalogue and
// the metrics sink.
type Summary struct {
	ID           string
	Created      time.Time
	Path         string
	Sensor       string
	Pattern      string
	AltitudeMode string
	Lon          float64
	Lat          float64
	Width        float64
	Height       float64
	Angle        float64
	Altitude     float64
	Spacing      float64
	SideOverlap  float64
	FrontOverlap float64
	FlightSpeed  float64
	Waypoints    int
	ActionGroups int
	Calibrations int
	Distance     float64
	Duration     float64
}

// Summary returns the catalogue record of m.
func (m *Mission) Summary() Summary {
	s := m.Settings
	sum := Summary{
		ID:           m.ID.String(),
		Created:      m.Created,
		Path:         m.OutputPath(),
		Sensor:       s.Profile.Name,
		Pattern:      string(s.Pattern),
		AltitudeMode: string(s.AltitudeMode),
		Altitude:     s.Altitude,
		Spacing:      util.Round(s.Spacing, 2),
		SideOverlap:  s.SideOverlap,
		FrontOverlap: s.FrontOverlap,
		FlightSpeed:  s.FlightSpeed,
		Waypoints:    len(m.Waypoints),
		ActionGroups: len(m.Groups()),
		Calibrations: m.Calibrations,
		Distance:     util.Round(m.Distance, 1),
		Duration:     util.Round(m.Duration, 1),
	}
	if m.Plot != nil {
		sum.Lon, sum.Lat = m.Plot.Center.Lon, m.Plot.Center.Lat
		sum.Width, sum.Height, sum.Angle = m.Plot.Width, m.Plot.Height, m.Plot.Angle
	}
	if s.Photo != nil {
		sum.Pattern = PatternPhoto
		if len(m.POIs) > 0 {
			sum.Lon, sum.Lat = m.POIs[0].Point.Lon, m.POIs[0].Point.Lat
		}
	}
	return sum
}
