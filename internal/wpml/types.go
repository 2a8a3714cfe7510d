// Package wpml writes DJI waypoint missions: the template.kml and
// waylines.wpml documents and the KMZ archive holding them.
package wpml

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidMission = errors.New("invalid mission document")

// Height modes of the executed wayline and the template.
const (
	HeightWGS84            = "WGS84"
	HeightRelativeToStart  = "relativeToStartPoint"
	HeightRealTimeFollow   = "realTimeFollowSurface"
	HeightAboveGroundLevel = "aboveGroundLevel"
)

const (
	ShootTypeDistance     = "distance"
	ShootTypeTime         = "time"
	TemplateTypeMapping2D = "mapping2d"
	TemplateTypeWaypoint  = "waypoint"

	coordinateModeWGS84 = "WGS84"
	headingPathMode     = "followBadArc"
)

// Enum is a DJI enum/sub-enum pair.
type Enum struct {
	Value    int
	SubValue int
}

// MissionConfig is the missionConfig element shared by both documents.
type MissionConfig struct {
	FlyToWaylineMode        string
	FinishAction            string
	ExitOnRCLost            string
	ExecuteRCLostAction     string
	TakeOffSecurityHeight   float64
	GlobalTransitionalSpeed float64
	Drone                   Enum
	Payload                 Enum
}

// DefaultMissionConfig flies to the first waypoint safely and returns home
// on completion or signal loss.
func DefaultMissionConfig() MissionConfig {
	return MissionConfig{
		FlyToWaylineMode:    "safely",
		FinishAction:        "goHome",
		ExitOnRCLost:        "executeLostAction",
		ExecuteRCLostAction: "goBack",
	}
}

// Overlaps are overlap percentages of the mapping template.
type Overlaps struct {
	LidarH  float64
	LidarW  float64
	CameraH float64
	CameraW float64
}

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lon float64
	Lat float64
}

// PayloadParam is the payload setup of the template.
type PayloadParam struct {
	ReturnMode   string
	SamplingRate int
	ScanningMode string
	ImageFormat  string
}

// TemplatePoint is one waypoint of a waypoint template.
type TemplatePoint struct {
	Point  Coordinate
	Height float64
}

// Template is the wpmz/template.kml document. Type selects the mapping
// area fields or the Points of a waypoint template; empty is mapping2d.
type Template struct {
	Type    string
	Created time.Time
	Config  MissionConfig

	HeightMode        string
	GlobalShootHeight float64
	AutoFlightSpeed   float64

	CalibrateIMU    bool
	ShootType       string
	Direction       float64
	Margin          float64
	Overlaps        Overlaps
	Polygon         []Coordinate
	EllipsoidHeight float64
	Height          float64
	Payload         PayloadParam

	TurnMode string
	Points   []TemplatePoint
}

// Param is one action parameter. Values are float64, int, bool or string.
type Param struct {
	Key   string
	Value any
}

// Action is one actionActuatorFunc call.
type Action struct {
	ID     int
	Func   string
	Params []Param
}

// ActionGroup spans the waypoints StartIndex to EndIndex.
type ActionGroup struct {
	ID           int
	StartIndex   int
	EndIndex     int
	Mode         string
	Trigger      string
	TriggerParam *float64
	Actions      []Action
}

// Placemark is one waypoint of the wayline.
type Placemark struct {
	Point              Coordinate
	Index              int
	ExecuteHeight      float64
	Speed              float64
	HeadingMode        string
	HeadingAngle       float64
	HeadingAngleEnable bool
	TurnMode           string
	TurnDampingDist    float64
	UseStraightLine    bool
	Groups             []ActionGroup
}

// Wayline is the wpmz/waylines.wpml document.
type Wayline struct {
	Config            MissionConfig
	TemplateID        int
	WaylineID         int
	ExecuteHeightMode string
	Distance          float64
	Duration          float64
	AutoFlightSpeed   float64
	Placemarks        []Placemark
}

// Validate checks waypoint indices and action group spans.
func (w *Wayline) Validate() error {
	n := len(w.Placemarks)
	if n < 2 {
		return fmt.Errorf("%w: need at least 2 waypoints, got %d", ErrInvalidMission, n)
	}
	seen := make(map[int]bool)
	for i, p := range w.Placemarks {
		if p.Index != i {
			return fmt.Errorf("%w: waypoint %d has index %d", ErrInvalidMission, i, p.Index)
		}
		if p.Speed <= 0 {
			return fmt.Errorf("%w: waypoint %d has speed %v", ErrInvalidMission, i, p.Speed)
		}
		for _, g := range p.Groups {
			if seen[g.ID] {
				return fmt.Errorf("%w: duplicate action group id %d", ErrInvalidMission, g.ID)
			}
			seen[g.ID] = true
			if g.StartIndex != i {
				return fmt.Errorf("%w: action group %d starts at %d but is placed at waypoint %d", ErrInvalidMission, g.ID, g.StartIndex, i)
			}
			if g.EndIndex < g.StartIndex || g.EndIndex >= n {
				return fmt.Errorf("%w: action group %d spans %d to %d", ErrInvalidMission, g.ID, g.StartIndex, g.EndIndex)
			}
			if len(g.Actions) == 0 {
				return fmt.Errorf("%w: action group %d is empty", ErrInvalidMission, g.ID)
			}
		}
	}
	return nil
}
