package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/dronefield/flightplanner/internal/geo"
	"github.com/dronefield/flightplanner/internal/grid"
	"github.com/dronefield/flightplanner/internal/sensor"
	"github.com/dronefield/flightplanner/internal/terrain"
	"github.com/dronefield/flightplanner/internal/util"
)

var ErrInvalidSetting = errors.New("invalid setting")

// DefaultGSD is the ground sampling distance in cm used when neither an
// altitude nor a GSD is given and the profile has no altitude of its own.
const DefaultGSD = 4.0

// Trigger modes of the photo interval.
const (
	TriggerDistance = "distance"
	TriggerTime     = "time"
)

var turnModes = []string{
	"toPointAndStopWithContinuityCurvature",
	"toPointAndPassWithContinuityCurvature",
	"toPointAndStopWithDiscontinuityCurvature",
	"coordinateTurn",
}

// Input is the raw, partly optional set of mission settings. Nil pointers
// are taken from the sensor profile or derived.
type Input struct {
	Sensor      string
	LatLon      string
	LatLon2     string
	Destination string

	GSD          *float64
	Altitude     *float64
	Width        *float64
	Height       *float64
	Area         float64
	SideOverlap  *float64
	FrontOverlap *float64
	Spacing      *float64
	Buffer       *float64

	FlightSpeed     *float64
	TransitionSpeed float64
	ToSecureAlt     float64
	TurnMode        string
	GridMode        string
	ImgSamplingMode string
	PlotAngle       float64

	LidarReturns *int
	SamplingRate *int
	ScanningMode string

	AltitudeType        string
	DSMPath             string
	Datum               string
	SafetyBuffer        float64
	CalibrateIMU        bool
	CalibrationInterval float64
	MaxSegmentLength    float64
	Takeoff             string
	EmbedDSM            bool

	POIPath           string
	PhotoAltitude     float64
	MinFlightAltitude float64
	Photos            int
	PhotoRadius       float64
	PhotoZoom         float64

	Preview bool
	Slot    bool

	Actions map[string]map[string]any
}

// Photo configures a point of interest mission. Every POI in Path is
// approached at the transit altitude and shot from Altitude above ground.
type Photo struct {
	Path string
	// Altitude is the shooting height above ground.
	Altitude float64
	// Count photos are taken per POI, on a circle of Radius meters around
	// it, or straight above it when Radius is 0.
	Count  int
	Radius float64
	// Zoom is the focal factor set on the approach, 0 keeps the lens.
	Zoom float64
}

// Settings is the resolved, validated configuration of one mission run.
type Settings struct {
	Profile sensor.Profile

	Point       geo.LonLat
	Point2      *geo.LonLat
	Destination string

	Altitude     float64
	Width        float64
	Height       float64
	SideOverlap  float64
	FrontOverlap float64
	Spacing      float64
	Buffer       float64

	FlightSpeed     float64
	TransitionSpeed float64
	ToSecureAlt     float64
	TurnMode        string
	Pattern         grid.Pattern
	TriggerMode     string
	PlotAngle       float64

	ReturnMode   string
	SamplingRate int
	ScanningMode string

	AltitudeMode        terrain.Mode
	DSMPath             string
	Datum               terrain.Datum
	SafetyBuffer        float64
	CalibrateIMU        bool
	CalibrationInterval float64
	MaxSegmentLength    float64
	Takeoff             *geo.LonLat
	EmbedDSM            bool

	// Photo is set for a point of interest mission; the plot settings are
	// unused then.
	Photo *Photo

	Preview bool
	Slot    bool

	Actions map[string]map[string]any
}

// SidePercent is the side overlap as the whole percentage DJI expects.
func (s Settings) SidePercent() float64 { return percent(s.SideOverlap) }

// FrontPercent is the front overlap as the whole percentage DJI expects.
func (s Settings) FrontPercent() float64 { return percent(s.FrontOverlap) }

func percent(fraction float64) float64 {
	return math.Floor(fraction*100 + 1e-9)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSetting, fmt.Sprintf(format, args...))
}

// Resolve validates in against the sensor catalogue and derives every
// missing value. Warnings go to logger.
func Resolve(in Input, catalogue *sensor.Catalogue, logger *slog.Logger) (Settings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var s Settings

	profile, err := catalogue.Lookup(in.Sensor)
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	s.Profile = profile

	photo := in.POIPath != ""
	if in.LatLon == "" && !photo {
		return s, invalid("missing plot coordinate")
	}
	if in.LatLon != "" {
		if s.Point, err = geo.ParseLatLon(in.LatLon); err != nil {
			return s, fmt.Errorf("%w: point: %w", ErrInvalidSetting, err)
		}
	}
	if in.LatLon2 != "" && !photo {
		p2, err := geo.ParseLatLon(in.LatLon2)
		if err != nil {
			return s, fmt.Errorf("%w: second point: %w", ErrInvalidSetting, err)
		}
		s.Point2 = &p2
	}

	if in.Destination == "" {
		return s, invalid("missing destination")
	}
	s.Destination = in.Destination
	// in slot layout the destination is the slot parent directory
	if !in.Slot && strings.ToLower(filepath.Ext(s.Destination)) != ".kmz" {
		s.Destination += ".kmz"
	}

	// altitude
	switch {
	case in.Altitude != nil:
		s.Altitude = *in.Altitude
	case in.GSD != nil:
		s.Altitude = *in.GSD * profile.SensorFactor
	case profile.Altitude > 0:
		s.Altitude = profile.Altitude
	default:
		s.Altitude = DefaultGSD * profile.SensorFactor
	}
	if s.Altitude <= 0 {
		return s, invalid("altitude must be positive, got %v", s.Altitude)
	}

	if photo {
		if err := s.resolvePhoto(in); err != nil {
			return s, err
		}
	} else if err := s.resolveSize(in); err != nil {
		return s, err
	}

	s.SideOverlap = pick(in.SideOverlap, profile.SideOverlap)
	s.FrontOverlap = pick(in.FrontOverlap, profile.FrontOverlap)
	if in.Spacing == nil {
		s.Spacing = sensor.PathSpacing(profile.Coefficients, s.SideOverlap, s.Altitude)
	} else {
		s.Spacing = *in.Spacing
		s.SideOverlap = sensor.SideOverlapFromSpacing(profile.Coefficients, s.Spacing, s.Altitude)
		logger.Warn("spacing set by user, overriding the side overlap", "sideOverlap", s.SideOverlap)
	}
	if s.SideOverlap < 0 || s.SideOverlap > 1 {
		return s, invalid("side overlap (fraction) must be between 0 and 1, got %v", s.SideOverlap)
	}
	if s.FrontOverlap < 0 || s.FrontOverlap > 1 {
		return s, invalid("front overlap (fraction) must be between 0 and 1, got %v", s.FrontOverlap)
	}
	if s.Spacing <= 0 {
		return s, invalid("spacing must be positive, got %v", s.Spacing)
	}
	s.Buffer = math.Round(pick(in.Buffer, s.Spacing/2))
	if s.Buffer < 0 {
		return s, invalid("buffer must not be negative, got %v", s.Buffer)
	}

	s.FlightSpeed = pick(in.FlightSpeed, profile.FlightSpeed)
	if s.FlightSpeed <= 0 {
		return s, invalid("flight speed must be positive, got %v", s.FlightSpeed)
	}
	s.TransitionSpeed = in.TransitionSpeed
	if s.TransitionSpeed <= 0 {
		return s, invalid("transition speed must be positive, got %v", s.TransitionSpeed)
	}
	s.ToSecureAlt = in.ToSecureAlt
	s.PlotAngle = in.PlotAngle

	s.TurnMode = in.TurnMode
	if !util.Contains(turnModes, s.TurnMode) {
		return s, invalid("unknown waypoint turn mode %q", in.TurnMode)
	}
	if s.Pattern, err = grid.ParsePattern(in.GridMode); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	switch s.TriggerMode = strings.ToLower(in.ImgSamplingMode); s.TriggerMode {
	case TriggerDistance, TriggerTime:
	default:
		return s, invalid("unknown image sampling mode %q", in.ImgSamplingMode)
	}

	returns := profile.LidarReturns
	if in.LidarReturns != nil {
		returns = *in.LidarReturns
	}
	if s.ReturnMode, err = sensor.ReturnMode(returns); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	s.SamplingRate = profile.SamplingRate
	if in.SamplingRate != nil {
		s.SamplingRate = *in.SamplingRate
	}
	s.ScanningMode = profile.ScanningMode
	if in.ScanningMode != "" {
		s.ScanningMode = in.ScanningMode
	}

	if err := s.resolveAltitudeMode(in); err != nil {
		return s, err
	}

	s.Preview = in.Preview
	s.Slot = in.Slot
	s.Actions = in.Actions
	return s, nil
}

func (s *Settings) resolveSize(in Input) error {
	switch {
	case in.Width == nil && in.Height == nil:
		if in.Area <= 0 {
			return invalid("need width, height or a positive area")
		}
		s.Width = math.Sqrt(in.Area)
		s.Height = s.Width
	case in.Width == nil:
		s.Height = *in.Height
		if in.Area <= 0 || s.Height <= 0 {
			return invalid("cannot derive width from area %v and height %v", in.Area, s.Height)
		}
		s.Width = in.Area / s.Height
	case in.Height == nil:
		s.Width = *in.Width
		if in.Area <= 0 || s.Width <= 0 {
			return invalid("cannot derive height from area %v and width %v", in.Area, s.Width)
		}
		s.Height = in.Area / s.Width
	default:
		s.Width, s.Height = *in.Width, *in.Height
	}
	if s.Width <= 0 || s.Height <= 0 {
		return invalid("plot size must be positive, got %vx%v", s.Width, s.Height)
	}
	return nil
}

// resolvePhoto raises the transit altitude to the minimum flight altitude
// and validates the shooting setup.
func (s *Settings) resolvePhoto(in Input) error {
	p := &Photo{
		Path:     in.POIPath,
		Altitude: in.PhotoAltitude,
		Count:    in.Photos,
		Radius:   in.PhotoRadius,
		Zoom:     in.PhotoZoom,
	}
	if p.Altitude <= 0 {
		return invalid("photo altitude must be positive, got %v", p.Altitude)
	}
	if p.Count < 1 {
		return invalid("need at least one photo per POI, got %d", p.Count)
	}
	if p.Radius < 0 {
		return invalid("photo radius must not be negative, got %v", p.Radius)
	}
	if p.Zoom != 0 && p.Zoom < 1 {
		return invalid("zoom factor must be 0 or at least 1, got %v", p.Zoom)
	}
	s.Altitude = math.Max(s.Altitude, in.MinFlightAltitude)
	s.Photo = p
	return nil
}

func (s *Settings) resolveAltitudeMode(in Input) error {
	var err error
	if s.AltitudeMode, err = terrain.ParseMode(in.AltitudeType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	switch s.Datum = terrain.Datum(strings.ToLower(in.Datum)); s.Datum {
	case "":
		s.Datum = terrain.DatumEllipsoid
	case terrain.DatumEllipsoid, terrain.DatumMSL:
	default:
		return invalid("unknown DSM datum %q", in.Datum)
	}

	s.DSMPath = in.DSMPath
	if s.AltitudeMode == terrain.ModeDSM && s.DSMPath == "" {
		return invalid("a DSM path is required when altitude type is %q", terrain.ModeDSM)
	}
	s.SafetyBuffer = in.SafetyBuffer
	if s.SafetyBuffer <= 0 {
		s.SafetyBuffer = terrain.DefaultSafetyBuffer
	}
	s.MaxSegmentLength = in.MaxSegmentLength
	s.EmbedDSM = in.EmbedDSM

	s.CalibrateIMU = in.CalibrateIMU
	s.CalibrationInterval = in.CalibrationInterval
	if s.CalibrateIMU && s.CalibrationInterval <= 0 {
		return invalid("calibration interval must be positive, got %v", s.CalibrationInterval)
	}

	if in.Takeoff != "" {
		if s.AltitudeMode != terrain.ModeDSM {
			return invalid("a takeoff point needs altitude type %q", terrain.ModeDSM)
		}
		p, err := geo.ParseLatLon(in.Takeoff)
		if err != nil {
			return fmt.Errorf("%w: takeoff: %w", ErrInvalidSetting, err)
		}
		s.Takeoff = &p
	}
	return nil
}

func pick(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

// InputFromViper collects the mission settings from flags, environment,
// config file and defaults. Keys that are unset stay nil so that Resolve
// falls back to the sensor profile.
func InputFromViper() Input {
	in := Input{
		Sensor:              viper.GetString("sensor"),
		LatLon:              viper.GetString("latlon"),
		LatLon2:             viper.GetString("latlon2"),
		Destination:         viper.GetString("destination"),
		GSD:                 optFloat("gsd"),
		Altitude:            optFloat("altitude"),
		Width:               optFloat("width"),
		Height:              optFloat("height"),
		Area:                viper.GetFloat64("area"),
		SideOverlap:         optFloat("sideOverlap"),
		FrontOverlap:        optFloat("frontOverlap"),
		Spacing:             optFloat("spacing"),
		Buffer:              optFloat("buffer"),
		FlightSpeed:         optFloat("flightSpeed"),
		TransitionSpeed:     viper.GetFloat64("transitionSpeed"),
		ToSecureAlt:         viper.GetFloat64("toSecureAlt"),
		TurnMode:            viper.GetString("wpTurnMode"),
		GridMode:            viper.GetString("gridMode"),
		ImgSamplingMode:     viper.GetString("imgSamplingMode"),
		PlotAngle:           viper.GetFloat64("plotAngle"),
		LidarReturns:        optInt("lidarReturns"),
		SamplingRate:        optInt("samplingRate"),
		ScanningMode:        viper.GetString("scanningMode"),
		AltitudeType:        viper.GetString("altitudeType"),
		DSMPath:             viper.GetString("dsm.path"),
		Datum:               viper.GetString("dsm.datum"),
		SafetyBuffer:        viper.GetFloat64("dsm.safetyBuffer"),
		CalibrateIMU:        viper.GetBool("calibrateImu"),
		CalibrationInterval: viper.GetFloat64("calibrationInterval"),
		MaxSegmentLength:    viper.GetFloat64("maxSegmentLength"),
		Takeoff:             viper.GetString("takeoff"),
		EmbedDSM:            viper.GetBool("dsm.embed"),
		POIPath:             viper.GetString("poi.path"),
		PhotoAltitude:       viper.GetFloat64("poi.photoAltitude"),
		MinFlightAltitude:   viper.GetFloat64("poi.minFlightAltitude"),
		Photos:              viper.GetInt("poi.photos"),
		PhotoRadius:         viper.GetFloat64("poi.radius"),
		PhotoZoom:           viper.GetFloat64("poi.zoom"),
		Preview:             viper.GetBool("preview"),
		Slot:                viper.GetBool("slot"),
	}

	if raw := viper.GetStringMap("actions"); len(raw) > 0 {
		in.Actions = make(map[string]map[string]any, len(raw))
		for kind := range raw {
			in.Actions[kind] = viper.GetStringMap("actions." + kind)
		}
	}
	return in
}

func optFloat(key string) *float64 {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetFloat64(key)
	return &v
}

func optInt(key string) *int {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetInt(key)
	return &v
}

// Print writes the resolved settings, one key=value per line.
func (s Settings) Print(w io.Writer) {
	fields := map[string]any{
		"sensor":              s.Profile.Name,
		"point":               s.Point.String(),
		"destination":         s.Destination,
		"altitude":            s.Altitude,
		"width":               s.Width,
		"height":              s.Height,
		"sideOverlap":         s.SideOverlap,
		"frontOverlap":        s.FrontOverlap,
		"spacing":             s.Spacing,
		"buffer":              s.Buffer,
		"flightSpeed":         s.FlightSpeed,
		"transitionSpeed":     s.TransitionSpeed,
		"toSecureAlt":         s.ToSecureAlt,
		"wpTurnMode":          s.TurnMode,
		"gridMode":            s.Pattern,
		"imgSamplingMode":     s.TriggerMode,
		"plotAngle":           s.PlotAngle,
		"lidarReturns":        s.ReturnMode,
		"samplingRate":        s.SamplingRate,
		"scanningMode":        s.ScanningMode,
		"altitudeType":        s.AltitudeMode,
		"calibrateImu":        s.CalibrateIMU,
		"calibrationInterval": s.CalibrationInterval,
	}
	if s.Point2 != nil {
		fields["point2"] = s.Point2.String()
	}
	if s.AltitudeMode == terrain.ModeDSM {
		fields["dsm.path"] = s.DSMPath
		fields["dsm.datum"] = s.Datum
		fields["dsm.safetyBuffer"] = s.SafetyBuffer
		fields["maxSegmentLength"] = s.MaxSegmentLength
	}
	if s.Takeoff != nil {
		fields["takeoff"] = s.Takeoff.String()
	}
	if p := s.Photo; p != nil {
		for _, k := range []string{"width", "height", "plotAngle", "gridMode", "point"} {
			delete(fields, k)
		}
		fields["poi.path"] = p.Path
		fields["poi.photoAltitude"] = p.Altitude
		fields["poi.photos"] = p.Count
		fields["poi.radius"] = p.Radius
		fields["poi.zoom"] = p.Zoom
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, "== Settings ==")
	for _, k := range keys {
		v := fields[k]
		if f, ok := v.(float64); ok {
			v = util.FormatNumber(f)
		}
		fmt.Fprintf(w, "%s=%v\n", k, v)
	}
}
