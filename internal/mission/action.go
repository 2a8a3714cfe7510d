package mission

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/dronefield/flightplanner/internal/geo"
	"github.com/dronefield/flightplanner/internal/util"
)

// Action is one actuator call of an action group. The set of kinds is
// closed: every implementation lives in this file.
type Action interface {
	// Func is the DJI actionActuatorFunc name.
	Func() string
	fields() []field
}

// Param is one actionActuatorFuncParam entry in write order.
type Param struct {
	Key   string
	Value any
}

// field binds a DJI parameter name to the struct member holding it.
type field struct {
	key string
	ptr any
}

// Params returns the parameters of a in the order DJI writes them.
func Params(a Action) []Param {
	fs := a.fields()
	out := make([]Param, len(fs))
	for i, f := range fs {
		var v any
		switch p := f.ptr.(type) {
		case *string:
			v = *p
		case *int:
			v = *p
		case *float64:
			v = *p
		case *bool:
			v = *p
		}
		out[i] = Param{Key: f.key, Value: v}
	}
	return out
}

// Set assigns a parameter by its DJI name, ignoring case. Unknown names and
// values that do not convert to the parameter type are reported as errors.
func Set(a Action, key string, value any) error {
	for _, f := range a.fields() {
		if !strings.EqualFold(f.key, key) {
			continue
		}
		var err error
		switch p := f.ptr.(type) {
		case *string:
			*p, err = cast.ToStringE(value)
		case *int:
			*p, err = cast.ToIntE(value)
		case *float64:
			*p, err = cast.ToFloat64E(value)
		case *bool:
			*p, err = cast.ToBoolE(value)
		}
		if err != nil {
			return fmt.Errorf("%s.%s: %w", a.Func(), key, err)
		}
		return nil
	}
	return fmt.Errorf("%s has no parameter %q", a.Func(), key)
}

// Overrides maps action kinds to parameter values taken from configuration
// (actions.<kind>.<param>). Configuration keys arrive lower cased, so kinds
// and parameters match case-insensitively.
type Overrides map[string]map[string]any

func (o Overrides) lookup(kind string) map[string]any {
	for k, params := range o {
		if strings.EqualFold(k, kind) {
			return params
		}
	}
	return nil
}

// Apply sets the overrides for the kind of a. Parameters the kind does not
// have are dropped with a warning.
func (o Overrides) Apply(a Action, logger *slog.Logger) Action {
	params := o.lookup(a.Func())
	if len(params) == 0 {
		return a
	}
	if logger == nil {
		logger = slog.Default()
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := Set(a, k, params[k]); err != nil {
			logger.Warn("dropping action parameter", "action", a.Func(), "param", k, "error", err)
		}
	}
	return a
}

const (
	lensVisibleNarrowBand = "visable,narrow_band"

	orientedCameraZoom     = 81
	defaultZoomFocalLength = 240.0
)

type TakePhoto struct {
	PayloadPositionIndex      int
	UseGlobalPayloadLensIndex bool
}

func (*TakePhoto) Func() string { return "takePhoto" }

func (a *TakePhoto) fields() []field {
	return []field{
		{"payloadPositionIndex", &a.PayloadPositionIndex},
		{"useGlobalPayloadLensIndex", &a.UseGlobalPayloadLensIndex},
	}
}

type StartContinuousShooting struct {
	PayloadPositionIndex      int
	UseGlobalPayloadLensIndex bool
	PayloadLensIndex          string
}

// NewStartContinuousShooting shoots with the given lenses.
func NewStartContinuousShooting(lens string) *StartContinuousShooting {
	return &StartContinuousShooting{PayloadLensIndex: lens}
}

func (*StartContinuousShooting) Func() string { return "startContinuousShooting" }

func (a *StartContinuousShooting) fields() []field {
	return []field{
		{"payloadPositionIndex", &a.PayloadPositionIndex},
		{"useGlobalPayloadLensIndex", &a.UseGlobalPayloadLensIndex},
		{"payloadLensIndex", &a.PayloadLensIndex},
	}
}

type StopContinuousShooting struct {
	PayloadPositionIndex int
	PayloadLensIndex     string
}

func NewStopContinuousShooting(lens string) *StopContinuousShooting {
	return &StopContinuousShooting{PayloadLensIndex: lens}
}

func (*StopContinuousShooting) Func() string { return "stopContinuousShooting" }

func (a *StopContinuousShooting) fields() []field {
	return []field{
		{"payloadPositionIndex", &a.PayloadPositionIndex},
		{"payloadLensIndex", &a.PayloadLensIndex},
	}
}

type StartTimeLapse struct {
	PayloadPositionIndex      int
	UseGlobalPayloadLensIndex bool
	PayloadLensIndex          string
	MinShootInterval          float64
}

func NewStartTimeLapse(lens string) *StartTimeLapse {
	return &StartTimeLapse{PayloadLensIndex: lens, MinShootInterval: 1}
}

func (*StartTimeLapse) Func() string { return "startTimeLapse" }

func (a *StartTimeLapse) fields() []field {
	return []field{
		{"payloadPositionIndex", &a.PayloadPositionIndex},
		{"useGlobalPayloadLensIndex", &a.UseGlobalPayloadLensIndex},
		{"payloadLensIndex", &a.PayloadLensIndex},
		{"minShootInterval", &a.MinShootInterval},
	}
}

type StopTimeLapse struct {
	PayloadPositionIndex int
	PayloadLensIndex     string
}

func NewStopTimeLapse(lens string) *StopTimeLapse {
	return &StopTimeLapse{PayloadLensIndex: lens}
}

func (*StopTimeLapse) Func() string { return "stopTimeLapse" }

func (a *StopTimeLapse) fields() []field {
	return []field{
		{"payloadPositionIndex", &a.PayloadPositionIndex},
		{"payloadLensIndex", &a.PayloadLensIndex},
	}
}

// GimbalRotate turns the gimbal to absolute angles relative to the
// aircraft heading.
type GimbalRotate struct {
	HeadingYawBase       string
	RotateMode           string
	PitchEnable          bool
	PitchAngle           float64
	RollEnable           bool
	RollAngle            float64
	YawEnable            bool
	YawAngle             float64
	TimeEnable           bool
	Time                 float64
	PayloadPositionIndex int
}

// NewGimbalPitch pitches the gimbal to angle degrees. A positive rotate
// time enables timed rotation.
func NewGimbalPitch(angle, rotateTime float64) *GimbalRotate {
	return &GimbalRotate{
		HeadingYawBase: "aircraft",
		RotateMode:     "absoluteAngle",
		PitchEnable:    true,
		PitchAngle:     angle,
		TimeEnable:     rotateTime > 0,
		Time:           rotateTime,
	}
}

func (*GimbalRotate) Func() string { return "gimbalRotate" }

func (a *GimbalRotate) fields() []field {
	return []field{
		{"gimbalHeadingYawBase", &a.HeadingYawBase},
		{"gimbalRotateMode", &a.RotateMode},
		{"gimbalPitchRotateEnable", &a.PitchEnable},
		{"gimbalPitchRotateAngle", &a.PitchAngle},
		{"gimbalRollRotateEnable", &a.RollEnable},
		{"gimbalRollRotateAngle", &a.RollAngle},
		{"gimbalYawRotateEnable", &a.YawEnable},
		{"gimbalYawRotateAngle", &a.YawAngle},
		{"gimbalRotateTimeEnable", &a.TimeEnable},
		{"gimbalRotateTime", &a.Time},
		{"payloadPositionIndex", &a.PayloadPositionIndex},
	}
}

type Hover struct {
	Time float64
}

func (*Hover) Func() string { return "hover" }

func (a *Hover) fields() []field {
	return []field{{"hoverTime", &a.Time}}
}

// AircraftCalibration flies the IMU calibration pattern.
type AircraftCalibration struct {
	Heading  float64
	Times    int
	Distance float64
}

func NewAircraftCalibration() *AircraftCalibration {
	return &AircraftCalibration{Times: 3, Distance: 30}
}

func (*AircraftCalibration) Func() string { return "aircraftCalibration" }

func (a *AircraftCalibration) fields() []field {
	return []field{
		{"calibrationHeading", &a.Heading},
		{"calibrationTimes", &a.Times},
		{"calibrationDistance", &a.Distance},
	}
}

const (
	RecordStart = "startRecord"
	RecordStop  = "stopRecord"
)

type RecordPointCloud struct {
	Operate              string
	PayloadPositionIndex int
}

func NewRecordPointCloud(operate string) *RecordPointCloud {
	return &RecordPointCloud{Operate: operate}
}

func (*RecordPointCloud) Func() string { return "recordPointCloud" }

func (a *RecordPointCloud) fields() []field {
	return []field{
		{"recordPointCloudOperate", &a.Operate},
		{"payloadPositionIndex", &a.PayloadPositionIndex},
	}
}

// Zoom sets the focal length in mm, or the focal factor when
// UseFocalFactor is set.
type Zoom struct {
	FocalLength          float64
	UseFocalFactor       bool
	FocalFactor          float64
	PayloadPositionIndex int
}

func (*Zoom) Func() string { return "zoom" }

func (a *Zoom) fields() []field {
	fs := []field{
		{"focalLength", &a.FocalLength},
		{"isUseFocalFactor", &a.UseFocalFactor},
	}
	if a.UseFocalFactor {
		fs = append(fs, field{"focalFactor", &a.FocalFactor})
	}
	return append(fs, field{"payloadPositionIndex", &a.PayloadPositionIndex})
}

// RotateYaw turns the aircraft to a heading in (-180, 180].
type RotateYaw struct {
	Heading  float64
	PathMode string
}

// NewRotateYaw maps angle (degrees clockwise from north) into the DJI
// heading range.
func NewRotateYaw(angle float64) *RotateYaw {
	return &RotateYaw{Heading: math.Round(geo.NormalizeAngle(angle)), PathMode: "clockwise"}
}

func (*RotateYaw) Func() string { return "rotateYaw" }

func (a *RotateYaw) fields() []field {
	return []field{
		{"aircraftHeading", &a.Heading},
		{"aircraftPathMode", &a.PathMode},
	}
}

type Focus struct {
	X                    float64
	Y                    float64
	RegionWidth          float64
	RegionHeight         float64
	IsPointFocus         bool
	IsInfiniteFocus      bool
	PayloadPositionIndex int
}

func NewFocus() *Focus {
	return &Focus{X: 0.25, Y: 0.25, RegionWidth: 0.5, RegionHeight: 0.5}
}

func (*Focus) Func() string { return "focus" }

func (a *Focus) fields() []field {
	return []field{
		{"focusX", &a.X},
		{"focusY", &a.Y},
		{"focusRegionWidth", &a.RegionWidth},
		{"focusRegionHeight", &a.RegionHeight},
		{"isPointFocus", &a.IsPointFocus},
		{"isInfiniteFocus", &a.IsInfiniteFocus},
		{"payloadPositionIndex", &a.PayloadPositionIndex},
	}
}

// OrientedShoot takes a photo with the gimbal and aircraft turned to the
// given angles.
type OrientedShoot struct {
	PayloadPositionIndex      int
	PayloadLensIndex          string
	UseGlobalPayloadLensIndex bool
	FocusX                    float64
	FocusY                    float64
	FocusRegionWidth          float64
	FocusRegionHeight         float64
	FocalLength               float64
	GimbalPitch               float64
	GimbalRoll                float64
	GimbalYaw                 float64
	AircraftHeading           float64
	AccurateFrameValid        bool
	TargetAngle               float64
	UUID                      string
	ImageWidth                int
	ImageHeight               int
	AFPos                     int
	GimbalPort                int
	CameraType                int
	FilePath                  string
	FileSize                  int
	FileSuffix                string
	PhotoMode                 string
}

// NewOrientedShoot shoots through the zoom lens at pitch degrees with the
// aircraft and gimbal yawed to heading.
func NewOrientedShoot(heading, pitch, focalLength float64) *OrientedShoot {
	h := geo.NormalizeAngle(util.Round(heading, 1))
	return &OrientedShoot{
		PayloadLensIndex:  "zoom",
		FocusX:            0.25,
		FocusY:            0.25,
		FocusRegionWidth:  0.5,
		FocusRegionHeight: 0.5,
		FocalLength:       focalLength,
		GimbalPitch:       util.Round(pitch, 1),
		GimbalYaw:         h,
		AircraftHeading:   h,
		UUID:              uuid.NewString(),
		CameraType:        orientedCameraZoom,
		PhotoMode:         "normalPhoto",
	}
}

func (*OrientedShoot) Func() string { return "orientedShoot" }

func (a *OrientedShoot) fields() []field {
	return []field{
		{"payloadPositionIndex", &a.PayloadPositionIndex},
		{"payloadLensIndex", &a.PayloadLensIndex},
		{"useGlobalPayloadLensIndex", &a.UseGlobalPayloadLensIndex},
		{"focusX", &a.FocusX},
		{"focusY", &a.FocusY},
		{"focusRegionWidth", &a.FocusRegionWidth},
		{"focusRegionHeight", &a.FocusRegionHeight},
		{"focalLength", &a.FocalLength},
		{"gimbalPitchRotateAngle", &a.GimbalPitch},
		{"gimbalRollRotateAngle", &a.GimbalRoll},
		{"gimbalYawRotateAngle", &a.GimbalYaw},
		{"aircraftHeading", &a.AircraftHeading},
		{"accurateFrameValid", &a.AccurateFrameValid},
		{"targetAngle", &a.TargetAngle},
		{"actionUUID", &a.UUID},
		{"imageWidth", &a.ImageWidth},
		{"imageHeight", &a.ImageHeight},
		{"AFPos", &a.AFPos},
		{"gimbalPort", &a.GimbalPort},
		{"orientedCameraType", &a.CameraType},
		{"orientedFilePath", &a.FilePath},
		{"orientedFileSize", &a.FileSize},
		{"orientedFileSuffix", &a.FileSuffix},
		{"orientedPhotoMode", &a.PhotoMode},
	}
}

// Kinds returns one action of every kind with its default parameters, in
// the order they are listed to users.
func Kinds() []Action {
	return []Action{
		&TakePhoto{},
		NewStartContinuousShooting(lensVisibleNarrowBand),
		NewStopContinuousShooting(lensVisibleNarrowBand),
		NewStartTimeLapse(lensVisibleNarrowBand),
		NewStopTimeLapse(lensVisibleNarrowBand),
		NewGimbalPitch(nadirPitch, gimbalTime),
		&Hover{Time: obliqueHover},
		NewAircraftCalibration(),
		NewRecordPointCloud(RecordStart),
		&Zoom{FocalLength: 24},
		NewRotateYaw(0),
		NewFocus(),
		NewOrientedShoot(0, nadirPitch, defaultZoomFocalLength),
	}
}
