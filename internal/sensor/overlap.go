package sensor

import (
	"log/slog"
	"math"
)

// DefaultTriggerInterval is used when the trigger interval cannot be
// derived from the profile.
const DefaultTriggerInterval = 1.0

func tanHalf(fovDeg float64) float64 {
	return math.Tan(fovDeg / 2 * math.Pi / 180)
}

// PathSpacing is the distance between neighbouring flight lines for a side
// overlap fraction at the given altitude, using the empirical regression
// spacing = (c1 * overlap% + c2) * altitude.
func PathSpacing(coefficients []float64, side, altitude float64) float64 {
	c1, c2 := coefficients[0], coefficients[1]
	return (c1*side*100 + c2) * altitude
}

// SideOverlapFromSpacing inverts PathSpacing for a user supplied spacing.
func SideOverlapFromSpacing(coefficients []float64, spacing, altitude float64) float64 {
	c1, c2 := coefficients[0], coefficients[1]
	return (spacing/altitude - c2) / c1 / 100
}

// PhotoTriggerInterval is the time between photos in seconds for the front
// overlap fraction. Without a field of view or with a non-positive velocity
// it falls back to DefaultTriggerInterval.
func PhotoTriggerInterval(front, vfov, altitude, velocity float64, logger *slog.Logger) float64 {
	if vfov <= 0 || velocity <= 0 || math.IsNaN(velocity) {
		warn(logger, "cannot derive photo trigger interval, using default",
			"vfov", vfov, "velocity", velocity, "default", DefaultTriggerInterval)
		return DefaultTriggerInterval
	}
	return (2 - front) * tanHalf(vfov) * altitude / velocity
}

// TriggerDistance is the distance between photos in meters: the unshared
// part of the along-track image footprint.
func TriggerDistance(front, vfov, altitude float64, logger *slog.Logger) float64 {
	if vfov <= 0 {
		warn(logger, "cannot derive photo trigger distance, using default",
			"vfov", vfov, "default", DefaultTriggerInterval)
		return DefaultTriggerInterval
	}
	return (1 - front) * 2 * tanHalf(vfov) * altitude
}

// Overlaps are the four overlap percentages of a DJI mapping template.
type Overlaps struct {
	LidarH  float64
	LidarW  float64
	CameraH float64
	CameraW float64
}

// OverlapPair returns the template overlaps. side and front are
// percentages. For LiDAR payloads the camera side overlap follows from the
// line spacing and the secondary camera field of view.
func OverlapPair(kind Kind, secondaryHFOV, altitude, spacing, side, front float64, logger *slog.Logger) Overlaps {
	if kind.IsCamera() {
		return Overlaps{LidarH: front, LidarW: side, CameraH: front, CameraW: side}
	}

	cameraW := side
	if secondaryHFOV > 0 && altitude > 0 {
		cameraW = math.Round((2 - spacing/(tanHalf(secondaryHFOV)*altitude)) * 100)
	} else {
		warn(logger, "missing secondary field of view, using lidar side overlap for the camera",
			"side", side)
	}
	return Overlaps{LidarH: front, LidarW: side, CameraH: front, CameraW: cameraW}
}

func warn(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(msg, args...)
}
