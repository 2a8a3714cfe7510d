package mission

import (
	"fmt"
	"log/slog"

	"github.com/dronefield/flightplanner/internal/geo"
)

// DefaultCalibrationInterval is the flight time in seconds between two IMU
// calibrations.
const DefaultCalibrationInterval = 600.0

// InsertCalibrations marks waypoints for IMU calibration. The launch
// waypoint always calibrates; afterwards a waypoint calibrates once the
// flight time accumulated since the previous calibration reaches interval.
// The last waypoint never calibrates. A waypoint with a point cloud group
// gets the calibration as the first action of that group, any other a
// reachPoint group of its own. It returns the calibrated waypoints.
func InsertCalibrations(wps []*Waypoint, interval float64, overrides Overrides, logger *slog.Logger) ([]*Waypoint, error) {
	if len(wps) == 0 {
		return nil, nil
	}
	if interval <= 0 {
		interval = DefaultCalibrationInterval
	}

	calibrated := []*Waypoint{wps[0]}
	addCalibration(wps[0], overrides, logger)

	var elapsed float64
	for i := 1; i < len(wps)-1; i++ {
		d, err := geo.SegmentDistance3D(wps[i-1], wps[i])
		if err != nil {
			return nil, fmt.Errorf("calibration at waypoint %d: %w", i, err)
		}
		if v := wps[i-1].Velocity; v > 0 {
			elapsed += d / v
		}
		if elapsed >= interval {
			addCalibration(wps[i], overrides, logger)
			calibrated = append(calibrated, wps[i])
			elapsed = 0
		}
	}
	return calibrated, nil
}

func addCalibration(wp *Waypoint, overrides Overrides, logger *slog.Logger) {
	action := overrides.Apply(NewAircraftCalibration(), logger)
	wp.Calibrate = true
	if g := pointCloudGroup(wp); g != nil {
		g.Prepend(action)
		return
	}
	NewGroup(wp, TriggerReachPoint, action)
}
