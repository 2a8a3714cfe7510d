// Package logging sets up the process loggers: slog for the planner
// itself and zerolog for the catalogue and metrics managers.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

const sessionLayout = "20060102_150405"

// SessionLogPath is the log file of a CLI session started at start.
func SessionLogPath(logsDir, app string, start time.Time) string {
	return sessionFile(logsDir, app, "session", "log", start)
}

// MetricsBackupPath is the gzip line protocol file that collects mission
// metrics of the session while the metrics server is unreachable.
func MetricsBackupPath(logsDir, app string, start time.Time) string {
	return sessionFile(logsDir, app, "metrics", "lp.gz", start)
}

func sessionFile(logsDir, app, kind, ext string, start time.Time) string {
	name := fmt.Sprintf("%s.%s.%s.%s", app, kind, start.UTC().Format(sessionLayout), ext)
	return filepath.Join(logsDir, name)
}
