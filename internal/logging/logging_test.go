package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionPaths(t *testing.T) {
	start := time.Date(2026, 2, 12, 22, 38, 36, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name    string
		logsDir string
		build   func(string, string, time.Time) string
		want    string
	}{
		{"session log", "logs", SessionLogPath, filepath.Join("logs", "flightplanner.session.20260212_213836.log")},
		{"metrics backup", "logs", MetricsBackupPath, filepath.Join("logs", "flightplanner.metrics.20260212_213836.lp.gz")},
		{"empty dir", "", SessionLogPath, "flightplanner.session.20260212_213836.log"},
		{"nested dir", filepath.Join("/var", "log", "uav"), MetricsBackupPath,
			filepath.Join("/var", "log", "uav", "flightplanner.metrics.20260212_213836.lp.gz")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.build(tt.logsDir, "flightplanner", start))
		})
	}
}
