// Package influx publishes the metrics of generated missions to InfluxDB,
// falling back to a gzip compressed line protocol file when the server is
// unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/mission"
)

// MissionMeasurement is the measurement name of mission points.
const MissionMeasurement = "mission"

var ErrDisabled = errors.New("influx is disabled")

// Manager handles the InfluxDB connection and the backup writer.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPIBlocking
	BackupWriter *gzip.Writer
	IsValid      bool
	Config       config.InfluxConfig
	Logger       zerolog.Logger
	BackupPath   string

	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Config:     cfg,
		Logger:     log,
		BackupPath: backupPath,
	}
}

func (m *Manager) url() string {
	return fmt.Sprintf("%s://%s:%s", m.Config.Protocol, m.Config.Host, m.Config.Port)
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points go to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.Config.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(m.url(), m.Config.Token,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(5))

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB not reachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.Writer = m.Client.WriteAPIBlocking(m.Config.Org, m.Config.Bucket)
	m.IsValid = true
	m.Logger.Info().Str("url", m.url()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if m.BackupPath == "" {
		return errors.New("influx backup path not set")
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.Client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.Config.Org)
	if err != nil {
		m.Logger.Info().Str("org", m.Config.Org).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.Config.Org); err != nil {
			return fmt.Errorf("create organization %s: %w", m.Config.Org, err)
		}
	}

	buckets := m.Client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.Config.Bucket); err == nil {
		return nil
	}
	m.Logger.Info().Str("bucket", m.Config.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, m.Config.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 365,
	})
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", m.Config.Bucket, err)
	}
	return nil
}

// MissionPoint converts a mission summary into a point.
func MissionPoint(s mission.Summary) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(MissionMeasurement,
		map[string]string{
			"sensor":       s.Sensor,
			"pattern":      s.Pattern,
			"altitudeMode": s.AltitudeMode,
		},
		map[string]any{
			"id":           s.ID,
			"lon":          s.Lon,
			"lat":          s.Lat,
			"width":        s.Width,
			"height":       s.Height,
			"altitude":     s.Altitude,
			"spacing":      s.Spacing,
			"flightSpeed":  s.FlightSpeed,
			"waypoints":    s.Waypoints,
			"actionGroups": s.ActionGroups,
			"calibrations": s.Calibrations,
			"distance":     s.Distance,
			"duration":     s.Duration,
		},
		s.Created,
	)
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(ctx context.Context, point *influxdb2_write.Point) error {
	if m.IsValid {
		if err := m.Writer.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("error sending data to InfluxDB: %w", err)
		}
		return nil
	}
	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteMission publishes the summary of a generated mission.
func (m *Manager) WriteMission(ctx context.Context, s mission.Summary) error {
	return m.WritePoint(ctx, MissionPoint(s))
}

// Close flushes the backup file and closes the client.
func (m *Manager) Close() error {
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}
	return errors.Join(errs...)
}
