// Package database keeps the catalogue of generated missions in Postgres
// or a local SQLite file.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/mission"
)

var ErrNotConnected = errors.New("catalogue not connected")

// MissionRecord is one generated mission.
type MissionRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	CreatedAt    time.Time `gorm:"index"`
	Path         string
	Sensor       string `gorm:"index;size:32"`
	Pattern      string `gorm:"size:16"`
	AltitudeMode string `gorm:"size:16"`
	Lon          float64
	Lat          float64
	Altitude     float64
	Waypoints    int
	Distance     float64
	Duration     float64
	Summary      datatypes.JSON
}

// TableName pins the table name.
func (MissionRecord) TableName() string { return "missions" }

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	Config          config.DBConfig
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(cfg config.DBConfig, log zerolog.Logger) *Manager {
	return &Manager{Config: cfg, Logger: log}
}

// Connect opens the configured database. A Postgres catalogue that cannot
// be reached falls back to the local SQLite file.
func (m *Manager) Connect() error {
	var err error
	m.IsValid = false

	if m.Config.Type == "postgres" {
		m.DB, err = m.GetPostgresDB()
		if err == nil {
			if m.SqlDB, err = m.DB.DB(); err == nil {
				err = m.SqlDB.Ping()
			}
		}
		if err == nil {
			m.Logger.Info().Str("host", m.Config.Host).Msg("Connected to database")
			m.SqlDB.SetMaxOpenConns(4)
			m.IsValid = true
			return nil
		}
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
	}

	m.ShouldSaveLocal = true
	m.DB, err = m.GetSqliteDB(m.Config.Path)
	if err != nil {
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	if m.SqlDB, err = m.DB.DB(); err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := m.SqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate SQLite connection: %w", err)
	}
	m.IsValid = true
	return nil
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		m.Config.Host,
		m.Config.Port,
		m.Config.Username,
		m.Config.Password,
		m.Config.Database,
	)

	m.Logger.Debug().Str("host", m.Config.Host).Str("database", m.Config.Database).
		Msg("Connecting to Postgres DB")

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to the SQLite file at path.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path not set")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// Setup migrates the catalogue schema.
func (m *Manager) Setup() error {
	if !m.IsValid {
		return ErrNotConnected
	}
	if err := m.DB.AutoMigrate(&MissionRecord{}); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.Logger.Debug().Msg("Database setup complete")
	return nil
}

// NewRecord converts a mission summary into its catalogue row.
func NewRecord(s mission.Summary) (MissionRecord, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return MissionRecord{}, fmt.Errorf("encode summary: %w", err)
	}
	return MissionRecord{
		ID:           s.ID,
		CreatedAt:    s.Created,
		Path:         s.Path,
		Sensor:       s.Sensor,
		Pattern:      s.Pattern,
		AltitudeMode: s.AltitudeMode,
		Lon:          s.Lon,
		Lat:          s.Lat,
		Altitude:     s.Altitude,
		Waypoints:    s.Waypoints,
		Distance:     s.Distance,
		Duration:     s.Duration,
		Summary:      datatypes.JSON(raw),
	}, nil
}

// Record stores the summary of a generated mission.
func (m *Manager) Record(s mission.Summary) error {
	if !m.IsValid {
		return ErrNotConnected
	}
	rec, err := NewRecord(s)
	if err != nil {
		return err
	}
	if err := m.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("record mission %s: %w", s.ID, err)
	}
	m.Logger.Debug().Str("id", s.ID).Msg("Mission recorded")
	return nil
}

// List returns the most recent missions, newest first. sensor filters by
// profile name when not empty; limit <= 0 returns all.
func (m *Manager) List(sensor string, limit int) ([]MissionRecord, error) {
	if !m.IsValid {
		return nil, ErrNotConnected
	}
	q := m.DB.Order("created_at desc")
	if sensor != "" {
		q = q.Where("sensor = ?", sensor)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []MissionRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	return out, nil
}

// Get returns the mission with the given id.
func (m *Manager) Get(id string) (MissionRecord, error) {
	var rec MissionRecord
	if !m.IsValid {
		return rec, ErrNotConnected
	}
	if err := m.DB.First(&rec, "id = ?", id).Error; err != nil {
		return rec, fmt.Errorf("get mission %s: %w", id, err)
	}
	return rec, nil
}

// DecodeSummary returns the full summary stored with rec.
func (rec MissionRecord) DecodeSummary() (mission.Summary, error) {
	var s mission.Summary
	if err := json.Unmarshal(rec.Summary, &s); err != nil {
		return s, fmt.Errorf("decode summary of %s: %w", rec.ID, err)
	}
	return s, nil
}

// Close closes the underlying connection.
func (m *Manager) Close() error {
	m.IsValid = false
	if m.SqlDB == nil {
		return nil
	}
	err := m.SqlDB.Close()
	m.SqlDB = nil
	return err
}
