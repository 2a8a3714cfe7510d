package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the optional configuration file looked up in the config
// directory.
const FileName = "flightplanner.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. FLIGHTPLANNER_LOGLEVEL.
const EnvPrefix = "FLIGHTPLANNER"

// DBConfig holds the mission catalogue settings
type DBConfig struct {
	Type     string `json:"type" mapstructure:"type"`
	Path     string `json:"path" mapstructure:"path"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds the run metrics sink settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// SetDefaults registers the default of every setting that does not come
// from the sensor profile.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "")

	viper.SetDefault("sensor", "m3m")
	viper.SetDefault("sensorsFile", "")
	viper.SetDefault("area", 10000.0)
	viper.SetDefault("transitionSpeed", 15.0)
	viper.SetDefault("toSecureAlt", 85.0)
	viper.SetDefault("wpTurnMode", "toPointAndStopWithDiscontinuityCurvature")
	viper.SetDefault("gridMode", "lines")
	viper.SetDefault("imgSamplingMode", "distance")
	viper.SetDefault("plotAngle", 90.0)
	viper.SetDefault("altitudeType", "rtf")
	viper.SetDefault("calibrateImu", false)
	viper.SetDefault("calibrationInterval", 600.0)
	viper.SetDefault("maxSegmentLength", 20.0)
	viper.SetDefault("preview", false)
	viper.SetDefault("slot", false)

	viper.SetDefault("dsm.path", "")
	viper.SetDefault("dsm.datum", "ellipsoid")
	viper.SetDefault("dsm.safetyBuffer", 20.0)
	viper.SetDefault("dsm.embed", false)

	viper.SetDefault("poi.path", "")
	viper.SetDefault("poi.photoAltitude", 10.0)
	viper.SetDefault("poi.minFlightAltitude", 20.0)
	viper.SetDefault("poi.photos", 1)
	viper.SetDefault("poi.radius", 0.0)
	viper.SetDefault("poi.zoom", 0.0)

	viper.SetDefault("db.enabled", false)
	viper.SetDefault("db.type", "sqlite")
	viper.SetDefault("db.path", "./flightplanner.db")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "flightplanner")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "flightplanner")
	viper.SetDefault("influx.bucket", "missions")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load sets the defaults, enables environment overrides and reads the
// configuration file from configDir. A missing file is not an error.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDBConfig returns the catalogue settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Type:     viper.GetString("db.type"),
		Path:     viper.GetString("db.path"),
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the metrics sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}
