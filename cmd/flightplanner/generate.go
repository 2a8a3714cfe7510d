package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/database"
	"github.com/dronefield/flightplanner/internal/influx"
	"github.com/dronefield/flightplanner/internal/logging"
	"github.com/dronefield/flightplanner/internal/mission"
	"github.com/dronefield/flightplanner/internal/sensor"
	"github.com/dronefield/flightplanner/internal/util"
)

type flagKind int

const (
	kindString flagKind = iota
	kindFloat
	kindInt
	kindBool
)

// missionFlag maps a command line flag to its config key. Defaults live in
// config.SetDefaults so that unset profile values stay unset.
type missionFlag struct {
	name  string
	key   string
	kind  flagKind
	usage string
}

var missionFlags = []missionFlag{
	{"latlon", "latlon", kindString, "plot center as lat,lon (first corner with --latlon2)"},
	{"latlon2", "latlon2", kindString, "second point as lat,lon; the plot spans both points"},
	{"destination", "destination", kindString, "output KMZ path, or the slot directory with --slot"},
	{"sensor", "sensor", kindString, "sensor profile (default m3m)"},
	{"gsd", "gsd", kindFloat, "ground sampling distance in cm"},
	{"altitude", "altitude", kindFloat, "flight altitude in m, overrides --gsd"},
	{"width", "width", kindFloat, "plot width in m"},
	{"height", "height", kindFloat, "plot height in m"},
	{"area", "area", kindFloat, "plot area in m² for missing dimensions (default 10000)"},
	{"sideoverlap", "sideOverlap", kindFloat, "side overlap fraction"},
	{"frontoverlap", "frontOverlap", kindFloat, "front overlap fraction"},
	{"spacing", "spacing", kindFloat, "flight line spacing in m, overrides the side overlap"},
	{"buffer", "buffer", kindFloat, "grid margin beyond the plot in m"},
	{"flightspeed", "flightSpeed", kindFloat, "flight speed in m/s"},
	{"transitionspeed", "transitionSpeed", kindFloat, "transition speed in m/s (default 15)"},
	{"tosecurealt", "toSecureAlt", kindFloat, "takeoff security height in m (default 85)"},
	{"wpturnmode", "wpTurnMode", kindString, "waypoint turn mode"},
	{"gridmode", "gridMode", kindString, "grid pattern: lines, simple or double (default lines)"},
	{"imgsamplingmode", "imgSamplingMode", kindString, "photo trigger: distance or time (default distance)"},
	{"plotangle", "plotAngle", kindFloat, "plot rotation in degrees (default 90)"},
	{"lidar-returns", "lidarReturns", kindInt, "LiDAR return count 0-5"},
	{"sampling-rate", "samplingRate", kindInt, "LiDAR sampling rate in Hz"},
	{"scanning-mode", "scanningMode", kindString, "LiDAR scanning mode"},
	{"altitudetype", "altitudeType", kindString, "altitude mode: rtf, constant or dsm (default rtf)"},
	{"dsm", "dsm.path", kindString, "surface model GeoTIFF for --altitudetype dsm"},
	{"datum", "dsm.datum", kindString, "surface model datum: ellipsoid or msl (default ellipsoid)"},
	{"safety-buffer", "dsm.safetyBuffer", kindFloat, "corridor half width in m (default 20)"},
	{"max-segment-length", "maxSegmentLength", kindFloat, "segment length in m above which DSM missions are split (default 20)"},
	{"embed-dsm", "dsm.embed", kindBool, "copy the surface model into the archive"},
	{"takeoff", "takeoff", kindString, "takeoff point as lat,lon; altitudes become relative to it"},
	{"calibrateimu", "calibrateImu", kindBool, "insert IMU calibration flights"},
	{"calibration-interval", "calibrationInterval", kindFloat, "seconds of flight between calibrations (default 600)"},
	{"poi", "poi.path", kindString, "GeoJSON points of interest; generates a photo mission instead of a plot"},
	{"photo-altitude", "poi.photoAltitude", kindFloat, "photo height above ground in m (default 10)"},
	{"min-flight-altitude", "poi.minFlightAltitude", kindFloat, "lowest transit altitude of photo missions in m (default 20)"},
	{"photos", "poi.photos", kindInt, "photos per point of interest (default 1)"},
	{"photo-radius", "poi.radius", kindFloat, "distance of the photo stops from their point in m, 0 shoots from above"},
	{"zoom", "poi.zoom", kindFloat, "zoom focal factor set on the approach, 0 keeps the lens"},
	{"preview", "preview", kindBool, "write a KML preview of the flight path"},
	{"slot", "slot", kindBool, "write the DJI Pilot mission slot layout"},
}

func addMissionFlags(fs *pflag.FlagSet) {
	for _, f := range missionFlags {
		switch f.kind {
		case kindString:
			fs.String(f.name, "", f.usage)
		case kindFloat:
			fs.Float64(f.name, 0, f.usage)
		case kindInt:
			fs.Int(f.name, 0, f.usage)
		case kindBool:
			fs.Bool(f.name, false, f.usage)
		}
		mustBind(f.key, fs.Lookup(f.name))
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a mission archive",
		Long: `Generate a DJI mission archive for a rectangular plot, or a photo
mission over the points of interest of a GeoJSON file.

Examples:
  flightplanner generate --latlon 47.0,8.0 --destination plot --width 100 --height 100
  flightplanner generate --latlon 47.0,8.0 --latlon2 47.001,8.002 --destination plot --sensor l2
  flightplanner generate --latlon 47.0,8.0 --destination plot --altitudetype dsm --dsm plot.tif
  flightplanner generate --poi trees.geojson --destination trees --photos 4 --photo-radius 15 --zoom 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd)
		},
	}
	addMissionFlags(cmd.Flags())
	return cmd
}

func (a *app) generate(cmd *cobra.Command) error {
	catalogue, err := sensor.LoadCatalogue(viper.GetString("sensorsFile"))
	if err != nil {
		return err
	}
	s, err := config.Resolve(config.InputFromViper(), catalogue, a.logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	s.Print(out)

	m := mission.New(s, nil)
	run := strings.ToUpper(m.ID.String()[:8])
	m.WithLogger(a.slogManager.ForRun(run))
	if err := m.Run(); err != nil {
		return err
	}
	path, err := m.Write()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Mission written to %s (distance %s m, duration %s s)\n",
		path, util.FormatNumber(util.Round(m.Distance, 1)), util.FormatNumber(util.Round(m.Duration, 1)))

	a.publish(cmd.Context(), m.Summary())
	return nil
}

// publish records the mission in the catalogue and the metrics sink. Both
// are optional and never fail the run.
func (a *app) publish(ctx context.Context, sum mission.Summary) {
	if ctx == nil {
		ctx = context.Background()
	}

	if viper.GetBool("db.enabled") {
		db := database.NewManager(config.GetDBConfig(), a.zlog)
		err := db.Connect()
		if err == nil {
			err = db.Setup()
		}
		if err == nil {
			err = db.Record(sum)
		}
		if err != nil {
			a.zlog.Warn().Err(err).Str("id", sum.ID).Msg("Mission not recorded in catalogue")
		}
		a.closeSink("catalogue", db)
	}

	cfg := config.GetInfluxConfig()
	if cfg.Enabled {
		backup := logging.MetricsBackupPath(viper.GetString("logsDir"), appName, a.start)
		metrics := influx.NewManager(cfg, a.zlog, backup)
		err := metrics.Connect(ctx)
		if err == nil {
			err = metrics.WriteMission(ctx, sum)
		}
		if err != nil {
			a.zlog.Warn().Err(err).Str("id", sum.ID).Msg("Mission metrics not published")
		}
		a.closeSink("metrics", metrics)
	}
}

// closeSink closes a publish sink, reporting a failure as a warning.
func (a *app) closeSink(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		a.zlog.Warn().Err(err).Str("sink", name).Msg("Closing sink")
	}
}
