package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dronefield/flightplanner/internal/config"
	"github.com/dronefield/flightplanner/internal/logging"
)

const appName = "flightplanner"

// app holds the process wide loggers of one invocation.
type app struct {
	slogManager *logging.SlogManager
	logger      *slog.Logger
	zlog        zerolog.Logger
	logFile     *os.File
	start       time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{slogManager: logging.NewSlogManager(), start: time.Now()}

	root := &cobra.Command{
		Use:   appName,
		Short: "Generate DJI waypoint missions for mapping flights",
		Long: `flightplanner turns a plot definition and a sensor profile into a DJI
WPML mission archive (KMZ) with flight lines, camera or LiDAR actions and
optional terrain following from a surface model.

Settings are taken from flags, FLIGHTPLANNER_* environment variables,
flightplanner.cfg.json in the config directory and the sensor profile,
in that order.`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildDate),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config-dir")
			if err := config.Load(dir); err != nil {
				return err
			}
			return a.setupLogging()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.String("config-dir", ".", "directory holding "+config.FileName)
	pf.String("log-level", "", "log level: debug, info, warn or error (default info)")
	pf.String("logs-dir", "", "write a log file per run to this directory")
	pf.String("sensors-file", "", "YAML file with additional sensor profiles")
	mustBind("logLevel", pf.Lookup("log-level"))
	mustBind("logsDir", pf.Lookup("logs-dir"))
	mustBind("sensorsFile", pf.Lookup("sensors-file"))

	root.AddCommand(
		newGenerateCmd(a),
		newSensorsCmd(a),
		newActionsCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) setupLogging() error {
	level := viper.GetString("logLevel")

	var file io.Writer
	if dir := viper.GetString("logsDir"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create logs directory: %w", err)
		}
		f, err := os.OpenFile(logging.SessionLogPath(dir, appName, a.start), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		file = f
	}

	var remote io.WriteCloser
	var remoteErr error
	if viper.GetBool("graylog.enabled") {
		w, err := logging.DialGraylog(viper.GetString("graylog.address"), appName)
		if err != nil {
			remoteErr = err
		} else {
			remote = w
		}
	}

	a.slogManager.Setup(file, level, remote)
	a.logger = a.slogManager.Logger()
	a.zlog = logging.NewZerolog(a.slogManager.Output(), level)
	if remoteErr != nil {
		a.logger.Warn("graylog sink disabled", "error", remoteErr)
	}
	return nil
}

func (a *app) close() error {
	err := a.slogManager.Close()
	if a.logFile != nil {
		if cerr := a.logFile.Close(); err == nil {
			err = cerr
		}
		a.logFile = nil
	}
	return err
}

// mustBind binds a flag to a config key. Lookup returns nil only for a
// misspelled flag name.
func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}
