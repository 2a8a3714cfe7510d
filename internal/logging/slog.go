package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// SlogManager owns the process logger: a console handler on stderr plus
// optional file and remote sinks.
type SlogManager struct {
	logger *slog.Logger
	output io.Writer
	remote io.Closer

	console io.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{console: os.Stderr}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes the logging system. file receives the same text
// records as the console; remote, when set, receives JSON records and is
// closed by Close.
func (m *SlogManager) Setup(file io.Writer, level string, remote io.WriteCloser) {
	opts := handlerOptions(parseLevel(level))

	handlers := []slog.Handler{slog.NewTextHandler(m.console, opts)}
	m.output = m.console
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
		m.output = io.MultiWriter(m.console, file)
	}
	m.remote = nil
	if remote != nil {
		handlers = append(handlers, slog.NewJSONHandler(remote, opts))
		m.remote = remote
	}

	m.logger = slog.New(newFanout(handlers...))
	m.logger.Debug("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// ForRun returns a logger whose records carry the run id and the time
// since the call, on every sink.
func (m *SlogManager) ForRun(run string) *slog.Logger {
	return slog.New(NewRunHandler(m.Logger().Handler(), run))
}

// Output is the local destination of the log records, for loggers that
// are not slog based.
func (m *SlogManager) Output() io.Writer {
	if m.output == nil {
		return m.console
	}
	return m.output
}

// Close releases the remote sink.
func (m *SlogManager) Close() error {
	if m.remote == nil {
		return nil
	}
	err := m.remote.Close()
	m.remote = nil
	return err
}
