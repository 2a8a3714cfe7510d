package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewZerolog returns a console formatted zerolog.Logger writing to out,
// used by the catalogue and metrics managers.
func NewZerolog(out io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}
