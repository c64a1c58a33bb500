package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewLogger builds the process logger and installs it as the global zerolog logger.
// Extra writers (e.g. the OpenTelemetry bridge) receive every event as well.
func NewLogger(format string, level zerolog.Level, extra ...io.Writer) *zerolog.Logger {
	var out io.Writer = os.Stdout
	if format != FormatJSON {
		out = zerolog.NewConsoleWriter()
	}
	if len(extra) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{out}, extra...)...)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return &logger
}
