package util

import (
	"io"
	"os"
	"strings"
	"time"

	stdlog "log"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger = zerolog.Logger

// LogLevel represents available log levels
type LogLevel = int

// Log levels
const (
	TraceLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

var zerologLevels = map[LogLevel]zerolog.Level{
	TraceLevel: zerolog.TraceLevel,
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// toZerolog maps lvl onto zerolog, unknown levels become info
func toZerolog(lvl LogLevel) zerolog.Level {
	if zl, ok := zerologLevels[lvl]; ok {
		return zl
	}
	return zerolog.InfoLevel
}

// InitializeLogger sets up the global logger on stderr so command output on
// stdout stays clean.
func InitializeLogger(level LogLevel) {
	InitializeLoggerTo(os.Stderr, level)
}

// InitializeLoggerTo is [InitializeLogger] with an explicit destination.
// Colors are only used when w is a terminal.
func InitializeLoggerTo(w io.Writer, level LogLevel) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(toZerolog(level))

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: noColor}

	ctx := zerolog.New(output).With().Timestamp()
	if level == TraceLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	log.Debug().Msg("Logger initialized")
}

// GetLogger returns a configured logger for a specific component
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// stdlogWriter receives lines of a stdlog.Logger created with Lshortfile and
// re-emits them through zerolog with the call location in a "source" field.
type stdlogWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (w stdlogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	var source string
	if idx := strings.Index(msg, ": "); idx > 0 && strings.Contains(msg[:idx], ".go:") {
		source, msg = msg[:idx], msg[idx+2:]
	}
	level := w.level
	// go-fuse request/response dumps
	if strings.HasPrefix(msg, "rx ") || strings.HasPrefix(msg, "tx ") {
		level = zerolog.TraceLevel
	}
	event := w.logger.WithLevel(level)
	if source != "" {
		event = event.Str("source", source)
	}
	event.Msg(msg)
	return len(p), nil
}

// NewLogLogger returns a stdlog.Logger for libraries that want one, such as
// the FUSE server. Lines are logged at lvl for component, except protocol
// dumps which go to trace.
func NewLogLogger(component string, lvl LogLevel) *stdlog.Logger {
	writer := stdlogWriter{logger: GetLogger(component), level: toZerolog(lvl)}
	return stdlog.New(writer, "", stdlog.Lshortfile)
}
