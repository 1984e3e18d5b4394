// Package logger provides the diagnostic logger. Everything it writes goes to
// stderr; stdout is reserved for the machine-readable result line.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldRunID      = "run_id"
	FieldVersion    = "version"
	FieldStorePath  = "store_path"
	FieldDir        = "dir"
	FieldFile       = "file"
	FieldPolarity   = "polarity"
	FieldFormat     = "format"
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
)

// Verbosity levels for the -v flag count.
const (
	VerbosityUser  = 0 // results and errors only
	VerbosityInfo  = 1 // + per-file progress
	VerbosityDebug = 2 // + store and config details
)

var (
	// Logger is the global logger. It is a no-op until Initialize is called.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize selected the JSON encoder.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Options configures Initialize.
type Options struct {
	Verbosity int
	JSON      bool
	// Output defaults to stderr.
	Output io.Writer
}

// Initialize sets up the global logger.
func Initialize(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	Logger = l
	JSONOutput = opts.JSON
	return nil
}

// New builds a logger without touching the global one.
func New(opts Options) (*zap.SugaredLogger, error) {
	var out zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if opts.Output != nil {
		out = zapcore.AddSync(opts.Output)
	}
	level := VerbosityToLevel(opts.Verbosity)

	if opts.JSON {
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		return zap.New(zapcore.NewCore(enc, out, level)).Sugar(), nil
	}
	return zap.New(zapcore.NewCore(newPlainEncoder(), out, level)).Sugar(), nil
}

// VerbosityToLevel maps the -v count to a zap level.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// ComponentLogger returns a named logger for a specific component.
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Sync flushes the global logger, ignoring the errors stderr returns on some platforms.
func Sync() {
	_ = Logger.Sync()
}
