// Package logger provides the structured logger shared by every bookmarksync
// component.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldRunID      = "run_id"
	FieldOperation  = "operation"
	FieldComponent  = "component"
	FieldError      = "error"
	FieldCount      = "count"
	FieldBookmarkID = "bookmark_id"
	FieldURL        = "url"
	FieldPath       = "path"
	FieldSource     = "source"
	FieldDatabase   = "database_id"
	FieldDurationMS = "duration_ms"
)

var (
	// Logger is the process-wide logger. Components receive it explicitly;
	// the global only exists for the CLI layer.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize selected the JSON encoder.
	JSONOutput bool
)

func init() {
	// No-op until Initialize runs, so early callers never hit a nil logger.
	Logger = zap.NewNop().Sugar()
}

// Initialize builds the global logger. Console output is human readable and
// goes to stderr so it never mixes with command output on stdout.
func Initialize(jsonOutput, verbose bool) error {
	JSONOutput = jsonOutput

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	var zapLogger *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.OutputPaths = []string{"stderr"}
		built, err := config.Build()
		if err != nil {
			return err
		}
		zapLogger = built
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.TimeKey = ""
		encoderConfig.CallerKey = ""
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			level,
		))
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Named returns a child of the global logger tagged with a component name.
func Named(component string) *zap.SugaredLogger {
	return Logger.With(FieldComponent, component)
}

// Cleanup flushes any buffered log entries.
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
