// logging.go — process-wide structured logging.
//
// Mirrors teranos-QNTX/logger: a single lazily-initialised *zap.Logger
// behind a sync.Once guard (spec §9 "Global process state... lazily
// initialised process-wide state behind a once-init guard"), with named
// field constants instead of ad hoc strings so every component logs
// consistently.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field name constants, same idiom as teranos-QNTX/logger/fields.go.
const (
	FieldComponent    = "component"
	FieldConnectionID = "connection_id"
	FieldObjectID     = "object_id"
	FieldMethod       = "method"
	FieldPort         = "port"
	FieldPID          = "pid"
	FieldError        = "error"
)

var (
	once   sync.Once
	global *zap.Logger
)

// Init builds the process-wide logger at the requested level. Safe to call
// more than once; only the first call takes effect (matches the "idempotent
// install" shape spec §8 requires of probe-wide state).
func Init(level string) {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		logger, err := cfg.Build()
		if err != nil {
			logger = zap.NewNop()
		}
		global = logger
	})
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L returns the process-wide logger, initializing it at info level if Init
// was never called (so library code never has to nil-check).
func L() *zap.Logger {
	Init("info")
	return global
}

// Named returns a child logger tagged with the owning component.
func Named(component string) *zap.Logger {
	return L().With(zap.String(FieldComponent, component))
}

// ObjectID is a convenience field constructor for the common object-id case.
func ObjectID(id uint64) zap.Field { return zap.Uint64(FieldObjectID, id) }

// Sync flushes any buffered log entries; call during probe shutdown.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
