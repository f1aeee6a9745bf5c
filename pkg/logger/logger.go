// Package logger builds the structured loggers used across bitforge's
// engine, storage, index and transport layers. It exists so every
// subsystem configures zap the same way instead of each owning its own
// encoder/level setup.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger for the given service name (e.g. "engine",
// "kvs-server"). Output goes to stderr so stdout stays free for command
// output the CLIs print to the user.
func New(service string) *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		levelFromEnv(),
	)

	return zap.New(core).Named(service).Sugar()
}

// NewNop returns a logger that discards everything, for tests and for
// embedders that don't want bitforge writing to stderr.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// levelFromEnv reads BITFORGE_LOG_LEVEL (debug|info|warn|error), defaulting
// to info when unset or unrecognized.
func levelFromEnv() zapcore.Level {
	switch os.Getenv("BITFORGE_LOG_LEVEL") {
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
