// Package logger provides the process-wide structured logger.
// It writes human-readable output to the console and, when a file path is
// configured, JSON lines to a size-rotated log file.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global structured logger. It defaults to a no-op logger
	// until Init is called so packages can log unconditionally.
	Log = zap.NewNop()

	// Sugar is the sugared form of Log for printf-style call sites.
	Sugar = Log.Sugar()
)

// Init configures the global logger.
//
// Parameters:
//   - level: minimum level to emit; one of "debug", "info", "warn", "error"
//   - file: path of the rotating log file; empty disables file output
//
// Returns:
//   - error: error if the level string is not recognized
func Init(level, file string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCfg.EncodeCaller = zapcore.ShortCallerEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stderr),
			lvl,
		),
	}

	if file != "" {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    25, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(rotator),
			lvl,
		))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	Sugar = Log.Sugar()
	return nil
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	_ = Log.Sync()
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return zapcore.InfoLevel, err
		}
		return l, nil
	}
}
