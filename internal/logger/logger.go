// Package logger builds the zap logger shared by the CLI and the devserver.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects encoders and sinks.
type Options struct {
	// Level is debug, info, warn or error; anything else is info.
	Level string
	// File, when set, adds a rotated JSON sink.
	File string
	// Production switches the console encoder to JSON.
	Production bool
	// Quiet drops the console sink (the TUI owns the terminal).
	Quiet bool
}

// New returns a zap logger writing to stderr and, when opts.File is set, to a rotated file.
func New(opts Options) *zap.Logger {
	level := ParseLevel(opts.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var cores []zapcore.Core
	if !opts.Quiet {
		consoleEncoder := jsonEncoder
		if !opts.Production {
			consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level))
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// ParseLevel maps a level name to a zapcore.Level; unknown names are info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
