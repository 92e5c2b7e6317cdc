// Package logutil holds the process-wide zap logger used by colframe.
package logutil

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig selects the level, encoding and destination of the global logger.
type LogConfig struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"`
	Filename string `toml:"filename"`
}

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// Setup builds a logger from cfg and installs it as the global logger.
func Setup(cfg LogConfig) (*zap.Logger, error) {
	logger, err := cfg.build()
	if err != nil {
		return nil, err
	}
	SetGlobalLogger(logger)
	return logger, nil
}

// GetGlobalLogger returns the installed logger, a no-op logger by default.
func GetGlobalLogger() *zap.Logger {
	return global.Load()
}

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

func (cfg LogConfig) getLevel() (zap.AtomicLevel, error) {
	if cfg.Level == "" {
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	}
	return zap.ParseAtomicLevel(strings.ToLower(cfg.Level))
}

func (cfg LogConfig) getSyncer() (zapcore.WriteSyncer, error) {
	if cfg.Filename == "" {
		return getConsoleSyncer(), nil
	}
	f, err := os.OpenFile(cfg.Filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(f), nil
}

func (cfg LogConfig) build() (*zap.Logger, error) {
	level, err := cfg.getLevel()
	if err != nil {
		return nil, err
	}
	syncer, err := cfg.getSyncer()
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(getLoggerEncoder(cfg.Format), syncer, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.FatalLevel)), nil
}

func getConsoleSyncer() zapcore.WriteSyncer {
	return zapcore.Lock(os.Stderr)
}

func getLoggerEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func Debug(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetGlobalLogger().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Enabled reports whether the global logger emits lvl, for callers that
// build expensive fields.
func Enabled(lvl zapcore.Level) bool {
	return GetGlobalLogger().Core().Enabled(lvl)
}
