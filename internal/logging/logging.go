// Package logging sets up the zap logger shared by all binaries and carries
// it through context.Context.
package logging

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const loggerKey = contextKey("logger")

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type Config struct {
	Level string `envconfig:"DTS_LOG_LEVEL" default:"info"`
	Mode  string `envconfig:"DTS_LOG_MODE" default:"production"`
	// File enables a rotated log file in addition to stderr.
	File       string `envconfig:"DTS_LOG_FILE"`
	MaxSizeMB  int    `envconfig:"DTS_LOG_FILE_MAX_SIZE_MB" default:"100"`
	MaxBackups int    `envconfig:"DTS_LOG_FILE_MAX_BACKUPS" default:"3"`
}

var (
	defaultLogger     *zap.SugaredLogger
	defaultLoggerOnce sync.Once
)

// NewLogger builds a sugared logger for the given config. Unknown levels
// fall back to info.
func NewLogger(cfg Config) *zap.SugaredLogger {
	var encCfg zapcore.EncoderConfig
	if strings.EqualFold(cfg.Mode, ModeDevelopment) {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var enc zapcore.Encoder
	if strings.EqualFold(cfg.Mode, ModeDevelopment) {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	level := levelFor(cfg.Level)
	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level),
	}
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotated), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))).Sugar()
}

// NewLoggerFromEnv reads Config from the environment.
func NewLoggerFromEnv() *zap.SugaredLogger {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		cfg = Config{Level: "info", Mode: ModeProduction}
	}
	return NewLogger(cfg)
}

// DefaultLogger returns the process wide logger built from the environment.
func DefaultLogger() *zap.SugaredLogger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewLoggerFromEnv()
	})
	return defaultLogger
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(loggerKey).(*zap.SugaredLogger); ok {
		return logger
	}
	return DefaultLogger()
}

func levelFor(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
