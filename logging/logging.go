// Package logging builds the application's hclog loggers and bridges them
// into gorm and gin.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Level  string
	Format string // "json" or "text"
	Output io.Writer
}

// New returns the root logger for the service.
func New(name string, cfg Config) hclog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		JSONFormat: strings.EqualFold(cfg.Format, "json"),
		Output:     out,
		TimeFormat: time.RFC3339,
	})
}

// Discard is used by tests and by callers that do not care about output.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}

// Gorm adapts l for gorm's query logger. Record-not-found is an expected
// outcome in this service and is not logged.
func Gorm(l hclog.Logger) gormlogger.Interface {
	std := l.Named("gorm").StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})

	level := gormlogger.Warn
	switch {
	case l.IsTrace(), l.IsDebug():
		level = gormlogger.Info
	case !l.IsWarn():
		level = gormlogger.Error
	}
	return gormlogger.New(std, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
