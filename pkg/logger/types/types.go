package types

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a sugared zap logger named after the component that owns it
// ("trigger", "smtp", "http", ...).
type Logger struct {
	*zap.SugaredLogger
	Name string
}

// Log represents a log entry passed to a LogHook
type Log struct {
	Timestamp  time.Time
	Caller     string
	LoggerName string
	Level      zapcore.Level
	Message    string
}

// LogHook receives every entry written through the global logger. It runs on
// the logging goroutine and must not block.
type LogHook func(log Log)
