// Package logging wires up the exporter's structured logger. It mirrors
// the teacher's promlog-based setup, extended with a trace level (promlog
// itself only goes down to debug) since the exported LOG_LEVEL surface
// requires one.
package logging

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Level is the exporter's five-value log level, a superset of go-kit's
// four (trace added at the bottom).
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) (Level, error) {
	switch s {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger wraps a go-kit logger with a minimum-level gate that also covers
// trace, which go-kit/log/level doesn't model.
type Logger struct {
	base log.Logger
	min  Level
}

// New builds a Logger. format selects logfmt ("pretty") or JSON output,
// matching LOG_FORMAT's two allowed values.
func New(format string, min Level) *Logger {
	var base log.Logger
	if format == "json" {
		base = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		base = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}
	base = log.With(base, "ts", log.DefaultTimestampUTC, "caller", log.Caller(5))
	return &Logger{base: base, min: min}
}

// NewFiltered additionally applies LOG_FILTER, a level name that overrides
// the derived minimum when set. A LOG_FILTER value that is not a level
// name is ignored.
func NewFiltered(format, logLevel, logFilter string) (*Logger, error) {
	min, err := ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	if logFilter != "" {
		if fl, err := ParseLevel(logFilter); err == nil {
			min = fl
		}
	}
	return New(format, min), nil
}

func (l *Logger) log(lvl Level, name string, keyvals ...interface{}) {
	if lvl < l.min {
		return
	}
	kv := append([]interface{}{"level", name}, keyvals...)
	if lvl >= LevelDebug {
		// Route through go-kit's level package for the four levels it
		// understands so output stays consistent with any go-kit-aware
		// tooling inspecting the stream.
		switch lvl {
		case LevelDebug:
			level.Debug(l.base).Log(keyvals...)
			return
		case LevelInfo:
			level.Info(l.base).Log(keyvals...)
			return
		case LevelWarn:
			level.Warn(l.base).Log(keyvals...)
			return
		case LevelError:
			level.Error(l.base).Log(keyvals...)
			return
		}
	}
	l.base.Log(kv...)
}

func (l *Logger) Trace(keyvals ...interface{}) { l.log(LevelTrace, "trace", keyvals...) }
func (l *Logger) Debug(keyvals ...interface{}) { l.log(LevelDebug, "debug", keyvals...) }
func (l *Logger) Info(keyvals ...interface{})  { l.log(LevelInfo, "info", keyvals...) }
func (l *Logger) Warn(keyvals ...interface{})  { l.log(LevelWarn, "warn", keyvals...) }
func (l *Logger) Error(keyvals ...interface{}) { l.log(LevelError, "error", keyvals...) }

// Base returns the underlying go-kit logger, for handing to libraries
// (exporter-toolkit's web server) that want a plain log.Logger.
func (l *Logger) Base() log.Logger { return l.base }
