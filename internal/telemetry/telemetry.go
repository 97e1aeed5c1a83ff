// Package telemetry is a thin wrapper around the teacher pack-mate
// ternarybob-iter's structured logger, github.com/ternarybob/arbor,
// giving the CLI and orchestrator a shared global logger configured by
// --quiet/-v, the way ternarybob-iter's internal/logger package exposes
// a GetLogger()/InitLogger() singleton over arbor.ILogger.
package telemetry

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Level mirrors the CLI's verbosity flags onto arbor's string levels.
type Level int

const (
	LevelQuiet Level = iota
	LevelNormal
	LevelVerbose
)

func (l Level) String() string {
	switch l {
	case LevelQuiet:
		return "error"
	case LevelVerbose:
		return "debug"
	default:
		return "info"
	}
}

// New builds a console-writing arbor.ILogger at the level implied by lvl.
func New(lvl Level) arbor.ILogger {
	logger := arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05.000",
		OutputType:       models.OutputFormatLogfmt,
		DisableTimestamp: false,
	})
	return logger.WithLevelFromString(lvl.String())
}

var (
	globalMu     sync.RWMutex
	globalLogger arbor.ILogger
)

// GetLogger returns the process-wide logger, defaulting to LevelNormal
// console output until InitLogger is called (normally from cmd/ccfix's
// root command after flags are parsed).
func GetLogger() arbor.ILogger {
	globalMu.RLock()
	if globalLogger != nil {
		defer globalMu.RUnlock()
		return globalLogger
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = New(LevelNormal)
	}
	return globalLogger
}

// InitLogger installs logger as the process-wide singleton.
func InitLogger(logger arbor.ILogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}
