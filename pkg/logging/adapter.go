package logging

import (
	"fmt"
	"strings"
)

// RestyAdapter adapts the structured logger to resty's printf-style Logger
// interface (Errorf, Warnf, Debugf).
type RestyAdapter struct {
	logger Logger
}

// NewRestyAdapter creates a new resty adapter. The component field is set to
// "resty" so that transport chatter can be filtered out.
func NewRestyAdapter(logger Logger) *RestyAdapter {
	if logger == nil {
		logger = NewNop()
	}
	return &RestyAdapter{logger: logger.WithFields(String("component", "resty"))}
}

// Errorf logs an error message using printf-style formatting
func (a *RestyAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(trimMessage(format, v...))
}

// Warnf logs a warning message using printf-style formatting
func (a *RestyAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(trimMessage(format, v...))
}

// Debugf logs a debug message using printf-style formatting
func (a *RestyAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(trimMessage(format, v...))
}

func trimMessage(format string, v ...interface{}) string {
	msg := fmt.Sprintf(format, v...)
	msg = strings.TrimPrefix(msg, "RESTY ")
	return strings.TrimRight(msg, "\n")
}

var globalLogger Logger

func init() {
	globalLogger = New(nil, nil)
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	return globalLogger
}

// Debug logs a debug message to the global logger
func Debug(msg string, fields ...Field) {
	globalLogger.Debug(msg, fields...)
}

// Info logs an info message to the global logger
func Info(msg string, fields ...Field) {
	globalLogger.Info(msg, fields...)
}

// Warn logs a warning message to the global logger
func Warn(msg string, fields ...Field) {
	globalLogger.Warn(msg, fields...)
}

// LogError logs an error message to the global logger
func LogError(msg string, fields ...Field) {
	globalLogger.Error(msg, fields...)
}
