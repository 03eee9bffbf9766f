// Package logger provides structured logging for the game server.
// Every outcome the engine applies to a player should be traceable through this.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger provides structured logging with context.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a new logger instance.
func NewLogger() *Logger {
	return newWithWriters(os.Stdout, os.Stderr)
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return newWithWriters(io.Discard, io.Discard)
}

func newWithWriters(out, errOut io.Writer) *Logger {
	return &Logger{
		infoLogger:  log.New(out, "[MAFIA-INFO] ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(out, "[MAFIA-WARN] ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(errOut, "[MAFIA-ERROR] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.infoLogger.Output(2, fmt.Sprintf(format, args...))
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(format, args...))
}

// Event logs a specific game event for audit.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Output(2, fmt.Sprintf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details))
}
