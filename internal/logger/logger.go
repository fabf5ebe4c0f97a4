package logger

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/FreePeak/json-db-mcp-server/pkg/core"
)

// Level represents the severity of a log message
type Level int

const (
	// LevelDebug for detailed troubleshooting
	LevelDebug Level = iota
	// LevelInfo for general operational entries
	LevelInfo
	// LevelWarn for non-critical issues
	LevelWarn
	// LevelError for errors that should be addressed
	LevelError
)

var (
	// Default logger, writes to stderr until Initialize is called
	logger   = newLogrus()
	logLevel = LevelInfo
)

func newLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(core.GetLogWriter())
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
		DisableColors:   true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Initialize sets up the logger with the specified level
func Initialize(level string) {
	logger = newLogrus()
	setLogLevel(level)
}

// setLogLevel sets the log level from a string
func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	logger.SetLevel(logLevel.logrusLevel())
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// logMessage logs a message with the given level
func logMessage(level Level, format string, v ...interface{}) {
	if level < logLevel {
		return
	}

	message := fmt.Sprintf(format, v...)
	switch level {
	case LevelDebug:
		logger.Debug(message)
	case LevelInfo:
		logger.Info(message)
	case LevelWarn:
		logger.Warn(message)
	case LevelError:
		logger.Error(message)
	}
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	logMessage(LevelDebug, format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	logMessage(LevelInfo, format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	logMessage(LevelWarn, format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	logMessage(LevelError, format, v...)
}

// ErrorWithStack logs an error with a stack trace
func ErrorWithStack(err error) {
	if err == nil {
		return
	}
	logMessage(LevelError, "%v\n%s", err, debug.Stack())
}

// WithField returns a structured entry on the shared logger.
func WithField(key string, value interface{}) *logrus.Entry {
	return logger.WithField(key, value)
}

// RequestLog logs details of an HTTP request
func RequestLog(method, url, sessionID, body string) {
	Debug("HTTP Request: %s %s", method, url)
	if sessionID != "" {
		Debug("Session ID: %s", sessionID)
	}
	if body != "" {
		Debug("Request Body: %s", body)
	}
}

// ResponseLog logs details of an HTTP response
func ResponseLog(statusCode int, sessionID, body string) {
	Debug("HTTP Response: Status %d", statusCode)
	if sessionID != "" {
		Debug("Session ID: %s", sessionID)
	}
	if body != "" {
		Debug("Response Body: %s", body)
	}
}

// SSEEventLog logs details of an SSE event
func SSEEventLog(eventType, sessionID, data string) {
	Debug("SSE Event: %s", eventType)
	Debug("Session ID: %s", sessionID)
	Debug("Event Data: %s", data)
}

// RequestResponseLog logs a JSON-RPC exchange as a single entry
func RequestResponseLog(method, sessionID, request, response string) {
	if logLevel > LevelDebug {
		return
	}
	logger.WithFields(logrus.Fields{
		"method":  method,
		"session": sessionID,
	}).Debugf("request=%s response=%s", request, response)
}
