package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// captureOutput captures log output during a test
func captureOutput(f func()) string {
	var buf bytes.Buffer
	oldLogger := logger
	logger = logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	logger.SetLevel(logrus.DebugLevel)
	defer func() { logger = oldLogger }()

	f()
	return buf.String()
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"unknown", LevelInfo}, // Default
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			setLogLevel(tt.level)
			assert.Equal(t, tt.expected, logLevel)
			assert.Equal(t, tt.expected.logrusLevel(), logger.GetLevel())
		})
	}
	setLogLevel("info")
}

func TestDebug(t *testing.T) {
	logLevel = LevelDebug
	output := captureOutput(func() {
		Debug("Test debug message: %s", "value")
	})
	assert.Contains(t, output, "level=debug")
	assert.Contains(t, output, "Test debug message: value")

	logLevel = LevelInfo
	output = captureOutput(func() {
		Debug("This should not appear")
	})
	assert.Empty(t, output)
}

func TestInfo(t *testing.T) {
	logLevel = LevelInfo
	output := captureOutput(func() {
		Info("Test info message: %s", "value")
	})
	assert.Contains(t, output, "level=info")
	assert.Contains(t, output, "Test info message: value")

	logLevel = LevelError
	output = captureOutput(func() {
		Info("This should not appear")
	})
	assert.Empty(t, output)
	logLevel = LevelInfo
}

func TestWarn(t *testing.T) {
	logLevel = LevelWarn
	output := captureOutput(func() {
		Warn("Test warn message: %s", "value")
	})
	assert.Contains(t, output, "level=warning")
	assert.Contains(t, output, "Test warn message: value")

	logLevel = LevelError
	output = captureOutput(func() {
		Warn("This should not appear")
	})
	assert.Empty(t, output)
	logLevel = LevelInfo
}

func TestError(t *testing.T) {
	logLevel = LevelError
	output := captureOutput(func() {
		Error("Test error message: %s", "value")
	})
	assert.Contains(t, output, "level=error")
	assert.Contains(t, output, "Test error message: value")
	logLevel = LevelInfo
}

func TestErrorWithStack(t *testing.T) {
	err := errors.New("test error")
	output := captureOutput(func() {
		ErrorWithStack(err)
	})
	assert.Contains(t, output, "level=error")
	assert.Contains(t, output, "test error")
	assert.Contains(t, output, "goroutine")

	assert.Empty(t, captureOutput(func() { ErrorWithStack(nil) }))
}

func TestWithField(t *testing.T) {
	output := captureOutput(func() {
		WithField("database", "notes").Info("opened")
	})
	assert.Contains(t, output, "database=notes")
	assert.Contains(t, output, "opened")
}

func TestBadgerLogger(t *testing.T) {
	output := captureOutput(func() {
		b := Badger("notes")
		b.Infof("compaction %d", 1)
		b.Warningf("slow %s", "write")
	})
	assert.Contains(t, output, "component=badger")
	assert.Contains(t, output, "level=debug")
	assert.Contains(t, output, "compaction 1")
	assert.Contains(t, output, "level=warning")
}

func TestRequestResponseLog(t *testing.T) {
	logLevel = LevelDebug
	output := captureOutput(func() {
		RequestResponseLog("tools/call", "session123", `{"method":"tools/call"}`, `{"result":"data"}`)
	})
	assert.Contains(t, output, "session=session123")
	assert.Contains(t, output, `{\"result\":\"data\"}`)
	logLevel = LevelInfo
}

// For the remaining helpers, we'll just test that the functions don't panic
// rather than asserting the specific output format which may change

func TestRequestLog(t *testing.T) {
	assert.NotPanics(t, func() {
		RequestLog("POST", "/message", "session123", `{"key":"value"}`)
	})
}

func TestResponseLog(t *testing.T) {
	assert.NotPanics(t, func() {
		ResponseLog(200, "session123", `{"result":"success"}`)
	})
}

func TestSSEEventLog(t *testing.T) {
	assert.NotPanics(t, func() {
		SSEEventLog("message", "session123", `{"data":"content"}`)
	})
}
