package logger

import "github.com/sirupsen/logrus"

// BadgerLogger adapts the shared logger to badger's Logger interface.
// Badger is chatty at info level, so its info output is demoted to debug.
type BadgerLogger struct {
	entry *logrus.Entry
}

// Badger returns a logger suitable for badger.Options.WithLogger.
func Badger(database string) *BadgerLogger {
	return &BadgerLogger{entry: logger.WithFields(logrus.Fields{
		"component": "badger",
		"database":  database,
	})}
}

func (b *BadgerLogger) Errorf(format string, v ...interface{}) {
	b.entry.Errorf(format, v...)
}

func (b *BadgerLogger) Warningf(format string, v ...interface{}) {
	b.entry.Warnf(format, v...)
}

func (b *BadgerLogger) Infof(format string, v ...interface{}) {
	b.entry.Debugf(format, v...)
}

func (b *BadgerLogger) Debugf(format string, v ...interface{}) {
	b.entry.Debugf(format, v...)
}
