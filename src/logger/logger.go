package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	logger *logrus.Logger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. A nil config logs to stdout at
// info level, which is what tests and helper components use.
func NewLogger(config *models.MConfig, name string) *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
	})

	level := logrus.InfoLevel
	if config != nil {
		if parsed, err := logrus.ParseLevel(config.LogLevel); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)

	writers := []io.Writer{os.Stdout}
	if config != nil && config.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogFile), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   config.LogFile,
				MaxSize:    100, // MB
				MaxBackups: 3,
				MaxAge:     7, // days
				Compress:   true,
			})
		}
	}
	l.SetOutput(io.MultiWriter(writers...))

	return &Logger{name: name, logger: l}
}

// -----------------------------------------------------------------------------

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.WithField("component", l.name).Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs warning messages
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.WithField("component", l.name).Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.WithField("component", l.name).Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.WithField("component", l.name).Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithField("component", l.name).Fatalf(format, args...)
}
