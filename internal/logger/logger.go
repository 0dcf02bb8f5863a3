package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	Exporter = "withsecure-export"
	CLI      = "withsecure-cli"

	logfileMaxAge = time.Hour * 24 * 7
)

// Setup returns a logger writing human readable lines to stderr, keeping stdout for command output.
func Setup(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{})

	log.SetLevel(logrus.InfoLevel)
	l, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("parse log level %s failed, using default level info", level)
	} else {
		log.SetLevel(l)
	}

	return log
}

// SetupLogger additionally writes to a dated log file in logDir, removing files older than a week.
func SetupLogger(level, logDir, prefix string) (*logrus.Logger, io.Closer, error) {
	log := Setup(level)

	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, nil, fmt.Errorf("creating log dir: %w", err)
	}

	err = deleteOldLogFiles(logDir, prefix, time.Now().Add(-logfileMaxAge))
	if err != nil {
		log.WithError(err).Error("unable to delete old log files")
	}

	logFilePath := filepath.Join(logDir, createLogFileName(prefix, time.Now()))
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", logFilePath, err)
	}

	log.SetOutput(io.MultiWriter(logFile, os.Stderr))
	log.WithField("path", logFilePath).Debug("logging to file")
	return log, logFile, nil
}

// exit is replaced in tests
var exit = os.Exit

// CapturePanic logs a recovered panic with its stack and exits with status 1.
// It must be deferred directly.
func CapturePanic(log logrus.FieldLogger) {
	if err := recover(); err != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("recovered from panic, %T: %v", err, err)
		exit(1)
	}
}
