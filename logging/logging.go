// Package logging builds the service logger.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out. Unknown levels fall back to info.
func New(out io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	log.Out = out

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.Level = lvl

	if strings.EqualFold(format, "text") {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
		return log
	}
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	return log
}
