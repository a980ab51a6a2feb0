package config

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// SetupLogging sets the logrus level from a LOG_LEVEL style string.
// Unknown or empty values fall back to info.
func SetupLogging(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.Infof("Log level set to: %s", logrus.GetLevel().String())
}
