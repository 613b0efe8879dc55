package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// InfoLogger and ErrorLogger are usable before InitLogger runs so that
// packages and tests can log without setup.
var (
	InfoLogger  = newLogger(os.Stdout, logrus.InfoLevel, "text")
	ErrorLogger = newLogger(os.Stderr, logrus.InfoLevel, "text")
)

// InitLogger reconfigures both loggers. format is "text" or "json".
func InitLogger(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}

	InfoLogger = newLogger(os.Stdout, lvl, format)
	ErrorLogger = newLogger(os.Stderr, lvl, format)

	if err != nil && level != "" {
		ErrorLogger.Warnf("invalid log level %q, using info", level)
	}
}

func newLogger(out *os.File, level logrus.Level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return l
}
