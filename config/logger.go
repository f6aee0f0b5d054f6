package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the shared structured logger. JSON to stdout so container
// log collectors can pick it up as-is.
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level := logrus.InfoLevel
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		level = lvl
	}
	log.SetLevel(level)

	return log
}
