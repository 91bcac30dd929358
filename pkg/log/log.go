// Package log builds the shell's structured logger: a logrus.Entry
// pre-populated with shell identity fields, following the teacher's
// development/production logger split.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/sirupsen/logrus"

	"github.com/tarnsh/tarnsh/pkg/config"
)

// NewLogger returns a logger entry tagged with the shell's pid, option
// set, and version — fields every poll-loop/job/trap log line carries.
func NewLogger(cfg *config.ShellConfig, pid int, options string) *logrus.Entry {
	var log *logrus.Logger
	if cfg.Debug {
		log = newDevelopmentLogger()
	} else {
		log = newProductionLogger()
	}
	log.Formatter = &logrus.JSONFormatter{}

	return log.WithFields(logrus.Fields{
		"pid":     pid,
		"version": cfg.Version,
		"options": options,
	})
}

func getLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("TARNSH_LOG_LEVEL"))
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(getLogLevel())

	logDir := xdg.New("", "tarnsh").ConfigHome()
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		fmt.Println("unable to create log directory")
		os.Exit(1)
	}

	file, err := os.OpenFile(filepath.Join(logDir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Println("unable to log to file")
		os.Exit(1)
	}
	log.SetOutput(file)
	return log
}

func newProductionLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.SetLevel(logrus.ErrorLevel)
	return log
}
