// Package logging wires the process-wide logging backend and hands out
// per-package loggers, the way tinychain's common.GetLogger does.
package logging

import (
	"os"
	"sync"

	logging "github.com/op/go-logging"
)

var (
	once      sync.Once
	formatter = logging.MustStringFormatter(
		`%{color}%{time:2006-01-02 15:04:05.000} [%{level:.4s}] %{module}: %{message}%{color:reset}`,
	)
)

// Init configures the shared backend. Safe to call more than once; only the
// first call takes effect. level is one of "debug", "info", "warning",
// "error", "critical".
func Init(level string) {
	once.Do(func() {
		backend := logging.NewLogBackend(os.Stderr, "", 0)
		formatted := logging.NewBackendFormatter(backend, formatter)
		leveled := logging.AddModuleLevel(formatted)
		lvl, err := logging.LogLevel(level)
		if err != nil {
			lvl = logging.INFO
		}
		leveled.SetLevel(lvl, "")
		logging.SetBackend(leveled)
	})
}

// GetLogger returns a module-scoped logger. Modules are expected to call
// this once at package init time and reuse the result, matching the
// call-site pattern used throughout the teacher codebase
// (var log = common.GetLogger("state")).
func GetLogger(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}
