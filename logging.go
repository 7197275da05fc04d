package delit

import (
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("delit")

var stderrFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.6s} ▶ %{message}`,
)

// ConfigureLogging wires the package logger to stderr at NOTICE, or DEBUG
// when verbose is set. cmd/delit calls this once at startup; library
// callers that embed delit in a larger program are free to call
// logging.SetBackend themselves instead.
func ConfigureLogging(verbose bool) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, stderrFormat)
	leveled := logging.AddModuleLevel(formatted)

	level := logging.NOTICE
	if verbose {
		level = logging.DEBUG
	}
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}
