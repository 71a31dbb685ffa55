package cmd

import (
	"errors"

	"github.com/eventsim/eventsim/engine"
)

// exitCodeFor maps an error that escaped a subcommand to a process exit
// code, per the driver's exit code contract (0 normal, 1 runtime error, 2
// configuration error). Non-kernel errors (flag parsing, file I/O) default
// to 1, matching cobra's own convention.
func exitCodeFor(err error) int {
	var kerr *engine.Error
	if errors.As(err, &kerr) {
		return kerr.Kind.ExitCode()
	}
	return 1
}
