package commands

import (
	"os"

	"github.com/microsoft/dapmirror/pkg/logger"
	"github.com/microsoft/dapmirror/pkg/osutil"
)

// ErrorExit reports a command error on stderr and in the log, then exits the process with the given code.
func ErrorExit(log *logger.Logger, err error, exitCode int) {
	log.Error(err, "Command failed")
	_, _ = os.Stderr.Write(osutil.WithNewline([]byte(err.Error())))
	log.Flush()
	os.Exit(exitCode)
}
