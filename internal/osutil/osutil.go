// Package osutil holds operating system names and process exit codes
package osutil

const (
	Windows = "windows"
	Darwin  = "darwin"
)

type ExitCode int

const (
	ExitOK    ExitCode = 0
	ExitError ExitCode = 1
)

// DirPermission is the mode used for the config and data directories.
const DirPermission = 0o755
