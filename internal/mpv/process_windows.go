//go:build windows

package mpv

import (
	"os/exec"
	"syscall"
)

// setupPlayerProcess puts mpv in its own process group so console signals aimed at the host don't reach it
func setupPlayerProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
