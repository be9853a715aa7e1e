package mpv

import (
	"fmt"
	"os/exec"

	"github.com/PizzaHomicide/vidbridge/internal/log"
)

// Process is a running mpv process owned by an Instance
type Process interface {
	Kill() error
	Wait() error
}

// Launcher starts mpv processes
type Launcher interface {
	Launch(path string, args []string) (Process, error)
}

// LauncherFunc adapts a function to the Launcher interface
type LauncherFunc func(path string, args []string) (Process, error)

func (f LauncherFunc) Launch(path string, args []string) (Process, error) {
	return f(path, args)
}

// ExecLauncher starts mpv as a child process
type ExecLauncher struct{}

func (ExecLauncher) Launch(path string, args []string) (Process, error) {
	log.Debug("Launching mpv", "path", path, "args", args)

	cmd := exec.Command(path, args...)

	// Platform-specific process setup
	setupPlayerProcess(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}
	log.Debug("mpv started", "pid", cmd.Process.Pid)

	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}
