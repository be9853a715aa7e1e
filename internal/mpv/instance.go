// Package mpv implements the native player objects on top of mpv processes driven over mpv's JSON IPC protocol.
package mpv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/PizzaHomicide/vidbridge/internal/log"
)

const (
	defaultConnectTimeout = 10 * time.Second
	connectRetryDelay     = 100 * time.Millisecond
	commandTimeout        = 5 * time.Second
	shutdownTimeout       = 2 * time.Second
)

// Options control how an mpv process is launched
type Options struct {
	// Path of the mpv binary, "mpv" when empty
	Path string
	// Args are extra command line arguments, parsed with ParseArgs
	Args      string
	SocketDir string
	// NoWindow keeps mpv from opening a window of its own while idle
	NoWindow       bool
	ConnectTimeout time.Duration
	// Launcher starts the process, ExecLauncher when nil
	Launcher Launcher
}

// Instance is one mpv process and the IPC connection controlling it
type Instance struct {
	socketPath string
	proc       Process
	client     *IPCClient

	closeOnce sync.Once
}

// Start launches mpv idle and connects to its IPC server
func Start(ctx context.Context, opts Options) (*Instance, error) {
	path := opts.Path
	if path == "" {
		path = "mpv"
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	socketPath := newSocketPath(opts.SocketDir)

	args := []string{
		"--idle=yes",                       // Stay alive without a file so items can be loaded over IPC
		"--no-terminal",                    // Disable terminal control
		"--keep-open=no",                   // Go idle when a file finishes
		"--input-ipc-server=" + socketPath, // Set IPC socket path
	}
	if !opts.NoWindow {
		args = append(args, "--force-window=yes")
	}

	// Add any additional configured arguments
	if opts.Args != "" {
		args = append(args, ParseArgs(opts.Args)...)
	}

	proc, err := launcher.Launch(path, args)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		socketPath: socketPath,
		proc:       proc,
		client:     NewIPCClient(socketPath),
	}

	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := int(timeout / connectRetryDelay)
	if err := inst.client.WaitForConnection(connCtx, attempts, connectRetryDelay); err != nil {
		log.Error("Failed to connect to mpv", "error", err, "socket_path", socketPath)
		_ = proc.Kill()
		_ = proc.Wait()
		inst.removeSocket()
		return nil, fmt.Errorf("failed to connect to mpv: %w", err)
	}

	return inst, nil
}

// Events returns mpv's event stream.  The channel is closed when the connection to mpv is lost.
func (i *Instance) Events() <-chan Event {
	return i.client.Events()
}

// Command sends a command to mpv, waiting a bounded time for the reply
func (i *Instance) Command(args ...any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return i.client.Command(ctx, args...)
}

// SetProperty sets an mpv property
func (i *Instance) SetProperty(name string, value any) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return i.client.SetProperty(ctx, name, value)
}

// GetProperty reads an mpv property
func (i *Instance) GetProperty(name string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return i.client.GetProperty(ctx, name)
}

// ObserveProperty asks mpv to report changes of a property as property-change events tagged with id
func (i *Instance) ObserveProperty(id int, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return i.client.ObserveProperty(ctx, id, name)
}

// Close asks mpv to quit, kills it if it does not exit in time and removes its socket.  Only the first call has
// any effect.
func (i *Instance) Close() {
	i.closeOnce.Do(func() {
		log.Debug("Shutting down mpv", "socket_path", i.socketPath)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if _, err := i.client.Command(ctx, "quit"); err != nil {
			log.Debug("mpv quit command failed", "error", err)
		}
		cancel()

		if err := i.client.Close(); err != nil {
			log.Debug("Failed to close mpv connection", "error", err)
		}

		exited := make(chan error, 1)
		go func() { exited <- i.proc.Wait() }()

		select {
		case <-exited:
		case <-time.After(shutdownTimeout):
			log.Warn("mpv did not exit, killing it", "socket_path", i.socketPath)
			if err := i.proc.Kill(); err != nil {
				log.Warn("Failed to kill mpv", "error", err)
			}
			<-exited
		}

		i.removeSocket()
	})
}

// removeSocket removes the socket file if it exists (Unix only)
func (i *Instance) removeSocket() {
	if runtime.GOOS == "windows" {
		return
	}
	if _, err := os.Stat(i.socketPath); err == nil {
		if err := os.Remove(i.socketPath); err != nil {
			log.Warn("Failed to remove mpv socket file", "path", i.socketPath, "error", err)
		}
	}
}
