//go:build windows

package mpv

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/PizzaHomicide/vidbridge/internal/log"
	"gopkg.in/natefinch/npipe.v2"
)

// dialIPC connects to an mpv IPC server on a Windows named pipe
func dialIPC(ctx context.Context, socketPath string) (net.Conn, error) {
	log.Trace("Connecting to Windows named pipe", "path", socketPath)

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	conn, err := npipe.DialTimeout(socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv pipe: %w", err)
	}
	return conn, nil
}
