//go:build !windows

package mpv

import (
	"context"
	"fmt"
	"net"

	"github.com/PizzaHomicide/vidbridge/internal/log"
)

// dialIPC connects to an mpv IPC server on a Unix domain socket
func dialIPC(ctx context.Context, socketPath string) (net.Conn, error) {
	log.Trace("Connecting to Unix socket", "path", socketPath)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv socket: %w", err)
	}
	return conn, nil
}
