package mpv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
)

var socketSeq atomic.Uint64

// newSocketPath returns an IPC endpoint no other instance in this process uses.  Named pipes are used on Windows,
// where dir is ignored.
func newSocketPath(dir string) string {
	name := fmt.Sprintf("vidbridge-mpv-%d-%d", os.Getpid(), socketSeq.Add(1))

	if runtime.GOOS == "windows" {
		return `\\.\pipe\` + name
	}

	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, name+".sock")
}
