package mpv

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockMPV is a fake mpv process: it serves the JSON IPC protocol on the socket mpv was launched with, records
// commands and plays files by emitting the events mpv would
type mockMPV struct {
	t       *testing.T
	version string
	// failLoads maps a file to the file_error mpv reports when it cannot be opened
	failLoads map[string]string

	mu       sync.Mutex
	ln       net.Listener
	conn     net.Conn
	writeMu  sync.Mutex
	commands [][]any
	playing  bool
	args     []string

	exited   chan struct{}
	exitOnce sync.Once
}

func newMockMPV(t *testing.T) *mockMPV {
	return &mockMPV{
		t:         t,
		version:   "mpv 0.37.0",
		failLoads: map[string]string{},
		exited:    make(chan struct{}),
	}
}

// launcher starts the mock in place of an mpv binary
func (m *mockMPV) launcher() Launcher {
	return LauncherFunc(func(path string, args []string) (Process, error) {
		m.args = args

		var socketPath string
		for _, arg := range args {
			if strings.HasPrefix(arg, "--input-ipc-server=") {
				socketPath = strings.TrimPrefix(arg, "--input-ipc-server=")
			}
		}
		require.NotEmpty(m.t, socketPath)

		_ = os.Remove(socketPath)
		ln, err := net.Listen("unix", socketPath)
		require.NoError(m.t, err)
		m.ln = ln

		go m.serve()
		return m, nil
	})
}

func (m *mockMPV) Kill() error {
	m.exit()
	return nil
}

func (m *mockMPV) Wait() error {
	<-m.exited
	return nil
}

func (m *mockMPV) exit() {
	m.exitOnce.Do(func() {
		_ = m.ln.Close()
		m.mu.Lock()
		if m.conn != nil {
			_ = m.conn.Close()
		}
		m.mu.Unlock()
		close(m.exited)
	})
}

func (m *mockMPV) serve() {
	conn, err := m.ln.Accept()
	if err != nil {
		return
	}
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req struct {
			Command   []any `json:"command"`
			RequestID int   `json:"request_id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}

		m.mu.Lock()
		m.commands = append(m.commands, req.Command)
		m.mu.Unlock()

		m.handle(req.RequestID, req.Command)
	}
}

func (m *mockMPV) handle(id int, cmd []any) {
	reply := map[string]any{"request_id": id, "error": "success"}

	switch cmd[0] {
	case "get_property":
		if cmd[1] == "mpv-version" {
			reply["data"] = m.version
		} else {
			reply["error"] = "property unavailable"
		}
		m.send(reply)
	case "quit":
		m.send(reply)
		m.exit()
	case "stop":
		m.send(reply)
		m.endCurrent("stop")
	case "loadfile":
		reply["data"] = map[string]any{"playlist_entry_id": 1}
		m.send(reply)

		file := cmd[1].(string)
		m.endCurrent("stop")
		m.send(map[string]any{"event": "start-file", "playlist_entry_id": 1})
		if fileError, ok := m.failLoads[file]; ok {
			m.send(map[string]any{"event": "end-file", "reason": "error", "file_error": fileError})
			return
		}
		m.mu.Lock()
		m.playing = true
		m.mu.Unlock()
		m.send(map[string]any{"event": "file-loaded"})
		m.send(map[string]any{"event": "playback-restart"})
	default:
		m.send(reply)
	}
}

// finish plays the current file to its end
func (m *mockMPV) finish() {
	m.endCurrent("eof")
}

func (m *mockMPV) endCurrent(reason string) {
	m.mu.Lock()
	playing := m.playing
	m.playing = false
	m.mu.Unlock()

	if playing {
		m.send(map[string]any{"event": "end-file", "reason": reason})
	}
}

func (m *mockMPV) send(msg map[string]any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_, _ = conn.Write(append(data, '\n'))
}

// commandsNamed returns the recorded commands with the given name
func (m *mockMPV) commandsNamed(name string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out [][]any
	for _, c := range m.commands {
		if c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

// lastProperty returns the most recent value set for an mpv property
func (m *mockMPV) lastProperty(name string) (any, bool) {
	var value any
	found := false
	for _, c := range m.commandsNamed("set_property") {
		if c[1] == name {
			value = c[2]
			found = true
		}
	}
	return value, found
}

func (m *mockMPV) options(t *testing.T) Options {
	return Options{
		SocketDir:      t.TempDir(),
		NoWindow:       true,
		ConnectTimeout: 2 * time.Second,
		Launcher:       m.launcher(),
	}
}
