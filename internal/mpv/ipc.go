package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/PizzaHomicide/vidbridge/internal/log"
)

// ErrClosed is returned for commands issued on, or pending when, the IPC connection closed
var ErrClosed = errors.New("mpv connection closed")

// Event represents an event or a command reply from mpv
type Event struct {
	Event     string          `json:"event,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`

	// property-change
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	// start-file / end-file
	Reason          string `json:"reason,omitempty"`
	FileError       string `json:"file_error,omitempty"`
	PlaylistEntryID int    `json:"playlist_entry_id,omitempty"`
}

// IPCClient provides communication with a running mpv instance over its JSON IPC server
type IPCClient struct {
	socketPath string

	writeMu sync.Mutex
	conn    net.Conn

	mu      sync.Mutex
	nextID  int
	pending map[int]chan Event
	closed  bool

	events chan Event
	done   chan struct{}
}

// NewIPCClient creates a new mpv IPC client
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{
		socketPath: socketPath,
		pending:    make(map[int]chan Event),
		events:     make(chan Event, 100),
		done:       make(chan struct{}),
	}
}

// Connect establishes a connection with mpv and starts reading from it
func (c *IPCClient) Connect(ctx context.Context) error {
	conn, err := dialIPC(ctx, c.socketPath)
	if err != nil {
		return err
	}

	c.conn = conn
	go c.readEvents()
	return nil
}

// WaitForConnection attempts to connect to mpv with retries
func (c *IPCClient) WaitForConnection(ctx context.Context, maxAttempts int, retryDelay time.Duration) error {
	log.Debug("Waiting for mpv to create socket", "socket_path", c.socketPath, "max_attempts", maxAttempts)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Unix sockets show up on disk before they accept connections
		if runtime.GOOS != "windows" {
			if _, err := os.Stat(c.socketPath); os.IsNotExist(err) {
				log.Trace("mpv socket does not exist yet", "attempt", attempt, "path", c.socketPath)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryDelay):
					continue
				}
			}
		}

		err := c.Connect(ctx)
		if err == nil {
			log.Debug("Connected to mpv", "attempt", attempt)
			return nil
		}

		log.Debug("Failed to connect to mpv", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return fmt.Errorf("failed to connect to mpv after %d attempts", maxAttempts)
}

// Close closes the connection to mpv.  The events channel is closed once the reader has stopped.
func (c *IPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	<-c.done
	return err
}

// Done is closed once the connection to mpv is gone, whoever closed it
func (c *IPCClient) Done() <-chan struct{} {
	return c.done
}

// readEvents continuously reads lines from mpv, routing command replies to their callers and everything else to
// the events channel
func (c *IPCClient) readEvents() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()

		close(c.events)
		close(c.done)
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		log.Trace("Raw mpv message", "data", string(line))

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			log.Error("Failed to unmarshal mpv message", "error", err)
			continue
		}

		if event.Event == "" && event.RequestID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[event.RequestID]
			delete(c.pending, event.RequestID)
			c.mu.Unlock()
			if ok {
				ch <- event
			}
			continue
		}

		c.events <- event
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn("Error reading from mpv socket", "error", err)
	}
	log.Debug("mpv event reader stopped", "socket_path", c.socketPath)
}

// Events returns the channel for mpv events
func (c *IPCClient) Events() <-chan Event {
	return c.events
}

// Command sends a command to mpv and waits for its reply, returning the reply data
func (c *IPCClient) Command(ctx context.Context, args ...any) (json.RawMessage, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected to mpv")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.nextID++
	id := c.nextID
	reply := make(chan Event, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	data, err := json.Marshal(map[string]any{
		"command":    args,
		"request_id": id,
	})
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	c.writeMu.Lock()
	_, err = c.conn.Write(append(data, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case resp, ok := <-reply:
		if !ok {
			return nil, ErrClosed
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv command %v failed: %s", args[0], resp.Error)
		}
		return resp.Data, nil
	}
}

func (c *IPCClient) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// SetProperty sets an mpv property
func (c *IPCClient) SetProperty(ctx context.Context, name string, value any) error {
	_, err := c.Command(ctx, "set_property", name, value)
	return err
}

// GetProperty reads an mpv property
func (c *IPCClient) GetProperty(ctx context.Context, name string) (json.RawMessage, error) {
	return c.Command(ctx, "get_property", name)
}

// ObserveProperty starts observing an mpv property.  Changes arrive as property-change events carrying the id.
func (c *IPCClient) ObserveProperty(ctx context.Context, id int, name string) error {
	_, err := c.Command(ctx, "observe_property", id, name)
	return err
}
