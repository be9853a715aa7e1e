// Package player provides interchangeable video playback backends a host drives through one interface and
// observes through an event sink.
package player

import "fmt"

// EventCode identifies a playback event.  The values are fixed so hosts can forward them verbatim.
type EventCode int

const (
	EventPrepared   EventCode = 10001
	EventFrameReady EventCode = 10002
	EventCompleted  EventCode = 10003
	EventError      EventCode = 10004
)

func (c EventCode) String() string {
	switch c {
	case EventPrepared:
		return "Prepared"
	case EventFrameReady:
		return "FrameReady"
	case EventCompleted:
		return "Completed"
	case EventError:
		return "Error"
	default:
		return fmt.Sprintf("EventCode(%d)", int(c))
	}
}

// Event is delivered to the sink.  Err is only set for EventError and wraps one of the package's sentinel errors.
type Event struct {
	Code EventCode
	Err  error
}

// EventSink receives a backend's events.  OnEvent is called from a single goroutine owned by the backend, never
// concurrently with itself, and never after the backend's Release has returned.
type EventSink interface {
	OnEvent(ev Event)
}

// SinkFunc adapts a function to the EventSink interface
type SinkFunc func(ev Event)

func (f SinkFunc) OnEvent(ev Event) {
	f(ev)
}
