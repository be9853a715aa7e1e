package player

import "fmt"

// State of a backend
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateCompleted
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateCompleted:
		return "Completed"
	case StateReleased:
		return "Released"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
