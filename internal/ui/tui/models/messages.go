package models

import (
	"github.com/PizzaHomicide/vidbridge/internal/domain"
	"github.com/PizzaHomicide/vidbridge/internal/player"
)

// LibraryLoadedMsg is sent when the library has been (re)loaded.  Err is set when the catalog could not be
// reached; configured entries are still available in that case.
type LibraryLoadedMsg struct {
	Err error
}

// PlaybackEventMsg carries an event from the backend's sink into the program
type PlaybackEventMsg struct {
	Event player.Event
}

// PlaybackRecordedMsg is sent once a playback outcome has been stored
type PlaybackRecordedMsg struct {
	MediaID string
	Outcome domain.PlaybackOutcome
	Err     error
}
