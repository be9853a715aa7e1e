package mpv

import (
	"fmt"

	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/media"
)

type transition int

const (
	transitionNone transition = iota
	transitionLoaded
	transitionFirstFrame
	transitionEnded
	transitionFailed
)

// itemLifecycle follows mpv's events for the file most recently handed to loadfile.  Events still in flight for
// the file it replaced arrive before that file's start-file and are ignored.
type itemLifecycle struct {
	awaitingStart bool
	loading       bool
	loaded        bool
	firstFrame    bool
}

func (l *itemLifecycle) begin() {
	*l = itemLifecycle{awaitingStart: true, loading: true}
}

func (l *itemLifecycle) reset() {
	*l = itemLifecycle{}
}

func (l *itemLifecycle) active() bool {
	return l.loading || l.loaded
}

// apply advances the lifecycle with an mpv event and reports what happened to the current file
func (l *itemLifecycle) apply(ev Event) (transition, error) {
	switch ev.Event {
	case "start-file":
		if l.awaitingStart {
			l.awaitingStart = false
		}
	case "file-loaded":
		if l.loading && !l.awaitingStart {
			l.loading = false
			l.loaded = true
			return transitionLoaded, nil
		}
	case "playback-restart":
		if l.loaded && !l.firstFrame {
			l.firstFrame = true
			return transitionFirstFrame, nil
		}
	case "end-file":
		if l.awaitingStart || !l.active() {
			log.Trace("Ignoring end-file of a previous file", "reason", ev.Reason)
			return transitionNone, nil
		}
		switch ev.Reason {
		case "eof":
			l.reset()
			return transitionEnded, nil
		case "error":
			err := fileError(ev, l.loaded)
			l.reset()
			return transitionFailed, err
		default:
			log.Debug("File stopped", "reason", ev.Reason)
			l.reset()
		}
	}
	return transitionNone, nil
}

// fileError classifies an end-file error.  Failures before the file loaded mean the resource could not be opened.
func fileError(ev Event, loaded bool) error {
	detail := ev.FileError
	if detail == "" {
		detail = "unknown error"
	}
	if !loaded {
		return fmt.Errorf("%w: %s", media.ErrResourceUnavailable, detail)
	}
	return fmt.Errorf("%w: %s", media.ErrPlayback, detail)
}
