package player

import (
	"slices"
	"sync"

	"github.com/PizzaHomicide/vidbridge/internal/log"
)

// Backend plays one source at a time on a native player object it owns.  Methods are meant to be called from a
// single control goroutine; events arrive on the sink passed to Init.
type Backend interface {
	// Init creates the native player.  It may only be called once.
	Init(host HostContext, sink EventSink) error
	// SetSurface directs video output.  It may be called again at any time after Init.
	SetSurface(s Surface) error
	// Load starts preparing a source without blocking, replacing any current one.  Success is reported with
	// EventPrepared, after which playback starts on its own; failure is reported with EventError.
	Load(src Source) error
	// Play resumes playback.  It does nothing unless the backend is Ready or Paused.
	Play() error
	// Pause pauses playback.  It does nothing unless the backend is Playing.
	Pause() error
	// Release frees the native player.  No event is delivered once it returns.  It must not be called from the sink.
	Release() error
	State() State
}

// backendState is the bookkeeping shared by the backends: the state machine, the load generation callbacks are
// tagged with and the event dispatcher
type backendState struct {
	kind string

	mu        sync.Mutex
	state     State
	gen       uint64
	host      HostContext
	disp      *dispatcher
	frameSent bool
	// attached is set once the native object has switched to the current load's item
	attached bool

	releaseOnce sync.Once
}

// Kind names the backend, "platform" or "extended"
func (b *backendState) Kind() string {
	return b.kind
}

func (b *backendState) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *backendState) checkInitLocked() error {
	switch b.state {
	case StateUninitialized:
		return nil
	case StateReleased:
		return ErrReleased
	default:
		return ErrAlreadyInitialized
	}
}

func (b *backendState) initLocked(host HostContext, sink EventSink) {
	if host == nil {
		host = FileHost{}
	}
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	b.host = host
	b.disp = newDispatcher(sink)
	b.state = StateInitialized
	log.Info("Playback backend initialized", "backend", b.kind)
}

// usableLocked reports misuse: operations before Init or after Release
func (b *backendState) usableLocked() error {
	switch b.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateReleased:
		return ErrReleased
	default:
		return nil
	}
}

func (b *backendState) usable() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usableLocked()
}

// beginLoadLocked starts a new load generation, orphaning callbacks of the previous item
func (b *backendState) beginLoadLocked() uint64 {
	b.gen++
	b.state = StateLoading
	b.frameSent = false
	b.attached = false
	return b.gen
}

// attach marks the native object as switched to the load's item.  Native callbacks arriving before that belong to
// the item being replaced.
func (b *backendState) attach(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current(gen) {
		b.attached = true
	}
}

func (b *backendState) postLocked(ev Event) {
	if b.state == StateReleased || b.disp == nil {
		return
	}
	b.disp.post(ev)
}

// reject reports a request the backend cannot serve, both to the caller and to the sink
func (b *backendState) reject(err error) error {
	b.mu.Lock()
	b.postLocked(Event{Code: EventError, Err: err})
	b.mu.Unlock()
	return err
}

func (b *backendState) current(gen uint64) bool {
	return gen == b.gen && b.state != StateReleased
}

// fromNativeLocked reports whether a native callback tagged with gen belongs to the current item
func (b *backendState) fromNativeLocked(gen uint64) bool {
	return b.current(gen) && b.attached
}

// prepared moves a loading item to Ready, reporting false for stale or unexpected callbacks
func (b *backendState) prepared(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.fromNativeLocked(gen) || b.state != StateLoading {
		log.Trace("Ignoring prepared callback", "backend", b.kind, "gen", gen, "state", b.state)
		return false
	}
	b.state = StateReady
	b.postLocked(Event{Code: EventPrepared})
	log.Debug("Source prepared", "backend", b.kind)
	return true
}

func (b *backendState) frameReady(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.fromNativeLocked(gen) || b.frameSent {
		return
	}
	switch b.state {
	case StateReady, StatePlaying, StatePaused:
		b.frameSent = true
		b.postLocked(Event{Code: EventFrameReady})
	}
}

func (b *backendState) completed(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.fromNativeLocked(gen) {
		return
	}
	switch b.state {
	case StateReady, StatePlaying, StatePaused:
		b.state = StateCompleted
		b.postLocked(Event{Code: EventCompleted})
		log.Debug("Playback completed", "backend", b.kind)
	}
}

// failed ends the current item with an error.  A failure before Prepared leaves the backend Loading.
func (b *backendState) failed(gen uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.current(gen) {
		log.Trace("Ignoring error of a replaced source", "backend", b.kind, "error", err)
		return
	}
	switch b.state {
	case StateReady, StatePlaying, StatePaused:
		b.state = StateCompleted
	case StateCompleted:
		return
	}
	b.postLocked(Event{Code: EventError, Err: err})
	log.Warn("Playback failed", "backend", b.kind, "error", err)
}

// nativeFailed is failed for errors reported by the native object
func (b *backendState) nativeFailed(gen uint64, err error) {
	b.mu.Lock()
	ours := b.fromNativeLocked(gen)
	b.mu.Unlock()

	if !ours {
		log.Trace("Ignoring error of a replaced source", "backend", b.kind, "error", err)
		return
	}
	b.failed(gen, err)
}

// setStateIf moves to a new state when the generation is current and the state is one of from
func (b *backendState) setStateIf(gen uint64, to State, from ...State) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.current(gen) || !slices.Contains(from, b.state) {
		return false
	}
	b.state = to
	return true
}

// snapshot returns the state and generation for an operation that calls into the native player without the lock
func (b *backendState) snapshot() (State, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.gen, b.usableLocked()
}

// shutdown marks the backend released and stops event delivery
func (b *backendState) shutdown() {
	b.mu.Lock()
	b.state = StateReleased
	b.gen++
	disp := b.disp
	b.mu.Unlock()

	if disp != nil {
		disp.stop()
	}
	log.Info("Playback backend released", "backend", b.kind)
}
