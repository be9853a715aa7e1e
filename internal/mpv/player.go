package mpv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/media"
)

const pauseObserverID = 1

var errNotPrepared = errors.New("no prepared data source")

// Player is a media.MediaPlayer backed by its own mpv process
type Player struct {
	inst *Instance

	mu          sync.Mutex
	path        string
	item        itemLifecycle
	paused      bool
	released    bool
	onPrep      func()
	onDone      func()
	onError     func(err error) bool
	loopDone    chan struct{}
	releaseOnce sync.Once
}

var _ media.MediaPlayer = (*Player)(nil)

// NewPlayer launches mpv and returns a player controlling it
func NewPlayer(ctx context.Context, opts Options) (*Player, error) {
	inst, err := Start(ctx, opts)
	if err != nil {
		return nil, err
	}

	p := &Player{
		inst:     inst,
		paused:   true,
		loopDone: make(chan struct{}),
	}
	go p.loop()

	if err := inst.ObserveProperty(pauseObserverID, "pause"); err != nil {
		log.Warn("Failed to observe mpv pause state", "error", err)
	}

	return p, nil
}

func (p *Player) SetSurface(s media.Surface) error {
	log.Debug("Attaching mpv output", "wid", s.WindowID)
	if err := p.inst.SetProperty("wid", s.WindowID); err != nil {
		return fmt.Errorf("failed to set surface: %w", err)
	}
	return nil
}

func (p *Player) SetDataSource(path string) error {
	if path == "" {
		return fmt.Errorf("empty data source")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
	// Events of the file mpv is still playing no longer reach the listeners
	p.item.reset()
	return nil
}

// PrepareAsync loads the data source paused.  The prepared listener fires once mpv has opened it.
func (p *Player) PrepareAsync() error {
	p.mu.Lock()
	path := p.path
	if path == "" {
		p.mu.Unlock()
		return fmt.Errorf("no data source set")
	}
	p.item.begin()
	p.mu.Unlock()

	if err := p.inst.SetProperty("pause", true); err != nil {
		return fmt.Errorf("failed to pause before loading: %w", err)
	}
	if _, err := p.inst.Command("loadfile", path, "replace"); err != nil {
		p.mu.Lock()
		p.item.reset()
		p.mu.Unlock()
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Debug("mpv loading file", "path", path)
	return nil
}

func (p *Player) Start() error {
	p.mu.Lock()
	loaded := p.item.loaded
	p.mu.Unlock()
	if !loaded {
		return errNotPrepared
	}

	if err := p.inst.SetProperty("pause", false); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	return nil
}

func (p *Player) Pause() error {
	if err := p.inst.SetProperty("pause", true); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	return nil
}

func (p *Player) Stop() error {
	p.mu.Lock()
	p.item.reset()
	p.mu.Unlock()

	if _, err := p.inst.Command("stop"); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.item.loaded && !p.paused
}

func (p *Player) SetOnPrepared(fn func()) {
	p.mu.Lock()
	p.onPrep = fn
	p.mu.Unlock()
}

func (p *Player) SetOnCompletion(fn func()) {
	p.mu.Lock()
	p.onDone = fn
	p.mu.Unlock()
}

func (p *Player) SetOnError(fn func(err error) bool) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

// Release shuts mpv down.  No listener is called once it returns.
func (p *Player) Release() error {
	p.releaseOnce.Do(func() {
		p.mu.Lock()
		p.released = true
		p.mu.Unlock()

		p.inst.Close()
		<-p.loopDone
	})
	return nil
}

// loop turns mpv events into listener calls until the connection closes
func (p *Player) loop() {
	defer close(p.loopDone)

	for ev := range p.inst.Events() {
		if ev.Event == "property-change" {
			if ev.ID == pauseObserverID {
				var paused bool
				if err := json.Unmarshal(ev.Data, &paused); err == nil {
					p.mu.Lock()
					p.paused = paused
					p.mu.Unlock()
				}
			}
			continue
		}

		p.mu.Lock()
		if p.released {
			p.mu.Unlock()
			continue
		}
		t, err := p.item.apply(ev)
		onPrep, onDone, onError := p.onPrep, p.onDone, p.onError
		p.mu.Unlock()

		switch t {
		case transitionLoaded:
			log.Debug("mpv file loaded")
			if onPrep != nil {
				onPrep()
			}
		case transitionEnded:
			log.Debug("mpv playback completed")
			if onDone != nil {
				onDone()
			}
		case transitionFailed:
			p.fail(err, onError, onDone)
		}
	}

	p.mu.Lock()
	lost := !p.released && p.item.active()
	p.item.reset()
	onError, onDone := p.onError, p.onDone
	p.mu.Unlock()

	if lost {
		p.fail(fmt.Errorf("%w: mpv exited", media.ErrPlayback), onError, onDone)
	}
}

// fail reports an error, following up with completion when the error listener leaves it unhandled
func (p *Player) fail(err error, onError func(error) bool, onDone func()) {
	log.Warn("mpv playback error", "error", err)
	handled := false
	if onError != nil {
		handled = onError(err)
	}
	if !handled && onDone != nil {
		onDone()
	}
}
