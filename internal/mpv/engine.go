package mpv

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"

	"github.com/PizzaHomicide/vidbridge/internal/drm"
	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/media"
)

// mpv decrypts CENC content through libavformat, which only understands raw ClearKey keys
var supportedSchemes = []drm.Scheme{drm.SchemeClearKey}

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)`)

// Engine is a media.Engine backed by its own mpv process
type Engine struct {
	inst       *Instance
	httpClient *http.Client
	caps       media.Capabilities

	ctx    context.Context
	cancel context.CancelFunc

	// cmdMu keeps a load's property sequence from interleaving with Play and Pause
	cmdMu sync.Mutex

	mu            sync.Mutex
	item          *media.MediaItem
	lifecycle     itemLifecycle
	repeat        media.RepeatMode
	playWhenReady bool
	listener      media.EngineListener
	prepareGen    int
	prepareCancel context.CancelFunc
	released      bool

	prepares    sync.WaitGroup
	loopDone    chan struct{}
	releaseOnce sync.Once
}

var _ media.Engine = (*Engine)(nil)

// NewEngine launches mpv and returns an engine controlling it.  httpClient is used for DRM key discovery and
// license requests, http.DefaultClient when nil.
func NewEngine(ctx context.Context, opts Options, httpClient *http.Client) (*Engine, error) {
	inst, err := Start(ctx, opts)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	engineCtx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		inst:       inst,
		httpClient: httpClient,
		ctx:        engineCtx,
		cancel:     cancel,
		loopDone:   make(chan struct{}),
	}
	go e.loop()

	e.caps = e.queryCapabilities()
	log.Info("mpv engine started", "api_level", e.caps.APILevel, "drm_schemes", e.caps.DRMSchemes)

	return e, nil
}

func (e *Engine) queryCapabilities() media.Capabilities {
	caps := media.Capabilities{DRMSchemes: supportedSchemes}

	raw, err := e.inst.GetProperty("mpv-version")
	if err != nil {
		log.Warn("Failed to query mpv version", "error", err)
		return caps
	}
	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		log.Warn("Unexpected mpv version value", "data", string(raw))
		return caps
	}

	caps.APILevel = ParseAPILevel(version)
	return caps
}

// ParseAPILevel derives an API level from an mpv version string such as "mpv 0.37.0" or "mpv v0.38.0-dirty".
// The level is major*100+minor, so every 0.x release maps to its minor version.
func ParseAPILevel(version string) int {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return 0
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	return major*100 + minor
}

func (e *Engine) Capabilities() media.Capabilities {
	return e.caps
}

func (e *Engine) SetListener(l media.EngineListener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

func (e *Engine) SetVideoSurface(s media.Surface) error {
	log.Debug("Attaching mpv output", "wid", s.WindowID)
	if err := e.inst.SetProperty("wid", s.WindowID); err != nil {
		return fmt.Errorf("failed to set video surface: %w", err)
	}
	return nil
}

func (e *Engine) SetMediaItem(item media.MediaItem) error {
	if item.URI == "" {
		return fmt.Errorf("media item has no URI")
	}
	if item.DRM != nil && !e.caps.SupportsScheme(item.DRM.Scheme) {
		return fmt.Errorf("DRM scheme %s not supported by mpv", item.DRM.Scheme)
	}
	e.mu.Lock()
	e.item = &item
	// Events of the file mpv is still playing no longer reach the listener
	e.supersedeLocked()
	e.mu.Unlock()
	return nil
}

// supersedeLocked cancels a pending preparation and stops following the current file
func (e *Engine) supersedeLocked() {
	if e.prepareCancel != nil {
		e.prepareCancel()
		e.prepareCancel = nil
	}
	e.prepareGen++
	e.lifecycle.reset()
}

// Prepare starts loading the current media item.  Protected items first have their content keys fetched from the
// license server, so readiness is always reported through the listener.
func (e *Engine) Prepare() error {
	e.mu.Lock()
	if e.item == nil {
		e.mu.Unlock()
		return fmt.Errorf("no media item set")
	}
	item := *e.item
	e.supersedeLocked()
	gen := e.prepareGen
	ctx, cancel := context.WithCancel(e.ctx)
	e.prepareCancel = cancel
	e.mu.Unlock()

	if item.DRM == nil {
		return e.load(gen, item, nil)
	}

	e.prepares.Add(1)
	go func() {
		defer e.prepares.Done()

		keys, err := e.acquireKeys(ctx, item)
		if err == nil {
			err = e.load(gen, item, keys)
		}
		if err != nil && ctx.Err() == nil {
			e.reportError(gen, fmt.Errorf("%w: %w", media.ErrPlayback, err))
		}
	}()
	return nil
}

func (e *Engine) acquireKeys(ctx context.Context, item media.MediaItem) ([]drm.ContentKey, error) {
	log.Debug("Acquiring content keys", "uri", item.URI, "scheme", item.DRM.Scheme)

	kids, err := drm.DiscoverKeyIDs(ctx, e.httpClient, item.URI)
	if err != nil {
		return nil, fmt.Errorf("could not find key ids: %w", err)
	}

	keys, err := drm.NewClearKeyClient(item.DRM.LicenseURI, e.httpClient).Acquire(ctx, kids)
	if err != nil {
		return nil, err
	}
	if len(keys) > 1 {
		log.Warn("Content uses several keys, mpv can only decrypt with the first", "count", len(keys))
	}
	return keys, nil
}

var errSuperseded = errors.New("prepare superseded")

// load hands the item to mpv, unless a newer Prepare or Release happened in the meantime
func (e *Engine) load(gen int, item media.MediaItem, keys []drm.ContentKey) error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.Lock()
	if e.released || gen != e.prepareGen {
		e.mu.Unlock()
		return errSuperseded
	}
	loop := e.repeat != media.RepeatOff
	pause := !e.playWhenReady
	e.lifecycle.begin()
	e.mu.Unlock()

	decryption := ""
	if len(keys) > 0 {
		decryption = "decryption_key=" + hex.EncodeToString(keys[0].Key)
	}

	if err := e.inst.SetProperty("loop-file", loopValue(loop)); err != nil {
		return fmt.Errorf("failed to set repeat mode: %w", err)
	}
	if err := e.inst.SetProperty("demuxer-lavf-o", decryption); err != nil {
		return fmt.Errorf("failed to set decryption key: %w", err)
	}
	if err := e.inst.SetProperty("pause", pause); err != nil {
		return fmt.Errorf("failed to set pause state: %w", err)
	}
	if _, err := e.inst.Command("loadfile", item.URI, "replace"); err != nil {
		e.mu.Lock()
		e.lifecycle.reset()
		e.mu.Unlock()
		return fmt.Errorf("failed to load %s: %w", item.URI, err)
	}

	log.Debug("mpv loading media item", "uri", item.URI, "mime_type", item.MimeType, "loop", loop, "encrypted", len(keys) > 0)
	return nil
}

func loopValue(loop bool) string {
	if loop {
		return "inf"
	}
	return "no"
}

func (e *Engine) Play() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.Lock()
	e.playWhenReady = true
	e.mu.Unlock()

	if err := e.inst.SetProperty("pause", false); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	return nil
}

func (e *Engine) Pause() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.Lock()
	e.playWhenReady = false
	e.mu.Unlock()

	if err := e.inst.SetProperty("pause", true); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

func (e *Engine) SetPlayWhenReady(play bool) {
	e.mu.Lock()
	e.playWhenReady = play
	e.mu.Unlock()
}

func (e *Engine) Stop() error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.mu.Lock()
	e.supersedeLocked()
	e.mu.Unlock()

	if _, err := e.inst.Command("stop"); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// SetRepeatMode controls looping.  Items are played one at a time, so RepeatOne and RepeatAll both loop the
// current item.
func (e *Engine) SetRepeatMode(m media.RepeatMode) error {
	e.mu.Lock()
	e.repeat = m
	active := e.lifecycle.active()
	e.mu.Unlock()

	if !active {
		return nil
	}
	if err := e.inst.SetProperty("loop-file", loopValue(m != media.RepeatOff)); err != nil {
		return fmt.Errorf("failed to set repeat mode: %w", err)
	}
	return nil
}

// Release cancels pending preparation and shuts mpv down.  No listener is called once it returns.
func (e *Engine) Release() error {
	e.releaseOnce.Do(func() {
		e.mu.Lock()
		e.released = true
		e.mu.Unlock()

		e.cancel()
		e.prepares.Wait()
		e.inst.Close()
		<-e.loopDone
	})
	return nil
}

func (e *Engine) reportError(gen int, err error) {
	e.mu.Lock()
	if e.released || gen != e.prepareGen {
		e.mu.Unlock()
		return
	}
	onError := e.listener.OnError
	e.mu.Unlock()

	log.Warn("mpv engine error", "error", err)
	if onError != nil {
		onError(err)
	}
}

// loop turns mpv events into listener calls until the connection closes
func (e *Engine) loop() {
	defer close(e.loopDone)

	for ev := range e.inst.Events() {
		e.mu.Lock()
		if e.released {
			e.mu.Unlock()
			continue
		}
		t, err := e.lifecycle.apply(ev)
		l := e.listener
		e.mu.Unlock()

		switch t {
		case transitionLoaded:
			log.Debug("mpv media item ready")
			if l.OnReady != nil {
				l.OnReady()
			}
		case transitionFirstFrame:
			log.Trace("mpv rendered first frame")
			if l.OnFirstFrame != nil {
				l.OnFirstFrame()
			}
		case transitionEnded:
			log.Debug("mpv media item ended")
			if l.OnEnded != nil {
				l.OnEnded()
			}
		case transitionFailed:
			log.Warn("mpv engine error", "error", err)
			if l.OnError != nil {
				l.OnError(err)
			}
		}
	}

	e.mu.Lock()
	lost := !e.released && e.lifecycle.active()
	e.lifecycle.reset()
	onError := e.listener.OnError
	e.mu.Unlock()

	if lost && onError != nil {
		onError(fmt.Errorf("%w: mpv exited", media.ErrPlayback))
	}
}
