package player

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PizzaHomicide/vidbridge/internal/drm"
	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/media"
)

// EngineFactory creates the native engine of an ExtendedBackend
type EngineFactory func(ctx context.Context) (media.Engine, error)

// ExtendedOptions configure an ExtendedBackend
type ExtendedOptions struct {
	Repeat media.RepeatMode
	// DRMScheme and LicenseURL are attached to every DRM source
	DRMScheme  drm.Scheme
	LicenseURL string
	// MinAPILevel is the lowest engine API level DRM playback is attempted on
	MinAPILevel int
}

// DefaultExtendedOptions loop forever and protect DRM sources with ClearKey
func DefaultExtendedOptions() ExtendedOptions {
	return ExtendedOptions{
		Repeat:    media.RepeatAll,
		DRMScheme: drm.SchemeClearKey,
	}
}

// ExtendedBackend plays sources on an engine with adaptive streaming, repeat modes and DRM
type ExtendedBackend struct {
	backendState

	opts      ExtendedOptions
	newEngine EngineFactory
	engine    media.Engine
}

var _ Backend = (*ExtendedBackend)(nil)

// NewExtendedBackend creates a backend whose engine is made by newEngine during Init
func NewExtendedBackend(newEngine EngineFactory, opts ExtendedOptions) *ExtendedBackend {
	return &ExtendedBackend{
		backendState: backendState{kind: "extended"},
		opts:         opts,
		newEngine:    newEngine,
	}
}

func (b *ExtendedBackend) Init(host HostContext, sink EventSink) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkInitLocked(); err != nil {
		return err
	}

	engine, err := b.newEngine(context.Background())
	if err != nil {
		log.Error("Failed to create playback engine", "error", err)
		return fmt.Errorf("%w: failed to create engine: %w", ErrResourceUnavailable, err)
	}
	b.engine = engine
	b.initLocked(host, sink)
	return nil
}

func (b *ExtendedBackend) SetSurface(s Surface) error {
	if err := b.usable(); err != nil {
		return err
	}
	return b.engine.SetVideoSurface(s)
}

func (b *ExtendedBackend) Load(src Source) error {
	b.mu.Lock()
	if err := b.usableLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	host := b.host
	b.mu.Unlock()

	log.Info("Loading source", "backend", b.kind, "source", src, "repeat", b.opts.Repeat)

	if src.DRM {
		if err := b.checkDRM(src); err != nil {
			return b.reject(err)
		}
	}

	b.mu.Lock()
	gen := b.beginLoadLocked()
	b.mu.Unlock()

	uri, err := host.Resolve(src.Locator)
	if err != nil {
		b.abandon(gen, err)
		if errors.Is(err, ErrUnsupported) {
			return err
		}
		return nil
	}

	item := media.MediaItem{
		URI:      uri,
		MimeType: media.InferMimeType(uri),
		Title:    src.Locator,
	}
	if src.DRM {
		item.DRM = &media.DRMConfiguration{
			Scheme:     b.opts.DRMScheme,
			LicenseURI: b.opts.LicenseURL,
		}
	}
	log.Debug("Built media item", "uri", item.URI, "mime_type", item.MimeType, "adaptive", item.MimeType.IsAdaptive())

	b.engine.SetListener(media.EngineListener{
		OnReady:      func() { b.onReady(gen) },
		OnFirstFrame: func() { b.frameReady(gen) },
		OnEnded:      func() { b.completed(gen) },
		OnError:      func(err error) { b.nativeFailed(gen, err) },
	})

	if err := b.engine.SetMediaItem(item); err != nil {
		b.abandon(gen, fmt.Errorf("%w: %w", ErrResourceUnavailable, err))
		return nil
	}
	b.attach(gen)
	if err := b.engine.SetRepeatMode(b.opts.Repeat); err != nil {
		log.Warn("Failed to set repeat mode", "mode", b.opts.Repeat, "error", err)
	}
	// Start as soon as the engine is ready
	b.engine.SetPlayWhenReady(true)
	if err := b.engine.Prepare(); err != nil {
		b.abandon(gen, fmt.Errorf("%w: %w", ErrPlayback, err))
		return nil
	}
	return nil
}

// abandon fails a load that never reached the engine, stopping the item it was still playing
func (b *ExtendedBackend) abandon(gen uint64, err error) {
	if stopErr := b.engine.Stop(); stopErr != nil {
		log.Warn("Failed to stop engine", "error", stopErr)
	}
	b.failed(gen, err)
}

// checkDRM validates a DRM source against the engine before anything is committed
func (b *ExtendedBackend) checkDRM(src Source) error {
	caps := b.engine.Capabilities()

	if caps.APILevel < b.opts.MinAPILevel {
		log.Warn("DRM source rejected, engine API level too low",
			"backend", b.kind, "api_level", caps.APILevel, "min_api_level", b.opts.MinAPILevel)
		return fmt.Errorf("%w: have %d, need %d", ErrDRMUnsupportedAPILevel, caps.APILevel, b.opts.MinAPILevel)
	}
	if !caps.SupportsScheme(b.opts.DRMScheme) {
		log.Warn("DRM source rejected, scheme not supported by engine",
			"backend", b.kind, "scheme", b.opts.DRMScheme, "supported", caps.DRMSchemes)
		return fmt.Errorf("%w: %s", ErrDRMUnsupportedScheme, b.opts.DRMScheme)
	}
	if strings.HasPrefix(strings.ToLower(src.Locator), "http://") || strings.HasPrefix(strings.ToLower(b.opts.LicenseURL), "http://") {
		log.Warn("DRM source uses cleartext HTTP", "locator", src.Locator, "license_url", b.opts.LicenseURL)
	}
	return nil
}

func (b *ExtendedBackend) onReady(gen uint64) {
	if !b.prepared(gen) {
		return
	}
	// The engine was told to play on readiness in Load
	b.setStateIf(gen, StatePlaying, StateReady)
}

func (b *ExtendedBackend) Play() error {
	state, gen, err := b.snapshot()
	if err != nil {
		return err
	}
	if state != StateReady && state != StatePaused {
		log.Trace("Ignoring play", "backend", b.kind, "state", state)
		return nil
	}

	if err := b.engine.Play(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	b.setStateIf(gen, StatePlaying, StateReady, StatePaused)
	return nil
}

func (b *ExtendedBackend) Pause() error {
	state, gen, err := b.snapshot()
	if err != nil {
		return err
	}
	if state != StatePlaying {
		log.Trace("Ignoring pause", "backend", b.kind, "state", state)
		return nil
	}

	if err := b.engine.Pause(); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	b.setStateIf(gen, StatePaused, StatePlaying)
	return nil
}

func (b *ExtendedBackend) Release() error {
	var err error
	b.releaseOnce.Do(func() {
		b.mu.Lock()
		engine := b.engine
		b.mu.Unlock()

		b.shutdown()

		if engine != nil {
			if err = engine.Release(); err != nil {
				log.Warn("Failed to release engine", "error", err)
			}
		}
	})
	return err
}
