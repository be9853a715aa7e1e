package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/media"
)

// PlayerFactory creates the native media player of a PlatformBackend
type PlayerFactory func(ctx context.Context) (media.MediaPlayer, error)

// PlatformBackend plays sources on a plain media player.  It has no DRM support.
type PlatformBackend struct {
	backendState

	newPlayer PlayerFactory
	player    media.MediaPlayer
}

var _ Backend = (*PlatformBackend)(nil)

// NewPlatformBackend creates a backend whose media player is made by newPlayer during Init
func NewPlatformBackend(newPlayer PlayerFactory) *PlatformBackend {
	return &PlatformBackend{
		backendState: backendState{kind: "platform"},
		newPlayer:    newPlayer,
	}
}

func (b *PlatformBackend) Init(host HostContext, sink EventSink) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkInitLocked(); err != nil {
		return err
	}

	mp, err := b.newPlayer(context.Background())
	if err != nil {
		log.Error("Failed to create media player", "error", err)
		return fmt.Errorf("%w: failed to create media player: %w", ErrResourceUnavailable, err)
	}
	b.player = mp
	b.initLocked(host, sink)
	return nil
}

func (b *PlatformBackend) SetSurface(s Surface) error {
	if err := b.usable(); err != nil {
		return err
	}
	return b.player.SetSurface(s)
}

func (b *PlatformBackend) Load(src Source) error {
	b.mu.Lock()
	if err := b.usableLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	host := b.host
	b.mu.Unlock()

	log.Info("Loading source", "backend", b.kind, "source", src)

	if src.DRM {
		log.Warn("DRM source rejected, backend has no DRM support", "backend", b.kind, "locator", src.Locator)
		return b.reject(fmt.Errorf("%w: %s", ErrDRMNotSupported, src.Locator))
	}

	b.mu.Lock()
	gen := b.beginLoadLocked()
	b.mu.Unlock()

	path, err := host.Resolve(src.Locator)
	if err != nil {
		b.abandon(gen, err)
		if errors.Is(err, ErrUnsupported) {
			return err
		}
		return nil
	}

	b.player.SetOnPrepared(func() { b.onPrepared(gen) })
	b.player.SetOnCompletion(func() { b.completed(gen) })
	b.player.SetOnError(func(err error) bool {
		b.nativeFailed(gen, err)
		// Handled: the error ends the item, so no completion follows it
		return true
	})

	if err := b.player.SetDataSource(path); err != nil {
		b.abandon(gen, fmt.Errorf("%w: %w", ErrResourceUnavailable, err))
		return nil
	}
	b.attach(gen)
	if err := b.player.PrepareAsync(); err != nil {
		b.abandon(gen, fmt.Errorf("%w: %w", ErrPlayback, err))
		return nil
	}
	return nil
}

// abandon fails a load that never reached the media player, stopping the item it was still playing
func (b *PlatformBackend) abandon(gen uint64, err error) {
	if stopErr := b.player.Stop(); stopErr != nil {
		log.Warn("Failed to stop media player", "error", stopErr)
	}
	b.failed(gen, err)
}

func (b *PlatformBackend) onPrepared(gen uint64) {
	if !b.prepared(gen) {
		return
	}
	if err := b.player.Start(); err != nil {
		b.failed(gen, fmt.Errorf("%w: failed to start playback: %w", ErrPlayback, err))
		return
	}
	b.setStateIf(gen, StatePlaying, StateReady)
}

func (b *PlatformBackend) Play() error {
	state, gen, err := b.snapshot()
	if err != nil {
		return err
	}
	if state != StateReady && state != StatePaused {
		log.Trace("Ignoring play", "backend", b.kind, "state", state)
		return nil
	}

	if err := b.player.Start(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	b.setStateIf(gen, StatePlaying, StateReady, StatePaused)
	return nil
}

func (b *PlatformBackend) Pause() error {
	state, gen, err := b.snapshot()
	if err != nil {
		return err
	}
	if state != StatePlaying {
		log.Trace("Ignoring pause", "backend", b.kind, "state", state)
		return nil
	}

	if err := b.player.Pause(); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	b.setStateIf(gen, StatePaused, StatePlaying)
	return nil
}

func (b *PlatformBackend) Release() error {
	var err error
	b.releaseOnce.Do(func() {
		b.mu.Lock()
		mp := b.player
		b.mu.Unlock()

		b.shutdown()

		if mp != nil {
			if err = mp.Release(); err != nil {
				log.Warn("Failed to release media player", "error", err)
			}
		}
	})
	return err
}
