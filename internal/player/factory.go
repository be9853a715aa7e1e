package player

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PizzaHomicide/vidbridge/internal/config"
	"github.com/PizzaHomicide/vidbridge/internal/drm"
	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/media"
	"github.com/PizzaHomicide/vidbridge/internal/mpv"
)

const (
	BackendPlatform = "platform"
	BackendExtended = "extended"
)

// CreateBackend creates the backend selected by the configuration, backed by mpv
func CreateBackend(cfg *config.Config) (Backend, error) {
	backendType := cfg.Player.Backend
	log.Info("Creating playback backend", "type", backendType)

	opts := mpvOptions(cfg)

	switch backendType {
	case BackendPlatform:
		return NewPlatformBackend(func(ctx context.Context) (media.MediaPlayer, error) {
			return mpv.NewPlayer(ctx, opts)
		}), nil
	case BackendExtended, "":
		return newExtendedFromConfig(cfg, opts)
	default:
		return nil, fmt.Errorf("invalid player config: unknown backend %q, want %q or %q", backendType, BackendPlatform, BackendExtended)
	}
}

func newExtendedFromConfig(cfg *config.Config, opts mpv.Options) (*ExtendedBackend, error) {
	repeat, err := media.ParseRepeatMode(cfg.Player.Repeat)
	if err != nil {
		return nil, fmt.Errorf("invalid player config: %w", err)
	}
	scheme, err := drm.ParseScheme(cfg.DRM.Scheme)
	if err != nil {
		return nil, fmt.Errorf("invalid drm config: %w", err)
	}

	extOpts := ExtendedOptions{
		Repeat:      repeat,
		DRMScheme:   scheme,
		LicenseURL:  cfg.DRM.LicenseURL,
		MinAPILevel: cfg.DRM.MinAPILevel,
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}

	return NewExtendedBackend(func(ctx context.Context) (media.Engine, error) {
		return mpv.NewEngine(ctx, opts, httpClient)
	}, extOpts), nil
}

func mpvOptions(cfg *config.Config) mpv.Options {
	return mpv.Options{
		Path:           cfg.Player.Path,
		Args:           cfg.Player.Args,
		SocketDir:      cfg.Player.SocketDir,
		NoWindow:       cfg.Player.NoWindow,
		ConnectTimeout: time.Duration(cfg.Player.ConnectTimeoutSeconds) * time.Second,
	}
}
