package player

import (
	"errors"
	"fmt"

	"github.com/PizzaHomicide/vidbridge/internal/media"
)

var (
	// ErrUnsupported is wrapped by every error for a request the backend cannot serve
	ErrUnsupported = errors.New("unsupported")

	ErrDRMNotSupported        = fmt.Errorf("%w: backend has no DRM support", ErrUnsupported)
	ErrDRMUnsupportedScheme   = fmt.Errorf("%w: DRM scheme not supported by engine", ErrUnsupported)
	ErrDRMUnsupportedAPILevel = fmt.Errorf("%w: engine API level too low for DRM", ErrUnsupported)

	// ErrResourceUnavailable means the media could not be resolved or opened
	ErrResourceUnavailable = media.ErrResourceUnavailable
	// ErrPlayback means the native player failed while preparing or playing
	ErrPlayback = media.ErrPlayback

	ErrNotInitialized     = errors.New("backend not initialized")
	ErrAlreadyInitialized = errors.New("backend already initialized")
	ErrReleased           = errors.New("backend released")
)
