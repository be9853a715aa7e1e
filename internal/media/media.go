// Package media defines the contracts of the native player objects the playback backends are built on.
package media

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/PizzaHomicide/vidbridge/internal/drm"
)

// Errors reported by native players through their error listeners
var (
	ErrResourceUnavailable = errors.New("media resource unavailable")
	ErrPlayback            = errors.New("playback failed")
)

// Surface is the render target video output is sent to.  A zero WindowID detaches output from any host window.
type Surface struct {
	WindowID int64
}

// MimeType of a media item
type MimeType string

const (
	MimeTypeDASH     MimeType = "application/dash+xml"
	MimeTypeHLS      MimeType = "application/x-mpegURL"
	MimeTypeSS       MimeType = "application/vnd.ms-sstr+xml"
	MimeTypeVideoMP4 MimeType = "video/mp4"
)

// InferMimeType guesses the MIME type of a URI from its extension.  Unknown extensions are treated as progressive MP4.
func InferMimeType(uri string) MimeType {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	lower := strings.ToLower(p)

	switch {
	case strings.HasSuffix(lower, ".mpd"):
		return MimeTypeDASH
	case strings.HasSuffix(lower, ".m3u8"):
		return MimeTypeHLS
	case strings.HasSuffix(lower, ".ism/manifest"), strings.HasSuffix(lower, ".isml/manifest"), path.Ext(lower) == ".ism":
		return MimeTypeSS
	default:
		return MimeTypeVideoMP4
	}
}

// IsAdaptive reports whether the MIME type is a streaming manifest rather than a single file
func (m MimeType) IsAdaptive() bool {
	return m == MimeTypeDASH || m == MimeTypeHLS || m == MimeTypeSS
}

// DRMConfiguration describes how a protected media item obtains its keys
type DRMConfiguration struct {
	Scheme     drm.Scheme
	LicenseURI string
}

// MediaItem describes what the engine should play
type MediaItem struct {
	URI      string
	MimeType MimeType
	Title    string
	DRM      *DRMConfiguration
}

// RepeatMode controls what the engine does when an item finishes
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

// ParseRepeatMode converts a configured repeat mode name
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(s) {
	case "off", "none":
		return RepeatOff, nil
	case "one":
		return RepeatOne, nil
	case "all", "":
		return RepeatAll, nil
	default:
		return RepeatOff, fmt.Errorf("unknown repeat mode %q", s)
	}
}

func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return fmt.Sprintf("RepeatMode(%d)", int(m))
	}
}

// Capabilities of an engine, reported once it is running
type Capabilities struct {
	// APILevel is an engine specific version number DRM support is gated on
	APILevel   int
	DRMSchemes []drm.Scheme
}

// SupportsScheme reports whether the engine can play content protected with the scheme
func (c Capabilities) SupportsScheme(s drm.Scheme) bool {
	return slices.Contains(c.DRMSchemes, s)
}

// MediaPlayer is the plain native player: one data source at a time, three listeners, no DRM.
// Listeners are called on the player's own event goroutine.
type MediaPlayer interface {
	SetSurface(s Surface) error
	SetDataSource(path string) error
	PrepareAsync() error
	Start() error
	Pause() error
	Stop() error
	IsPlaying() bool
	SetOnPrepared(fn func())
	SetOnCompletion(fn func())
	// SetOnError registers the error listener.  Its return value reports whether the error was handled; an
	// unhandled error is followed by the completion listener.
	SetOnError(fn func(err error) bool)
	Release() error
}

// EngineListener receives engine callbacks.  Nil fields are skipped.
type EngineListener struct {
	OnReady      func()
	OnFirstFrame func()
	OnEnded      func()
	OnError      func(err error)
}

// Engine is the richer native player: media items, adaptive streaming, repeat modes and DRM.
// Listener callbacks are called on the engine's own event goroutine.
type Engine interface {
	SetVideoSurface(s Surface) error
	SetMediaItem(item MediaItem) error
	Prepare() error
	Play() error
	Pause() error
	// SetPlayWhenReady decides whether the next prepared item starts on its own.  It does not touch the current one.
	SetPlayWhenReady(play bool)
	// Stop abandons the current item, including one still being prepared
	Stop() error
	SetRepeatMode(m RepeatMode) error
	Capabilities() Capabilities
	SetListener(l EngineListener)
	Release() error
}
