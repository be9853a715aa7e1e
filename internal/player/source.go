package player

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/PizzaHomicide/vidbridge/internal/media"
)

// Surface is the render target video output is sent to
type Surface = media.Surface

// Source is what a backend is asked to play.  The locator is an absolute path, a file:// or http(s):// URL,
// asset://<name> for a file in the host's asset directory or fd://<n> for a descriptor inherited from the host.
type Source struct {
	Locator string
	DRM     bool
}

func (s Source) String() string {
	if s.DRM {
		return s.Locator + " (drm)"
	}
	return s.Locator
}

// HostContext is what a backend needs from its host
type HostContext interface {
	// Resolve turns a source locator into something the native player can open
	Resolve(locator string) (string, error)
}

// FileHost resolves locators against the local filesystem
type FileHost struct {
	AssetDir string
}

func (h FileHost) Resolve(locator string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("%w: empty locator", ErrResourceUnavailable)
	}

	scheme, rest, hasScheme := strings.Cut(locator, "://")
	if !hasScheme || len(scheme) == 1 {
		// Plain path, or a Windows drive letter
		abs, err := filepath.Abs(locator)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
		}
		return abs, nil
	}

	switch strings.ToLower(scheme) {
	case "http", "https":
		return locator, nil
	case "file":
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("%w: invalid file URL %q: %w", ErrResourceUnavailable, locator, err)
		}
		return filepath.FromSlash(u.Path), nil
	case "asset":
		return h.resolveAsset(rest)
	case "fd":
		if runtime.GOOS == "windows" {
			return "", fmt.Errorf("%w: file descriptor sources on windows", ErrUnsupported)
		}
		fd, err := strconv.Atoi(rest)
		if err != nil || fd < 0 {
			return "", fmt.Errorf("%w: invalid file descriptor %q", ErrResourceUnavailable, rest)
		}
		return fmt.Sprintf("/dev/fd/%d", fd), nil
	default:
		// Leave other protocols to the native player
		return locator, nil
	}
}

func (h FileHost) resolveAsset(name string) (string, error) {
	if h.AssetDir == "" {
		return "", fmt.Errorf("%w: no asset directory configured", ErrResourceUnavailable)
	}
	if name == "" {
		return "", fmt.Errorf("%w: empty asset name", ErrResourceUnavailable)
	}

	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: asset %q escapes the asset directory", ErrResourceUnavailable, name)
	}

	dir, err := filepath.Abs(h.AssetDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	return filepath.Join(dir, clean), nil
}
