// Package drm holds the DRM schemes the extended backend knows about, the ClearKey license exchange and the
// discovery of content key ids from MP4 init segments and DASH manifests.
package drm

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Scheme identifies a DRM system
type Scheme string

const (
	SchemeWidevine  Scheme = "widevine"
	SchemePlayReady Scheme = "playready"
	SchemeClearKey  Scheme = "clearkey"
)

// System ids as registered with DASH-IF and used in pssh boxes
var (
	WidevineSystemID  = uuid.MustParse("edef8ba9-79d6-4ace-a3c8-27dcd51d21ed")
	PlayReadySystemID = uuid.MustParse("9a04f079-9840-4286-ab92-e65be0885f95")
	ClearKeySystemID  = uuid.MustParse("1077efec-c0b2-4d02-ace3-3c1e52e2fb4b")
)

// ParseScheme converts a configured scheme name, or a system id, to a Scheme
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "widevine":
		return SchemeWidevine, nil
	case "playready":
		return SchemePlayReady, nil
	case "clearkey":
		return SchemeClearKey, nil
	}

	if id, err := uuid.Parse(s); err == nil {
		switch id {
		case WidevineSystemID:
			return SchemeWidevine, nil
		case PlayReadySystemID:
			return SchemePlayReady, nil
		case ClearKeySystemID:
			return SchemeClearKey, nil
		}
	}

	return "", fmt.Errorf("unknown DRM scheme %q", s)
}

// SystemID returns the DRM system id of the scheme
func (s Scheme) SystemID() uuid.UUID {
	switch s {
	case SchemeWidevine:
		return WidevineSystemID
	case SchemePlayReady:
		return PlayReadySystemID
	case SchemeClearKey:
		return ClearKeySystemID
	default:
		return uuid.Nil
	}
}

func (s Scheme) String() string {
	return string(s)
}
