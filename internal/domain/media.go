package domain

// MediaOrigin records where a library entry came from
type MediaOrigin string

const (
	OriginConfig  MediaOrigin = "config"
	OriginCatalog MediaOrigin = "catalog"
)

// PlaybackOutcome is how a playback attempt of an entry ended
type PlaybackOutcome string

const (
	OutcomeStarted   PlaybackOutcome = "STARTED"
	OutcomeCompleted PlaybackOutcome = "COMPLETED"
	OutcomeFailed    PlaybackOutcome = "FAILED"
)

// MediaEntry is a playable item of the library
type MediaEntry struct {
	ID          string
	Title       string
	Locator     string
	DRM         bool
	Description string
	Origin      MediaOrigin
	UserData    *UserMediaData
}

// UserMediaData is what the host remembers about playing an entry
type UserMediaData struct {
	PlayCount   int
	LastOutcome PlaybackOutcome
}

// DisplayTitle falls back to the locator for untitled entries
func (m *MediaEntry) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Locator
}
