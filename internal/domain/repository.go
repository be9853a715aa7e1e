package domain

import "context"

// MediaRepository defines the interface for remote media catalog access
type MediaRepository interface {
	// ListMedia retrieves every entry the catalog offers
	ListMedia(ctx context.Context) ([]*MediaEntry, error)

	// RecordPlayback reports the outcome of playing an entry back to the catalog
	RecordPlayback(ctx context.Context, id string, outcome PlaybackOutcome) (*PlaybackRecord, error)
}

// PlaybackRecord is the catalog's view of an entry after a playback was recorded
type PlaybackRecord struct {
	MediaID     string
	PlayCount   int
	LastOutcome PlaybackOutcome
}
