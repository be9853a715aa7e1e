package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/vidbridge/internal/config"
	"github.com/PizzaHomicide/vidbridge/internal/domain"
)

type fakeRepository struct {
	media     []*domain.MediaEntry
	listErr   error
	recordErr error
	recorded  []domain.PlaybackOutcome
}

func (r *fakeRepository) ListMedia(ctx context.Context) ([]*domain.MediaEntry, error) {
	return r.media, r.listErr
}

func (r *fakeRepository) RecordPlayback(ctx context.Context, id string, outcome domain.PlaybackOutcome) (*domain.PlaybackRecord, error) {
	if r.recordErr != nil {
		return nil, r.recordErr
	}
	r.recorded = append(r.recorded, outcome)
	return &domain.PlaybackRecord{MediaID: id, PlayCount: 10, LastOutcome: outcome}, nil
}

var configured = []config.LibraryEntry{
	{Title: "Big Buck Bunny", Locator: "https://cdn.example/bbb.mp4"},
	{Title: "Sintel", Locator: "https://cdn.example/sintel.mpd", DRM: true},
	{Title: "No locator"},
	{Locator: "/media/holiday.mkv"},
}

func TestLibraryLoad(t *testing.T) {
	t.Run("ConfigOnly", func(t *testing.T) {
		s := NewLibraryService(configured, nil)
		require.NoError(t, s.Load(context.Background()))

		entries := s.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, "config-0", entries[0].ID)
		assert.Equal(t, domain.OriginConfig, entries[0].Origin)
		assert.True(t, entries[1].DRM)
		assert.Equal(t, "/media/holiday.mkv", entries[2].DisplayTitle())
	})

	t.Run("WithCatalog", func(t *testing.T) {
		repo := &fakeRepository{media: []*domain.MediaEntry{
			{ID: "m1", Title: "Tears of Steel", Locator: "https://cdn.example/tos.m3u8", Origin: domain.OriginCatalog},
		}}
		s := NewLibraryService(configured, repo)
		require.NoError(t, s.Load(context.Background()))

		assert.Len(t, s.Entries(), 4)
		assert.Equal(t, "Tears of Steel", s.Get("m1").Title)
		assert.Nil(t, s.Get("missing"))
	})

	t.Run("CatalogFailureKeepsConfigEntries", func(t *testing.T) {
		repo := &fakeRepository{listErr: errors.New("connection refused")}
		s := NewLibraryService(configured, repo)

		err := s.Load(context.Background())
		assert.ErrorContains(t, err, "connection refused")
		assert.Len(t, s.Entries(), 3)
	})
}

func TestLibraryFilter(t *testing.T) {
	s := NewLibraryService(configured, nil)
	require.NoError(t, s.Load(context.Background()))

	assert.Len(t, s.Filter(""), 3)

	result := s.Filter("bunny")
	require.Len(t, result, 1)
	assert.Equal(t, "Big Buck Bunny", result[0].Title)

	result = s.Filter("SINTEL")
	require.Len(t, result, 1)
	assert.Equal(t, "Sintel", result[0].Title)

	// Locators are searched too
	result = s.Filter("holiday")
	require.Len(t, result, 1)
	assert.Equal(t, "/media/holiday.mkv", result[0].Locator)

	assert.Empty(t, s.Filter("zzz"))
}

func TestRecordPlayback(t *testing.T) {
	repo := &fakeRepository{media: []*domain.MediaEntry{
		{ID: "m1", Title: "Tears of Steel", Locator: "https://cdn.example/tos.m3u8", Origin: domain.OriginCatalog},
	}}
	s := NewLibraryService(configured, repo)
	require.NoError(t, s.Load(context.Background()))

	t.Run("ConfigEntryStaysLocal", func(t *testing.T) {
		require.NoError(t, s.RecordPlayback(context.Background(), "config-0", domain.OutcomeStarted))
		require.NoError(t, s.RecordPlayback(context.Background(), "config-0", domain.OutcomeCompleted))

		entry := s.Get("config-0")
		assert.Equal(t, 1, entry.UserData.PlayCount)
		assert.Equal(t, domain.OutcomeCompleted, entry.UserData.LastOutcome)
		assert.Empty(t, repo.recorded)
	})

	t.Run("CatalogEntrySynced", func(t *testing.T) {
		require.NoError(t, s.RecordPlayback(context.Background(), "m1", domain.OutcomeStarted))

		entry := s.Get("m1")
		assert.Equal(t, 10, entry.UserData.PlayCount)
		assert.Equal(t, []domain.PlaybackOutcome{domain.OutcomeStarted}, repo.recorded)
	})

	t.Run("SyncFailure", func(t *testing.T) {
		repo.recordErr = errors.New("unavailable")
		err := s.RecordPlayback(context.Background(), "m1", domain.OutcomeFailed)
		assert.ErrorContains(t, err, "unavailable")
		assert.Equal(t, domain.OutcomeFailed, s.Get("m1").UserData.LastOutcome)
	})

	t.Run("UnknownEntry", func(t *testing.T) {
		assert.Error(t, s.RecordPlayback(context.Background(), "nope", domain.OutcomeStarted))
	})
}
