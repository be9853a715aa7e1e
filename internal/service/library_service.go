package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/PizzaHomicide/vidbridge/internal/config"
	"github.com/PizzaHomicide/vidbridge/internal/domain"
	"github.com/PizzaHomicide/vidbridge/internal/log"
)

// LibraryService combines configured media entries with the remote catalog, if one is configured
type LibraryService struct {
	entries []config.LibraryEntry
	repo    domain.MediaRepository

	mu      sync.Mutex
	library []*domain.MediaEntry // Local copy of all entries, only refreshed on request
}

// NewLibraryService creates the service.  repo may be nil when no catalog is configured.
func NewLibraryService(entries []config.LibraryEntry, repo domain.MediaRepository) *LibraryService {
	return &LibraryService{
		entries: entries,
		repo:    repo,
	}
}

// Load (re)builds the library.  Configured entries are always available; a catalog failure is returned after
// they have been loaded.
func (s *LibraryService) Load(ctx context.Context) error {
	library := make([]*domain.MediaEntry, 0, len(s.entries))
	for i, e := range s.entries {
		if e.Locator == "" {
			log.Warn("Skipping library entry without locator", "title", e.Title)
			continue
		}
		library = append(library, &domain.MediaEntry{
			ID:      "config-" + strconv.Itoa(i),
			Title:   e.Title,
			Locator: e.Locator,
			DRM:     e.DRM,
			Origin:  domain.OriginConfig,
		})
	}

	var catalogErr error
	if s.repo != nil {
		remote, err := s.repo.ListMedia(ctx)
		if err != nil {
			catalogErr = fmt.Errorf("failed to load catalog: %w", err)
		} else {
			library = append(library, remote...)
		}
	}

	s.mu.Lock()
	s.library = library
	s.mu.Unlock()

	log.Info("Library loaded", "entries", len(library), "catalog_error", catalogErr)
	return catalogErr
}

// Entries returns the loaded library
func (s *LibraryService) Entries() []*domain.MediaEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library
}

// Get finds an entry by its ID
func (s *LibraryService) Get(id string) *domain.MediaEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.library {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Filter returns the entries whose title or locator fuzzily match the query, best matches first
func (s *LibraryService) Filter(query string) []*domain.MediaEntry {
	entries := s.Entries()
	if query == "" {
		return entries
	}

	type match struct {
		entry    *domain.MediaEntry
		distance int
		index    int
	}
	var matches []match

	for i, e := range entries {
		distance := -1
		for _, target := range []string{e.DisplayTitle(), e.Locator} {
			if d := fuzzy.RankMatchNormalizedFold(query, target); d >= 0 && (distance < 0 || d < distance) {
				distance = d
			}
		}
		if distance >= 0 {
			matches = append(matches, match{entry: e, distance: distance, index: i})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].index < matches[j].index
	})

	result := make([]*domain.MediaEntry, len(matches))
	for i, m := range matches {
		result[i] = m.entry
	}
	return result
}

// RecordPlayback stores the outcome of playing an entry, syncing it with the catalog for catalog entries
func (s *LibraryService) RecordPlayback(ctx context.Context, id string, outcome domain.PlaybackOutcome) error {
	entry := s.Get(id)
	if entry == nil {
		return fmt.Errorf("media entry not found with ID: %s", id)
	}

	s.mu.Lock()
	if entry.UserData == nil {
		entry.UserData = &domain.UserMediaData{}
	}
	if outcome == domain.OutcomeStarted {
		entry.UserData.PlayCount++
	}
	entry.UserData.LastOutcome = outcome
	s.mu.Unlock()

	log.Debug("Recorded playback", "id", id, "title", entry.DisplayTitle(), "outcome", outcome)

	if entry.Origin != domain.OriginCatalog || s.repo == nil {
		return nil
	}

	record, err := s.repo.RecordPlayback(ctx, id, outcome)
	if err != nil {
		return fmt.Errorf("failed to sync playback: %w", err)
	}

	s.mu.Lock()
	entry.UserData.PlayCount = record.PlayCount
	entry.UserData.LastOutcome = record.LastOutcome
	s.mu.Unlock()
	return nil
}
