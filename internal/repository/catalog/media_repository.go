package catalog

import (
	"context"
	"fmt"

	"github.com/PizzaHomicide/vidbridge/internal/domain"
	"github.com/PizzaHomicide/vidbridge/internal/log"
)

type MediaRepository struct {
	client *Client
}

func NewMediaRepository(client *Client) domain.MediaRepository {
	return &MediaRepository{
		client: client,
	}
}

func (r *MediaRepository) ListMedia(ctx context.Context) ([]*domain.MediaEntry, error) {
	query := `
        query {
            media {
                id
                title
                locator
                drm
                description
                playback {
                    playCount
                    lastOutcome
                }
            }
        }
    `

	var response struct {
		Media []struct {
			ID          string
			Title       string
			Locator     string
			DRM         bool `json:"drm"`
			Description string
			Playback    *struct {
				PlayCount   int    `json:"playCount"`
				LastOutcome string `json:"lastOutcome"`
			}
		}
	}

	if err := r.client.Query(ctx, query, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch media catalog: %w", err)
	}

	entries := make([]*domain.MediaEntry, 0, len(response.Media))
	for _, m := range response.Media {
		if m.Locator == "" {
			log.Warn("Skipping catalog entry without locator", "id", m.ID, "title", m.Title)
			continue
		}

		entry := &domain.MediaEntry{
			ID:          m.ID,
			Title:       m.Title,
			Locator:     m.Locator,
			DRM:         m.DRM,
			Description: m.Description,
			Origin:      domain.OriginCatalog,
		}
		if m.Playback != nil {
			entry.UserData = &domain.UserMediaData{
				PlayCount:   m.Playback.PlayCount,
				LastOutcome: domain.PlaybackOutcome(m.Playback.LastOutcome),
			}
		}
		entries = append(entries, entry)
	}

	log.Info("Fetched media catalog", "count", len(entries))
	return entries, nil
}

func (r *MediaRepository) RecordPlayback(ctx context.Context, id string, outcome domain.PlaybackOutcome) (*domain.PlaybackRecord, error) {
	mutation := `
        mutation ($mediaId: ID!, $outcome: PlaybackOutcome!) {
            RecordPlayback(mediaId: $mediaId, outcome: $outcome) {
                mediaId
                playCount
                lastOutcome
            }
        }
    `

	variables := map[string]interface{}{
		"mediaId": id,
		"outcome": string(outcome),
	}

	var response struct {
		RecordPlayback struct {
			MediaID     string `json:"mediaId"`
			PlayCount   int    `json:"playCount"`
			LastOutcome string `json:"lastOutcome"`
		}
	}

	if err := r.client.Query(ctx, mutation, variables, &response); err != nil {
		return nil, fmt.Errorf("failed to record playback: %w", err)
	}

	log.Debug("Recorded playback with catalog", "id", id, "outcome", outcome, "play_count", response.RecordPlayback.PlayCount)

	return &domain.PlaybackRecord{
		MediaID:     response.RecordPlayback.MediaID,
		PlayCount:   response.RecordPlayback.PlayCount,
		LastOutcome: domain.PlaybackOutcome(response.RecordPlayback.LastOutcome),
	}, nil
}
