package responses

import (
	"time"

	stream "vodflow/stream-api/internal/domain/stream"
)

// PublishResponse reports a completed pipeline run.
type PublishResponse struct {
	EpisodeID    string    `json:"episode_id"`
	LanguageTag  string    `json:"language_tag"`
	AssetID      string    `json:"asset_id"`
	PlaylistKey  string    `json:"playlist_key"`
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expires_at"`
	SegmentCount int       `json:"segment_count"`
}

func NewPublishResponse(result *stream.PublishResult) PublishResponse {
	return PublishResponse{
		EpisodeID:    result.Key.EpisodeID,
		LanguageTag:  result.Key.LanguageTag,
		AssetID:      result.AssetID,
		PlaylistKey:  result.PlaylistKey,
		URL:          result.SignedURL,
		ExpiresAt:    result.ExpiresAt,
		SegmentCount: result.SegmentCount,
	}
}

// PlaybackResponse carries a fresh signed playlist URL.
type PlaybackResponse struct {
	EpisodeID   string    `json:"episode_id"`
	LanguageTag string    `json:"language_tag"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewPlaybackResponse(grant *stream.PlaybackGrant) PlaybackResponse {
	return PlaybackResponse{
		EpisodeID:   grant.Key.EpisodeID,
		LanguageTag: grant.Key.LanguageTag,
		URL:         grant.URL,
		ExpiresAt:   grant.ExpiresAt,
	}
}

// UploadGrantResponse carries a presigned source upload URL.
type UploadGrantResponse struct {
	BlobKey   string    `json:"blob_key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewUploadGrantResponse(grant *stream.SourceUploadGrant) UploadGrantResponse {
	return UploadGrantResponse{
		BlobKey:   grant.BlobKey,
		URL:       grant.URL,
		ExpiresAt: grant.ExpiresAt,
	}
}
