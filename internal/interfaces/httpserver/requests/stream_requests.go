package requests

import (
	"encoding/base64"
	"fmt"

	stream "vodflow/stream-api/internal/domain/stream"
)

// SourcePayload describes where the raw upload lives.
type SourcePayload struct {
	Type       string `json:"type" binding:"required"`
	DataBase64 string `json:"data_base64"`
	Path       string `json:"path"`
	BlobKey    string `json:"blob_key"`
}

// PublishRequest submits one transcode job.
type PublishRequest struct {
	Source         SourcePayload `json:"source" binding:"required"`
	EpisodeID      string        `json:"episode_id" binding:"required"`
	LanguageTag    string        `json:"language_tag" binding:"required"`
	Category       string        `json:"category"`
	SegmentSeconds int           `json:"segment_seconds"`
}

// ToDomain converts the request to the domain model.
func (r *PublishRequest) ToDomain() (*stream.PublishRequest, error) {
	src := stream.Source{
		Type:    stream.SourceType(r.Source.Type),
		Path:    r.Source.Path,
		BlobKey: r.Source.BlobKey,
	}
	if r.Source.DataBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(r.Source.DataBase64)
		if err != nil {
			return nil, fmt.Errorf("data_base64 is not valid base64: %w", err)
		}
		src.Data = data
	}
	return &stream.PublishRequest{
		Source: src,
		Key: stream.AssetKey{
			EpisodeID:   r.EpisodeID,
			LanguageTag: r.LanguageTag,
		},
		Category:       r.Category,
		SegmentSeconds: r.SegmentSeconds,
	}, nil
}

// PrepareUploadRequest asks for a presigned source upload URL.
type PrepareUploadRequest struct {
	MimeType string `json:"mime_type" binding:"required"`
}
