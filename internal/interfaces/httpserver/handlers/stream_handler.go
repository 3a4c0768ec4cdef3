package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vodflow/stream-api/internal/config"
	stream "vodflow/stream-api/internal/domain/stream"
	"vodflow/stream-api/internal/interfaces/httpserver/requests"
	"vodflow/stream-api/internal/interfaces/httpserver/responses"
	"vodflow/stream-api/internal/utils/platformerrors"
)

// StreamService is the pipeline surface the handler depends on.
type StreamService interface {
	Publish(ctx context.Context, req stream.PublishRequest) (*stream.PublishResult, error)
	PlaybackURL(ctx context.Context, key stream.AssetKey) (*stream.PlaybackGrant, error)
	Refresh(ctx context.Context, key stream.AssetKey) (*stream.PlaybackGrant, error)
	PrepareSourceUpload(ctx context.Context, contentType string) (*stream.SourceUploadGrant, error)
}

// StreamHandler exposes the pipeline endpoints.
type StreamHandler struct {
	cfg     *config.Config
	service StreamService
	log     zerolog.Logger
}

func NewStreamHandler(cfg *config.Config, service StreamService, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "stream-handler").Logger(),
	}
}

// Publish accepts a source video and runs the whole pipeline: stage,
// transcode, upload, sign. Responds only once the rendition is durable.
func (h *StreamHandler) Publish(c *gin.Context) {
	var req requests.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "d5f7a9b1-3e5a-4c7d-9f0b-2c4e6a8b0d2e")
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "f7a9b1c3-5a7c-4d9e-8b1d-4e6f8a0c2e4f")
		return
	}

	result, err := h.service.Publish(c.Request.Context(), *domainReq)
	if err != nil {
		responses.HandleError(c, err, "publish failed")
		return
	}

	c.JSON(http.StatusOK, responses.NewPublishResponse(result))
}

// Playback returns a fresh signed playlist URL for a published rendition.
func (h *StreamHandler) Playback(c *gin.Context) {
	key := stream.AssetKey{
		EpisodeID:   c.Param("episode_id"),
		LanguageTag: c.Param("language_tag"),
	}

	grant, err := h.service.PlaybackURL(c.Request.Context(), key)
	if err != nil {
		responses.HandleError(c, err, "playback url failed")
		return
	}

	c.JSON(http.StatusOK, responses.NewPlaybackResponse(grant))
}

// Refresh re-signs the playlist in the foreground. A concurrent refresh for
// the same asset yields 409.
func (h *StreamHandler) Refresh(c *gin.Context) {
	key := stream.AssetKey{
		EpisodeID:   c.Param("episode_id"),
		LanguageTag: c.Param("language_tag"),
	}

	grant, err := h.service.Refresh(c.Request.Context(), key)
	if err != nil {
		responses.HandleError(c, err, "refresh failed")
		return
	}

	c.JSON(http.StatusOK, responses.NewPlaybackResponse(grant))
}

// PrepareUpload mints a presigned PUT URL for a raw source object, which the
// caller later submits as a blob_key source.
func (h *StreamHandler) PrepareUpload(c *gin.Context) {
	var req requests.PrepareUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error(), "a9b1c3d5-7c9e-4f1a-8d2e-6f8b0d2f4a6c")
		return
	}

	grant, err := h.service.PrepareSourceUpload(c.Request.Context(), req.MimeType)
	if err != nil {
		responses.HandleError(c, err, "prepare upload failed")
		return
	}

	c.JSON(http.StatusOK, responses.NewUploadGrantResponse(grant))
}
