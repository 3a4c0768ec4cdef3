package stream

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"vodflow/stream-api/internal/config"
	"vodflow/stream-api/internal/infrastructure/metrics"
	"vodflow/stream-api/internal/infrastructure/transcoder"
	"vodflow/stream-api/internal/utils/platformerrors"
	"vodflow/stream-api/utils/assetid"
)

// Repository defines persistence operations needed by the service.
type Repository interface {
	Upsert(ctx context.Context, obj *MediaAsset) error
	GetByKey(ctx context.Context, key AssetKey) (*MediaAsset, error)
	ListExpiring(ctx context.Context, deadline time.Time) ([]*MediaAsset, error)
	RecordRefresh(ctx context.Context, key AssetKey, refreshedAt, expiresAt time.Time) error
}

// ObjectStore defines the object store gateway operations.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
	PresignPut(ctx context.Context, key string, contentType string, ttl time.Duration) (string, time.Time, error)
	Health(ctx context.Context) error
}

// Service orchestrates the transcode-and-deliver pipeline: stage, transcode,
// upload, sign, and background refresh.
type Service struct {
	cfg   *config.Config
	repo  Repository
	store ObjectStore
	enc   transcoder.Transcoder
	log   zerolog.Logger

	// jobSlots bounds concurrent transcode jobs; each job owns one encoder
	// process and one scratch directory.
	jobSlots chan struct{}

	// guard enforces at most one in-flight refresh per asset key. A losing
	// refresh attempt is dropped, not queued.
	guardMu sync.Mutex
	guard   map[AssetKey]struct{}
}

func NewService(cfg *config.Config, repo Repository, store ObjectStore, enc transcoder.Transcoder, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		repo:     repo,
		store:    store,
		enc:      enc,
		log:      log.With().Str("component", "stream-service").Logger(),
		jobSlots: make(chan struct{}, cfg.MaxConcurrentJobs),
		guard:    make(map[AssetKey]struct{}),
	}
}

// job tracks one transcode request through its states. Owned by a single
// worker; never shared.
type job struct {
	req     PublishRequest
	assetID string
	state   JobState
}

func (j *job) transition(log zerolog.Logger, next JobState) {
	log.Debug().
		Str("asset_id", j.assetID).
		Str("from", string(j.state)).
		Str("to", string(next)).
		Msg("job state change")
	j.state = next
}

// Publish runs the full pipeline for one submitted source. The MediaAsset
// record is written only after the playlist, every segment and a first signed
// URL are durable, so no partially-visible asset ever reaches the catalog.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.Key.EpisodeID == "" || req.Key.LanguageTag == "" {
		return nil, s.invalid(ctx, "episode_id and language_tag are required")
	}
	if req.Category == "" {
		req.Category = CategoryEpisode
	}
	if req.SegmentSeconds <= 0 {
		req.SegmentSeconds = s.cfg.SegmentSeconds
	}

	select {
	case s.jobSlots <- struct{}{}:
		defer func() { <-s.jobSlots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	j := &job{req: req, assetID: assetid.New()}
	start := time.Now()
	result, err := s.runJob(ctx, j)
	if err != nil {
		j.transition(s.log, JobFailed)
		metrics.RecordTranscode("failure", time.Since(start).Seconds())
		perr := platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "publish failed")
		platformerrors.LogError(s.log, perr)
		return nil, perr
	}
	metrics.RecordTranscode("success", time.Since(start).Seconds())
	return result, nil
}

func (s *Service) runJob(ctx context.Context, j *job) (*PublishResult, error) {
	ws, err := s.Stage(ctx, j.req.Source)
	if err != nil {
		return nil, err
	}
	// Scratch space is released on every path, including panics further down.
	defer func() {
		if err := ws.Close(); err != nil {
			s.log.Error().Err(err).Str("dir", ws.Dir).Msg("failed to remove scratch directory")
		}
	}()
	j.transition(s.log, JobStaged)

	// Encoder output lives inside the workspace so one Close releases
	// everything, partially-written segments included.
	outputDir := filepath.Join(ws.Dir, "out")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create encoder output dir: %w", err)
	}

	j.transition(s.log, JobTranscoding)
	encoded, err := s.enc.Run(ctx, transcoder.Job{
		InputPath:      ws.InputPath,
		OutputDir:      outputDir,
		SegmentSeconds: j.req.SegmentSeconds,
	})
	if err != nil {
		return nil, err
	}
	j.transition(s.log, JobTranscoded)

	prefix := fmt.Sprintf("%s/%s", j.req.Category, j.assetID)
	j.transition(s.log, JobUploadPending)
	if err := s.uploadSegments(ctx, prefix, encoded.SegmentPaths); err != nil {
		return nil, err
	}

	// Playlist goes up only after every segment is durable, so a
	// half-finished job never yields dangling references. The bare-filename
	// template is stored alongside and is never rewritten.
	playlistText, err := os.ReadFile(encoded.PlaylistPath)
	if err != nil {
		return nil, fmt.Errorf("read encoder playlist: %w", err)
	}
	templateKey := prefix + "/" + TemplateFileName
	playlistKey := prefix + "/" + PlaylistFileName
	if err := s.store.Upload(ctx, templateKey, playlistText, "application/x-mpegURL"); err != nil {
		return nil, err
	}
	if err := s.store.Upload(ctx, playlistKey, playlistText, "application/x-mpegURL"); err != nil {
		return nil, err
	}
	j.transition(s.log, JobUploaded)

	asset := &MediaAsset{
		Key:             j.req.Key,
		AssetID:         j.assetID,
		Category:        j.req.Category,
		Prefix:          prefix,
		PlaylistKey:     playlistKey,
		TemplateKey:     templateKey,
		SegmentCount:    len(encoded.SegmentPaths),
		LastRefreshedAt: time.Now(),
	}

	// First rewrite substitutes signed segment URLs and mints the playlist URL.
	signedURL, expiresAt, err := s.refreshPlaylist(ctx, asset)
	if err != nil {
		return nil, err
	}
	asset.URLExpiresAt = expiresAt
	j.transition(s.log, JobURLIssued)

	if err := s.repo.Upsert(ctx, asset); err != nil {
		return nil, err
	}
	j.transition(s.log, JobPublished)

	s.log.Info().
		Str("episode_id", j.req.Key.EpisodeID).
		Str("language_tag", j.req.Key.LanguageTag).
		Str("asset_id", j.assetID).
		Int("segments", asset.SegmentCount).
		Time("url_expires_at", expiresAt).
		Msg("rendition published")

	return &PublishResult{
		Key:          j.req.Key,
		AssetID:      j.assetID,
		PlaylistKey:  playlistKey,
		SignedURL:    signedURL,
		ExpiresAt:    expiresAt,
		SegmentCount: asset.SegmentCount,
	}, nil
}

// uploadSegments pushes all media segments with bounded parallelism. Order
// between segments does not matter; completion before the playlist does.
func (s *Service) uploadSegments(ctx context.Context, prefix string, segmentPaths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.UploadConcurrency)
	for _, segPath := range segmentPaths {
		segPath := segPath
		g.Go(func() error {
			data, err := os.ReadFile(segPath)
			if err != nil {
				return fmt.Errorf("read segment %s: %w", segPath, err)
			}
			key := prefix + "/" + path.Base(segPath)
			return s.store.Upload(ctx, key, data, "video/MP2T")
		})
	}
	return g.Wait()
}

// PlaybackURL mints a fresh signed playlist URL for a published asset.
// Entitlement is checked upstream; this only signs.
func (s *Service) PlaybackURL(ctx context.Context, key AssetKey) (*PlaybackGrant, error) {
	asset, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	url, expiresAt, err := s.store.PresignGet(ctx, asset.PlaylistKey, s.cfg.ReadURLTTL)
	if err != nil {
		return nil, err
	}
	return &PlaybackGrant{Key: key, URL: url, ExpiresAt: expiresAt}, nil
}

// SourceUploadGrant is a short-lived write URL a caller uses to upload a raw
// source before submitting it as a blob_key.
type SourceUploadGrant struct {
	BlobKey   string
	URL       string
	ExpiresAt time.Time
}

// PrepareSourceUpload mints a presigned PUT URL for a raw source object.
// Write grants get the short TTL.
func (s *Service) PrepareSourceUpload(ctx context.Context, contentType string) (*SourceUploadGrant, error) {
	ext, ok := allowedContainers[contentType]
	if !ok {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerDomain,
			platformerrors.ErrorTypeUnsupportedMedia,
			fmt.Sprintf("unsupported media type %s", contentType),
			nil,
			"a1c3e5f7-9b1d-4f2a-8c4e-6f8a0c2e4f6b",
		)
	}
	key := fmt.Sprintf("uploads/%s.%s", assetid.New(), ext)
	url, expiresAt, err := s.store.PresignPut(ctx, key, contentType, s.cfg.WriteURLTTL)
	if err != nil {
		return nil, err
	}
	return &SourceUploadGrant{BlobKey: key, URL: url, ExpiresAt: expiresAt}, nil
}

// Refresh re-signs the playlist for one asset in the foreground. Returns a
// conflict when another refresh for the same key is already in flight.
func (s *Service) Refresh(ctx context.Context, key AssetKey) (*PlaybackGrant, error) {
	if !s.tryAcquire(key) {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerDomain,
			platformerrors.ErrorTypeConflict,
			"a refresh for this asset is already running",
			nil,
			"c3e5f7a9-1d3f-4a5c-9e6f-8a0b2d4f6a8c",
		)
	}
	defer s.release(key)

	asset, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	url, expiresAt, err := s.refreshPlaylist(ctx, asset)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RecordRefresh(ctx, key, time.Now(), expiresAt); err != nil {
		return nil, err
	}
	return &PlaybackGrant{Key: key, URL: url, ExpiresAt: expiresAt}, nil
}

func (s *Service) tryAcquire(key AssetKey) bool {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	if _, inflight := s.guard[key]; inflight {
		return false
	}
	s.guard[key] = struct{}{}
	return true
}

func (s *Service) release(key AssetKey) {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	delete(s.guard, key)
}
