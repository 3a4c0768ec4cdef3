package stream

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vodflow/stream-api/internal/config"
	"vodflow/stream-api/internal/infrastructure/metrics"
	"vodflow/stream-api/internal/utils/platformerrors"
)

// Scheduler periodically finds assets whose signed playlist URLs are about to
// expire and regenerates them in the background. Duplicate refreshes for the
// same asset are dropped by the service's per-key guard; one asset's failure
// never aborts the tick for the others.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	buffer   time.Duration
	log      zerolog.Logger
}

func NewScheduler(cfg *config.Config, svc *Service, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		svc:      svc,
		interval: cfg.RefreshInterval,
		buffer:   cfg.RefreshBuffer,
		log:      log.With().Str("component", "refresh-scheduler").Logger(),
	}
}

// Run blocks until the context is cancelled, ticking at the configured
// interval. Each tick waits for its spawned refreshes before returning, so
// shutdown does not leave half-written playlists behind.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().
		Dur("interval", s.interval).
		Dur("buffer", s.buffer).
		Msg("refresh scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduler pass.
func (s *Scheduler) Tick(ctx context.Context) {
	deadline := time.Now().Add(s.buffer)
	assets, err := s.svc.ListExpiring(ctx, deadline)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list expiring assets")
		return
	}
	if len(assets) == 0 {
		return
	}

	s.log.Info().Int("assets", len(assets)).Msg("refreshing soon-to-expire playlists")

	var wg sync.WaitGroup
	for _, asset := range assets {
		asset := asset
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.refreshOne(ctx, asset)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) refreshOne(ctx context.Context, asset *MediaAsset) {
	_, err := s.svc.Refresh(ctx, asset.Key)
	switch {
	case err == nil:
		metrics.RecordRefresh("success")
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict):
		// Another refresh for this key is in flight; drop ours.
		metrics.RecordRefresh("skipped")
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeRewriteRace):
		metrics.RecordRefresh("skipped")
		s.log.Warn().Err(err).
			Str("asset", asset.Key.String()).
			Msg("rewrite race detected; existing playlist left untouched")
	default:
		metrics.RecordRefresh("failure")
		s.log.Error().Err(err).
			Str("asset", asset.Key.String()).
			Msg("playlist refresh failed")
	}
}

// ListExpiring exposes the repository query to the scheduler.
func (s *Service) ListExpiring(ctx context.Context, deadline time.Time) ([]*MediaAsset, error) {
	return s.repo.ListExpiring(ctx, deadline)
}
