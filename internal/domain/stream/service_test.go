package stream_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vodflow/stream-api/internal/config"
	"vodflow/stream-api/internal/domain/stream"
	"vodflow/stream-api/internal/infrastructure/transcoder"
	"vodflow/stream-api/internal/utils/platformerrors"
)

// mockRepository implements stream.Repository with overridable behavior.
type mockRepository struct {
	mu            sync.Mutex
	upserted      []*stream.MediaAsset
	refreshed     map[stream.AssetKey]int
	GetByKeyFunc  func(ctx context.Context, key stream.AssetKey) (*stream.MediaAsset, error)
	ListExpFunc   func(ctx context.Context, deadline time.Time) ([]*stream.MediaAsset, error)
	RecordRefFunc func(ctx context.Context, key stream.AssetKey, refreshedAt, expiresAt time.Time) error
}

func newMockRepository() *mockRepository {
	return &mockRepository{refreshed: make(map[stream.AssetKey]int)}
}

func (m *mockRepository) Upsert(ctx context.Context, obj *stream.MediaAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, obj)
	return nil
}

func (m *mockRepository) GetByKey(ctx context.Context, key stream.AssetKey) (*stream.MediaAsset, error) {
	if m.GetByKeyFunc != nil {
		return m.GetByKeyFunc(ctx, key)
	}
	return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound, "asset not found", nil, "")
}

func (m *mockRepository) ListExpiring(ctx context.Context, deadline time.Time) ([]*stream.MediaAsset, error) {
	if m.ListExpFunc != nil {
		return m.ListExpFunc(ctx, deadline)
	}
	return nil, nil
}

func (m *mockRepository) RecordRefresh(ctx context.Context, key stream.AssetKey, refreshedAt, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed[key]++
	if m.RecordRefFunc != nil {
		return m.RecordRefFunc(ctx, key, refreshedAt, expiresAt)
	}
	return nil
}

func (m *mockRepository) refreshCount(key stream.AssetKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshed[key]
}

// memoryStore is an in-memory stream.ObjectStore recording upload order.
type memoryStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	uploadOrder  []string
	onListPrefix func()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (m *memoryStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf
	m.contentTypes[key] = contentType
	m.uploadOrder = append(m.uploadOrder, key)
	return nil
}

func (m *memoryStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound, fmt.Sprintf("object %s not found", key), nil, "")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, m.contentTypes[key], nil
}

func (m *memoryStore) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	if m.onListPrefix != nil {
		m.onListPrefix()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix+"/") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	return "https://cdn.test/" + key + "?sig=get", time.Now().Add(ttl), nil
}

func (m *memoryStore) PresignPut(ctx context.Context, key string, contentType string, ttl time.Duration) (string, time.Time, error) {
	return "https://cdn.test/" + key + "?sig=put", time.Now().Add(ttl), nil
}

func (m *memoryStore) Health(ctx context.Context) error { return nil }

func (m *memoryStore) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *memoryStore) objectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *memoryStore) orderOf(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, k := range m.uploadOrder {
		if k == key {
			return i
		}
	}
	return -1
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SegmentSeconds:    10,
		MaxConcurrentJobs: 2,
		UploadConcurrency: 4,
		MaxSourceBytes:    1 << 20,
		ScratchDir:        t.TempDir(),
		ReadURLTTL:        time.Hour,
		WriteURLTTL:       15 * time.Minute,
	}
}

// mp4Source returns a minimal buffer that sniffs as video/mp4.
func mp4Source() []byte {
	return []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
		'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
		'i', 's', 'o', 'm', 'm', 'p', '4', '1',
	}
}

func newTestService(t *testing.T, cfg *config.Config, repo *mockRepository, store *memoryStore, enc transcoder.Transcoder) *stream.Service {
	t.Helper()
	return stream.NewService(cfg, repo, store, enc, zerolog.Nop())
}

func scratchEntryCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestPublish_FullPipeline(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{SourceSeconds: 60})

	result, err := svc.Publish(context.Background(), stream.PublishRequest{
		Source: stream.Source{Type: stream.SourceBytes, Data: mp4Source()},
		Key:    stream.AssetKey{EpisodeID: "ep-100", LanguageTag: "en"},
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 6, result.SegmentCount)
	assert.NotEmpty(t, result.AssetID)
	assert.Contains(t, result.SignedURL, result.PlaylistKey)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	prefix := "episodes/" + result.AssetID
	for i := 0; i < 6; i++ {
		segKey := fmt.Sprintf("%s/segment_%03d.ts", prefix, i)
		_, ok := store.get(segKey)
		assert.True(t, ok, "segment %s missing from store", segKey)
	}

	// The template keeps bare filenames; the served playlist carries signed
	// URLs for every segment.
	template, ok := store.get(prefix + "/" + stream.TemplateFileName)
	require.True(t, ok, "template playlist missing from store")
	assert.Contains(t, string(template), "\nsegment_000.ts\n")

	playlist, ok := store.get(prefix + "/" + stream.PlaylistFileName)
	require.True(t, ok, "playlist missing from store")
	assert.NotContains(t, string(playlist), "\nsegment_000.ts\n")
	assert.Contains(t, string(playlist), "https://cdn.test/"+prefix+"/segment_000.ts")
	assert.Contains(t, string(playlist), "#EXT-X-ENDLIST")

	// Every segment is durable before the playlist first goes up.
	playlistOrder := store.orderOf(prefix + "/" + stream.PlaylistFileName)
	require.GreaterOrEqual(t, playlistOrder, 0)
	for i := 0; i < 6; i++ {
		segKey := fmt.Sprintf("%s/segment_%03d.ts", prefix, i)
		assert.Less(t, store.orderOf(segKey), playlistOrder, "segment %s uploaded after playlist", segKey)
	}

	// Catalog record written exactly once, after the first URL was minted.
	require.Len(t, repo.upserted, 1)
	asset := repo.upserted[0]
	assert.Equal(t, result.Key, asset.Key)
	assert.Equal(t, 6, asset.SegmentCount)
	assert.False(t, asset.URLExpiresAt.IsZero())

	// Scratch space released.
	assert.Zero(t, scratchEntryCount(t, cfg.ScratchDir))
}

func TestPublish_UnsupportedMedia(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{SourceSeconds: 60})

	_, err := svc.Publish(context.Background(), stream.PublishRequest{
		Source: stream.Source{Type: stream.SourceBytes, Data: []byte("%PDF-1.4\nnot a video\n")},
		Key:    stream.AssetKey{EpisodeID: "ep-100", LanguageTag: "en"},
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnsupportedMedia))

	// Rejected before transcode: nothing uploaded, nothing recorded, scratch
	// space released.
	assert.Zero(t, store.objectCount())
	assert.Empty(t, repo.upserted)
	assert.Zero(t, scratchEntryCount(t, cfg.ScratchDir))
}

func TestPublish_PayloadTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxSourceBytes = 16
	repo := newMockRepository()
	store := newMemoryStore()
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{SourceSeconds: 60})

	_, err := svc.Publish(context.Background(), stream.PublishRequest{
		Source: stream.Source{Type: stream.SourceBytes, Data: mp4Source()},
		Key:    stream.AssetKey{EpisodeID: "ep-100", LanguageTag: "en"},
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypePayloadTooLarge))
	assert.Zero(t, store.objectCount())
	assert.Zero(t, scratchEntryCount(t, cfg.ScratchDir))
}

func TestPublish_MissingKey(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg, newMockRepository(), newMemoryStore(), &transcoder.Fake{SourceSeconds: 60})

	_, err := svc.Publish(context.Background(), stream.PublishRequest{
		Source: stream.Source{Type: stream.SourceBytes, Data: mp4Source()},
		Key:    stream.AssetKey{EpisodeID: "ep-100"},
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestPublish_EncoderFailureCleansUp(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	encErr := platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeEncoder, "encoder exited with status 1", errors.New("exit status 1"), "")
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{Err: encErr})

	_, err := svc.Publish(context.Background(), stream.PublishRequest{
		Source: stream.Source{Type: stream.SourceBytes, Data: mp4Source()},
		Key:    stream.AssetKey{EpisodeID: "ep-100", LanguageTag: "en"},
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeEncoder),
		"encoder reason code must survive wrapping, got %v", err)

	assert.Zero(t, store.objectCount())
	assert.Empty(t, repo.upserted)
	assert.Zero(t, scratchEntryCount(t, cfg.ScratchDir))
}

func TestPublish_BlobSource(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	require.NoError(t, store.Upload(context.Background(), "uploads/raw.mp4", mp4Source(), "video/mp4"))
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{SourceSeconds: 25})

	result, err := svc.Publish(context.Background(), stream.PublishRequest{
		Source: stream.Source{Type: stream.SourceBlob, BlobKey: "uploads/raw.mp4"},
		Key:    stream.AssetKey{EpisodeID: "ep-200", LanguageTag: "ja"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.SegmentCount)
}

func TestPublish_BlobSourceMissing(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg, newMockRepository(), newMemoryStore(), &transcoder.Fake{SourceSeconds: 25})

	_, err := svc.Publish(context.Background(), stream.PublishRequest{
		Source: stream.Source{Type: stream.SourceBlob, BlobKey: "uploads/gone.mp4"},
		Key:    stream.AssetKey{EpisodeID: "ep-200", LanguageTag: "ja"},
	})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

// seedPublishedAsset loads the store and repository with one published
// rendition so refresh paths can run against it.
func seedPublishedAsset(t *testing.T, store *memoryStore, repo *mockRepository, key stream.AssetKey, segments int) *stream.MediaAsset {
	t.Helper()
	ctx := context.Background()
	prefix := "episodes/asset-" + key.EpisodeID

	var sb strings.Builder
	sb.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-PLAYLIST-TYPE:VOD\n")
	for i := 0; i < segments; i++ {
		name := fmt.Sprintf("segment_%03d.ts", i)
		require.NoError(t, store.Upload(ctx, prefix+"/"+name, []byte("seg"), "video/MP2T"))
		fmt.Fprintf(&sb, "#EXTINF:10.000000,\n%s\n", name)
	}
	sb.WriteString("#EXT-X-ENDLIST\n")

	require.NoError(t, store.Upload(ctx, prefix+"/"+stream.TemplateFileName, []byte(sb.String()), "application/x-mpegURL"))
	require.NoError(t, store.Upload(ctx, prefix+"/"+stream.PlaylistFileName, []byte(sb.String()), "application/x-mpegURL"))

	asset := &stream.MediaAsset{
		Key:          key,
		AssetID:      "asset-" + key.EpisodeID,
		Category:     stream.CategoryEpisode,
		Prefix:       prefix,
		PlaylistKey:  prefix + "/" + stream.PlaylistFileName,
		TemplateKey:  prefix + "/" + stream.TemplateFileName,
		SegmentCount: segments,
		URLExpiresAt: time.Now().Add(time.Minute),
	}
	repo.GetByKeyFunc = func(ctx context.Context, k stream.AssetKey) (*stream.MediaAsset, error) {
		if k == key {
			return asset, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "asset not found", nil, "")
	}
	return asset
}

func TestRefresh_RewritesPlaylist(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	key := stream.AssetKey{EpisodeID: "ep-300", LanguageTag: "en"}
	asset := seedPublishedAsset(t, store, repo, key, 2)
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{})

	grant, err := svc.Refresh(context.Background(), key)
	require.NoError(t, err)
	assert.Contains(t, grant.URL, asset.PlaylistKey)
	assert.True(t, grant.ExpiresAt.After(time.Now()))

	playlist, ok := store.get(asset.PlaylistKey)
	require.True(t, ok)
	assert.NotContains(t, string(playlist), "\nsegment_000.ts\n")
	assert.Contains(t, string(playlist), "https://cdn.test/"+asset.Prefix+"/segment_000.ts")

	assert.Equal(t, 1, repo.refreshCount(key))
}

func TestRefresh_ConflictWhileInFlight(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	key := stream.AssetKey{EpisodeID: "ep-301", LanguageTag: "en"}
	seedPublishedAsset(t, store, repo, key, 1)
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{})

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.onListPrefix = func() {
		once.Do(func() { close(started) })
		<-release
	}

	winnerErr := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background(), key)
		winnerErr <- err
	}()

	<-started
	_, err := svc.Refresh(context.Background(), key)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	close(release)
	require.NoError(t, <-winnerErr)
	assert.Equal(t, 1, repo.refreshCount(key))

	// Guard released after the winner finishes; a later refresh proceeds.
	store.onListPrefix = nil
	_, err = svc.Refresh(context.Background(), key)
	require.NoError(t, err)
}

func TestRefresh_RaceWhenSegmentsMissing(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	key := stream.AssetKey{EpisodeID: "ep-302", LanguageTag: "en"}
	asset := seedPublishedAsset(t, store, repo, key, 1)
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{})

	// Simulate a prefix with the segments gone.
	store.mu.Lock()
	delete(store.objects, asset.Prefix+"/segment_000.ts")
	before := append([]byte(nil), store.objects[asset.PlaylistKey]...)
	store.mu.Unlock()

	_, err := svc.Refresh(context.Background(), key)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeRewriteRace))

	// The existing playlist is left untouched.
	after, ok := store.get(asset.PlaylistKey)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Zero(t, repo.refreshCount(key))
}

func TestRefresh_RaceWhenTemplateMismatches(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	key := stream.AssetKey{EpisodeID: "ep-303", LanguageTag: "en"}
	asset := seedPublishedAsset(t, store, repo, key, 1)
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{})

	// Template references a segment set that is not under the prefix.
	mismatched := "#EXTM3U\n#EXTINF:10.000000,\nother_000.ts\n#EXT-X-ENDLIST\n"
	require.NoError(t, store.Upload(context.Background(), asset.TemplateKey, []byte(mismatched), "application/x-mpegURL"))

	_, err := svc.Refresh(context.Background(), key)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeRewriteRace))
	assert.Zero(t, repo.refreshCount(key))
}

func TestPlaybackURL(t *testing.T) {
	cfg := testConfig(t)
	repo := newMockRepository()
	store := newMemoryStore()
	key := stream.AssetKey{EpisodeID: "ep-304", LanguageTag: "en"}
	asset := seedPublishedAsset(t, store, repo, key, 1)
	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{})

	grant, err := svc.PlaybackURL(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, key, grant.Key)
	assert.Contains(t, grant.URL, asset.PlaylistKey)
	assert.True(t, grant.ExpiresAt.After(time.Now()))
}

func TestPlaybackURL_NotFound(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg, newMockRepository(), newMemoryStore(), &transcoder.Fake{})

	_, err := svc.PlaybackURL(context.Background(), stream.AssetKey{EpisodeID: "nope", LanguageTag: "en"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestPrepareSourceUpload(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg, newMockRepository(), newMemoryStore(), &transcoder.Fake{})

	grant, err := svc.PrepareSourceUpload(context.Background(), "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(grant.BlobKey, "uploads/"))
	assert.True(t, strings.HasSuffix(grant.BlobKey, ".mp4"))
	assert.Contains(t, grant.URL, grant.BlobKey)
	assert.True(t, grant.ExpiresAt.After(time.Now()))
}

func TestPrepareSourceUpload_UnsupportedType(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestService(t, cfg, newMockRepository(), newMemoryStore(), &transcoder.Fake{})

	_, err := svc.PrepareSourceUpload(context.Background(), "application/pdf")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnsupportedMedia))
}

func TestSchedulerTick_RefreshesExpiringAssets(t *testing.T) {
	cfg := testConfig(t)
	cfg.RefreshInterval = time.Minute
	cfg.RefreshBuffer = 5 * time.Minute
	repo := newMockRepository()
	store := newMemoryStore()

	keyA := stream.AssetKey{EpisodeID: "ep-400", LanguageTag: "en"}
	keyB := stream.AssetKey{EpisodeID: "ep-401", LanguageTag: "ja"}
	assetA := seedPublishedAsset(t, store, repo, keyA, 2)
	// Second seed overwrites GetByKeyFunc; reinstall one that serves both.
	assetB := seedPublishedAsset(t, store, repo, keyB, 2)
	repo.GetByKeyFunc = func(ctx context.Context, k stream.AssetKey) (*stream.MediaAsset, error) {
		switch k {
		case keyA:
			return assetA, nil
		case keyB:
			return assetB, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "asset not found", nil, "")
	}
	repo.ListExpFunc = func(ctx context.Context, deadline time.Time) ([]*stream.MediaAsset, error) {
		return []*stream.MediaAsset{assetA, assetB}, nil
	}

	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{})
	sched := stream.NewScheduler(cfg, svc, zerolog.Nop())

	sched.Tick(context.Background())

	assert.Equal(t, 1, repo.refreshCount(keyA))
	assert.Equal(t, 1, repo.refreshCount(keyB))

	playlist, ok := store.get(assetA.PlaylistKey)
	require.True(t, ok)
	assert.Contains(t, string(playlist), "https://cdn.test/")
}

func TestSchedulerTick_OneFailureDoesNotAbortOthers(t *testing.T) {
	cfg := testConfig(t)
	cfg.RefreshInterval = time.Minute
	cfg.RefreshBuffer = 5 * time.Minute
	repo := newMockRepository()
	store := newMemoryStore()

	good := stream.AssetKey{EpisodeID: "ep-500", LanguageTag: "en"}
	goodAsset := seedPublishedAsset(t, store, repo, good, 1)

	// An asset whose blobs were deleted: its refresh fails with a race, the
	// other asset still refreshes.
	broken := &stream.MediaAsset{
		Key:         stream.AssetKey{EpisodeID: "ep-501", LanguageTag: "en"},
		Prefix:      "episodes/asset-gone",
		PlaylistKey: "episodes/asset-gone/" + stream.PlaylistFileName,
		TemplateKey: "episodes/asset-gone/" + stream.TemplateFileName,
	}
	repo.GetByKeyFunc = func(ctx context.Context, k stream.AssetKey) (*stream.MediaAsset, error) {
		switch k {
		case good:
			return goodAsset, nil
		case broken.Key:
			return broken, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "asset not found", nil, "")
	}
	repo.ListExpFunc = func(ctx context.Context, deadline time.Time) ([]*stream.MediaAsset, error) {
		return []*stream.MediaAsset{broken, goodAsset}, nil
	}

	svc := newTestService(t, cfg, repo, store, &transcoder.Fake{})
	sched := stream.NewScheduler(cfg, svc, zerolog.Nop())

	sched.Tick(context.Background())

	assert.Equal(t, 1, repo.refreshCount(good))
	assert.Zero(t, repo.refreshCount(broken.Key))
}
