package stream

import "time"

// Object storage categories. The category segment of a key distinguishes what
// the asset was processed for.
const (
	CategoryEpisode   = "episodes"
	CategoryThumbnail = "thumbnails"
)

const (
	PlaylistFileName = "playlist.m3u8"
	TemplateFileName = "template.m3u8"
)

// AssetKey identifies one renditioned stream.
type AssetKey struct {
	EpisodeID   string
	LanguageTag string
}

func (k AssetKey) String() string {
	return k.EpisodeID + "/" + k.LanguageTag
}

// MediaAsset is the domain view of a published rendition. The prefix and
// segment set never change after creation; only the playlist text is
// rewritten in place on refresh.
type MediaAsset struct {
	Key             AssetKey
	AssetID         string
	Category        string
	Prefix          string
	PlaylistKey     string
	TemplateKey     string
	SegmentCount    int
	URLExpiresAt    time.Time
	LastRefreshedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SourceType selects how the submitted video is delivered to the pipeline.
type SourceType string

const (
	SourceBytes SourceType = "bytes"     // in-memory buffer (base64 over the wire)
	SourceFile  SourceType = "file"      // local file path
	SourceBlob  SourceType = "blob_key"  // previously-uploaded object
)

// Source describes where the raw upload lives.
type Source struct {
	Type    SourceType
	Data    []byte
	Path    string
	BlobKey string
}

// PublishRequest submits one transcode job.
type PublishRequest struct {
	Source         Source
	Key            AssetKey
	Category       string
	SegmentSeconds int // 0 = configured default
}

// PublishResult is reported to the catalog collaborator once the rendition is
// fully durable and a first signed URL has been minted.
type PublishResult struct {
	Key          AssetKey
	AssetID      string
	PlaylistKey  string
	SignedURL    string
	ExpiresAt    time.Time
	SegmentCount int
}

// PlaybackGrant is a fresh signed playlist URL for an already-published asset.
type PlaybackGrant struct {
	Key       AssetKey
	URL       string
	ExpiresAt time.Time
}

// JobState tracks one transcode job through the pipeline. Jobs are owned by a
// single worker and never shared; Failed and Published are terminal.
type JobState string

const (
	JobStaged        JobState = "staged"
	JobTranscoding   JobState = "transcoding"
	JobTranscoded    JobState = "transcoded"
	JobUploadPending JobState = "upload_pending"
	JobUploaded      JobState = "uploaded"
	JobURLIssued     JobState = "url_issued"
	JobPublished     JobState = "published"
	JobFailed        JobState = "failed"
)
