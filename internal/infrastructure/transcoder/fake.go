package transcoder

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Fake writes deterministic fixture output instead of running an encoder.
// Used by tests and local development without ffmpeg installed.
type Fake struct {
	// SourceSeconds determines how many segments the fixture spans.
	SourceSeconds float64
	// Err, when set, is returned instead of producing output.
	Err error
}

func (f *Fake) Run(ctx context.Context, job Job) (*Result, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segSeconds := job.SegmentSeconds
	if segSeconds <= 0 {
		segSeconds = 10
	}
	count := int(math.Ceil(f.SourceSeconds / float64(segSeconds)))
	if count < 1 {
		count = 1
	}

	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	sb.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&sb, "#EXT-X-TARGETDURATION:%d\n", segSeconds)
	sb.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	sb.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")

	remaining := f.SourceSeconds
	segments := make([]string, 0, count)
	for i := 0; i < count; i++ {
		duration := float64(segSeconds)
		if remaining < duration {
			duration = remaining
		}
		remaining -= duration

		name := fmt.Sprintf("segment_%03d.ts", i)
		segPath := filepath.Join(job.OutputDir, name)
		if err := os.WriteFile(segPath, []byte(fmt.Sprintf("fixture segment %d\n", i)), 0644); err != nil {
			return nil, err
		}
		segments = append(segments, segPath)

		fmt.Fprintf(&sb, "#EXTINF:%.6f,\n%s\n", duration, name)
	}
	sb.WriteString("#EXT-X-ENDLIST\n")

	playlistPath := filepath.Join(job.OutputDir, playlistName)
	if err := os.WriteFile(playlistPath, []byte(sb.String()), 0644); err != nil {
		return nil, err
	}

	return &Result{
		PlaylistPath: playlistPath,
		SegmentPaths: segments,
	}, nil
}
