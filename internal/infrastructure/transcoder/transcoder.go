// Package transcoder drives an external encoder to produce a segmented HLS
// rendition. The concrete binary sits behind the Transcoder interface so the
// pipeline can swap in a fake for tests.
package transcoder

import "context"

// Job describes one transcode invocation. The caller owns OutputDir and is
// responsible for removing it.
type Job struct {
	InputPath      string
	OutputDir      string
	SegmentSeconds int
}

// Result is produced on success. PlaylistPath references segments by bare
// relative filenames; signed URLs are substituted later.
type Result struct {
	PlaylistPath string
	SegmentPaths []string
}

// Transcoder converts a staged input file into a playlist plus media segments.
type Transcoder interface {
	Run(ctx context.Context, job Job) (*Result, error)
}
