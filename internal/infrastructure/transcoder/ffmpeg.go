package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"vodflow/stream-api/internal/config"
	"vodflow/stream-api/internal/utils/platformerrors"
)

const (
	playlistName    = "playlist.m3u8"
	segmentPattern  = "segment_%03d.ts"
	stderrTailBytes = 2048
)

// FFmpeg runs one ffmpeg process per job. Each invocation is bounded by a
// wall-clock timeout and a per-job thread cap so concurrent jobs do not
// starve the host.
type FFmpeg struct {
	binary  string
	timeout time.Duration
	threads int
	log     zerolog.Logger
}

func NewFFmpeg(cfg *config.Config, log zerolog.Logger) *FFmpeg {
	return &FFmpeg{
		binary:  cfg.FFmpegPath,
		timeout: cfg.TranscodeTimeout,
		threads: cfg.TranscodeThreads,
		log:     log.With().Str("component", "ffmpeg").Logger(),
	}
}

// Run invokes the encoder and returns the playlist plus segment paths.
// Exceeding the timeout terminates the process and fails the job.
func (f *FFmpeg) Run(ctx context.Context, job Job) (*Result, error) {
	if job.SegmentSeconds <= 0 {
		job.SegmentSeconds = 10
	}

	procCtx := ctx
	var cancel context.CancelFunc
	if f.timeout > 0 {
		procCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	playlistPath := filepath.Join(job.OutputDir, playlistName)
	args := f.buildArgs(job, playlistPath)

	f.log.Debug().
		Str("input", job.InputPath).
		Str("output_dir", job.OutputDir).
		Strs("args", args).
		Msg("starting ffmpeg")

	cmd := exec.CommandContext(procCtx, f.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	if runErr != nil {
		return nil, f.classifyRunError(ctx, procCtx, runErr, stderr.Bytes())
	}

	f.log.Info().
		Dur("elapsed", time.Since(start)).
		Str("playlist", playlistPath).
		Msg("ffmpeg finished")

	return collectOutput(ctx, playlistPath, job.OutputDir)
}

func (f *FFmpeg) buildArgs(job Job, playlistPath string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", job.InputPath,
		"-c:v", "libx264",
		"-profile:v", "baseline",
		"-level", "3.0",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
	}
	if f.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(f.threads))
	}
	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(job.SegmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(job.OutputDir, segmentPattern),
		playlistPath,
	)
	return args
}

func (f *FFmpeg) classifyRunError(ctx, procCtx context.Context, runErr error, stderr []byte) error {
	tail := stderrTail(stderr)

	if errors.Is(procCtx.Err(), context.DeadlineExceeded) {
		return platformerrors.NewErrorWithContext(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeTimeout,
			fmt.Sprintf("encoder exceeded %s wall-clock limit and was terminated", f.timeout),
			runErr,
			"5c7e9f1b-3d5f-4a7b-9c1d-3e5f7a9b1c2d",
			map[string]any{"stderr": tail},
		)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return platformerrors.NewErrorWithContext(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeEncoder,
			fmt.Sprintf("encoder exited with code %d", exitErr.ExitCode()),
			runErr,
			"7d9f1b3c-5e7a-4b9c-8d1e-4f6a8b0c2d4e",
			map[string]any{"stderr": tail},
		)
	}

	// Start failures (binary missing, permissions) are configuration, not
	// encoder output.
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerInfrastructure,
		platformerrors.ErrorTypeInternal,
		"failed to run encoder process",
		runErr,
		"9f1b3d5e-7a9c-4d1e-8f2a-5b7c9d1e3f5a",
	)
}

// collectOutput validates the encoder products: the playlist must exist and
// every segment on disk is collected in order.
func collectOutput(ctx context.Context, playlistPath, outputDir string) (*Result, error) {
	if _, err := os.Stat(playlistPath); err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeEncoder,
			"encoder produced no playlist",
			err,
			"1b3d5f7a-9c1e-4f3a-8b5c-6d8e0f2a4b6c",
		)
	}

	segments, err := filepath.Glob(filepath.Join(outputDir, "segment_*.ts"))
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeInternal,
			"failed to enumerate segments",
			err,
			"3d5f7b9c-1e3f-4a5b-8c7d-9e1f3a5b7c9d",
		)
	}
	if len(segments) == 0 {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeEncoder,
			"encoder produced a playlist but no segments",
			nil,
			"5f7b9d1e-3a5c-4b7d-9e0f-1a3b5c7d9e1f",
		)
	}
	sort.Strings(segments)

	return &Result{
		PlaylistPath: playlistPath,
		SegmentPaths: segments,
	}, nil
}

func stderrTail(stderr []byte) string {
	if len(stderr) > stderrTailBytes {
		stderr = stderr[len(stderr)-stderrTailBytes:]
	}
	return string(stderr)
}
