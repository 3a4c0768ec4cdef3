package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"vodflow/stream-api/internal/utils/platformerrors"
)

// Containers accepted for transcoding, by sniffed MIME type.
var allowedContainers = map[string]string{
	"video/mp4":        "mp4",
	"video/quicktime":  "mov",
	"video/x-matroska": "mkv",
	"video/webm":       "webm",
	"video/mpeg":       "mpg",
}

// Workspace is a process-unique scratch directory holding the staged input
// and the encoder output. The caller owns it and must Close on every path.
type Workspace struct {
	Dir       string
	InputPath string
}

// Close removes the scratch directory and everything under it.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// Stage materializes the source video into a fresh scratch directory,
// enforcing the size ceiling and the container allow-list.
func (s *Service) Stage(ctx context.Context, src Source) (*Workspace, error) {
	dir, err := os.MkdirTemp(s.cfg.ScratchDir, "stream-job-")
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerDomain,
			platformerrors.ErrorTypeInternal,
			"failed to allocate scratch directory",
			err,
			"8a0c2e4f-6b8d-4f1a-9c3e-5d7f9b1d3e5f",
		)
	}

	ws := &Workspace{Dir: dir}
	if err := s.stageInput(ctx, src, ws); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return ws, nil
}

func (s *Service) stageInput(ctx context.Context, src Source, ws *Workspace) error {
	inputPath := filepath.Join(ws.Dir, "source")

	switch src.Type {
	case SourceBytes:
		if int64(len(src.Data)) > s.cfg.MaxSourceBytes {
			return s.tooLarge(ctx, int64(len(src.Data)))
		}
		if len(src.Data) == 0 {
			return s.invalid(ctx, "source buffer is empty")
		}
		if err := os.WriteFile(inputPath, src.Data, 0600); err != nil {
			return fmt.Errorf("write staged input: %w", err)
		}

	case SourceFile:
		info, err := os.Stat(src.Path)
		if err != nil {
			return s.invalid(ctx, fmt.Sprintf("source file unreadable: %v", err))
		}
		if info.Size() > s.cfg.MaxSourceBytes {
			return s.tooLarge(ctx, info.Size())
		}
		if err := copyFile(src.Path, inputPath); err != nil {
			return fmt.Errorf("copy staged input: %w", err)
		}

	case SourceBlob:
		if src.BlobKey == "" {
			return s.invalid(ctx, "blob_key is required")
		}
		data, _, err := s.store.Download(ctx, src.BlobKey)
		if err != nil {
			return err
		}
		if int64(len(data)) > s.cfg.MaxSourceBytes {
			return s.tooLarge(ctx, int64(len(data)))
		}
		if err := os.WriteFile(inputPath, data, 0600); err != nil {
			return fmt.Errorf("write staged input: %w", err)
		}

	default:
		return s.invalid(ctx, fmt.Sprintf("unknown source type %q", src.Type))
	}

	detected, err := mimetype.DetectFile(inputPath)
	if err != nil {
		return fmt.Errorf("sniff staged input: %w", err)
	}
	ext, ok := allowedContainers[detected.String()]
	if !ok {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerDomain,
			platformerrors.ErrorTypeUnsupportedMedia,
			fmt.Sprintf("unsupported media type %s", detected.String()),
			nil,
			"0c2e4f6a-8b0d-4e2f-9a4c-6e8f0b2d4f6a",
		)
	}

	// Rename so the encoder sees a recognizable extension.
	typedPath := inputPath + "." + ext
	if err := os.Rename(inputPath, typedPath); err != nil {
		return fmt.Errorf("rename staged input: %w", err)
	}
	ws.InputPath = typedPath
	return nil
}

func (s *Service) tooLarge(ctx context.Context, size int64) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypePayloadTooLarge,
		fmt.Sprintf("source of %d bytes exceeds ceiling of %d bytes", size, s.cfg.MaxSourceBytes),
		nil,
		"2e4f6a8c-0d2f-4a4b-8c6e-7f9a1c3e5a7c",
	)
}

func (s *Service) invalid(ctx context.Context, msg string) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerDomain,
		platformerrors.ErrorTypeValidation,
		msg,
		nil,
		"4f6a8c0e-2f4a-4b6c-9d8e-9a1b3d5f7b9d",
	)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
