package stream

import (
	"context"
	"path"
	"strings"
	"time"

	"vodflow/stream-api/internal/utils/platformerrors"
)

// substituteSegments replaces every playlist line that is exactly a bare
// segment filename with its signed URL. Directives and unknown lines pass
// through untouched. Returns the rewritten text and the replacement count.
//
// The input is always the immutable template playlist, never a previously
// signed copy, which is what makes repeated rewrites safe.
func substituteSegments(template string, signed map[string]string) (string, int) {
	lines := strings.Split(template, "\n")
	replaced := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if url, ok := signed[trimmed]; ok {
			lines[i] = url
			replaced++
		}
	}
	return strings.Join(lines, "\n"), replaced
}

// refreshPlaylist re-signs every segment reference and republishes the
// playlist, then returns a fresh signed URL for the playlist itself. The
// playlist blob is only written after the full replacement text is computed,
// so a failed rewrite never partially overwrites a valid playlist.
func (s *Service) refreshPlaylist(ctx context.Context, asset *MediaAsset) (string, time.Time, error) {
	keys, err := s.store.ListPrefix(ctx, asset.Prefix)
	if err != nil {
		return "", time.Time{}, err
	}

	signed := make(map[string]string)
	for _, key := range keys {
		if !strings.HasSuffix(key, ".ts") {
			continue
		}
		url, _, err := s.store.PresignGet(ctx, key, s.cfg.ReadURLTTL)
		if err != nil {
			return "", time.Time{}, err
		}
		signed[path.Base(key)] = url
	}
	if len(signed) == 0 {
		return "", time.Time{}, platformerrors.NewErrorWithContext(
			ctx,
			platformerrors.LayerDomain,
			platformerrors.ErrorTypeRewriteRace,
			"no segments found under asset prefix; skipping rewrite",
			nil,
			"6a8c0e2f-4a6c-4d8e-9f0a-1b3d5f7a9c1e",
			map[string]any{"prefix": asset.Prefix},
		)
	}

	template, _, err := s.store.Download(ctx, asset.TemplateKey)
	if err != nil {
		return "", time.Time{}, err
	}

	text, replaced := substituteSegments(string(template), signed)
	if replaced == 0 {
		return "", time.Time{}, platformerrors.NewErrorWithContext(
			ctx,
			platformerrors.LayerDomain,
			platformerrors.ErrorTypeRewriteRace,
			"template references none of the stored segments; skipping rewrite",
			nil,
			"8c0e2f4a-6c8e-4f0a-8b2d-3d5f7b9d1f3a",
			map[string]any{"prefix": asset.Prefix, "segments": len(signed)},
		)
	}

	if err := s.store.Upload(ctx, asset.PlaylistKey, []byte(text), "application/x-mpegURL"); err != nil {
		return "", time.Time{}, err
	}

	return s.store.PresignGet(ctx, asset.PlaylistKey, s.cfg.ReadURLTTL)
}
