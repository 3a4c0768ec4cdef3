package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vodflow/stream-api/internal/config"
	"vodflow/stream-api/internal/utils/platformerrors"
)

// LocalStorage is a filesystem-backed object store for development and small
// deployments. Signed URLs carry an HMAC over (action, key, expiry) so they
// can be verified by a serving frontend sharing the secret.
type LocalStorage struct {
	basePath string
	baseURL  string
	secret   []byte
	log      zerolog.Logger
	disabled bool
}

// NewLocalStorage creates a new local filesystem storage backend.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalStoragePath)
	if basePath == "" {
		logger.Warn().Msg("STREAM_LOCAL_STORAGE_PATH is not set; local storage will be disabled")
		return &LocalStorage{
			log:      logger,
			disabled: true,
		}, nil
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	storage := &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(strings.TrimSpace(cfg.LocalStorageBaseURL), "/"),
		secret:   []byte(cfg.LocalSigningSecret),
		log:      logger,
	}

	logger.Info().
		Str("path", basePath).
		Str("base_url", storage.baseURL).
		Msg("local storage initialized")

	return storage, nil
}

func (l *LocalStorage) ensureEnabled(ctx context.Context) error {
	if l.disabled {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeSigningConfig,
			"local storage is not configured; set STREAM_LOCAL_STORAGE_PATH to enable",
			nil,
			"e5f7a9b1-c3d5-4e7f-8a9b-1c3d5e7f9a0b",
		)
	}
	return nil
}

// Upload stores one object on the local filesystem.
func (l *LocalStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := l.ensureEnabled(ctx); err != nil {
		return err
	}

	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	l.log.Debug().
		Str("key", key).
		Int("bytes", len(data)).
		Msg("object uploaded to local storage")
	return nil
}

// Download reads one object from the local filesystem.
func (l *LocalStorage) Download(ctx context.Context, key string) ([]byte, string, error) {
	if err := l.ensureEnabled(ctx); err != nil {
		return nil, "", err
	}

	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", platformerrors.NewError(
				ctx,
				platformerrors.LayerInfrastructure,
				platformerrors.ErrorTypeNotFound,
				"object not found: "+key,
				err,
				"0a2c4e6f-8b1d-4f3a-9c5e-7f9a1b3c5d7e",
			)
		}
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	return data, ContentTypeForKey(key), nil
}

// ListPrefix enumerates all keys under the prefix.
func (l *LocalStorage) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := l.ensureEnabled(ctx); err != nil {
		return nil, err
	}

	root := filepath.Join(l.basePath, filepath.FromSlash(prefix))
	var keys []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk prefix %s: %w", prefix, err)
	}
	return keys, nil
}

// PresignGet mints an HMAC-signed read URL with an embedded Expires epoch.
func (l *LocalStorage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	return l.sign(ctx, "get", key, ttl)
}

// PresignPut mints an HMAC-signed write URL.
func (l *LocalStorage) PresignPut(ctx context.Context, key string, contentType string, ttl time.Duration) (string, time.Time, error) {
	return l.sign(ctx, "put", key, ttl)
}

func (l *LocalStorage) sign(ctx context.Context, action, key string, ttl time.Duration) (string, time.Time, error) {
	if err := l.ensureEnabled(ctx); err != nil {
		return "", time.Time{}, err
	}
	if len(l.secret) == 0 {
		return "", time.Time{}, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeSigningConfig,
			"STREAM_LOCAL_SIGNING_SECRET is not set; cannot mint signed urls",
			nil,
			"2b4d6f8a-0c2e-4a6b-8d0f-3e5a7c9b1d3f",
		)
	}

	expiresAt := time.Now().Add(ttl)
	mac := hmac.New(sha256.New, l.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", action, key, expiresAt.Unix())
	signature := hex.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	q.Set("Expires", strconv.FormatInt(expiresAt.Unix(), 10))
	q.Set("Signature", signature)
	q.Set("Action", action)

	base := l.baseURL
	if base == "" {
		base = "file://" + l.basePath
	}
	return fmt.Sprintf("%s/%s?%s", base, key, q.Encode()), expiresAt, nil
}

// Health checks if the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	if l.disabled {
		return nil
	}

	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}
