package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"vodflow/stream-api/internal/config"
	"vodflow/stream-api/internal/domain/retry"
	"vodflow/stream-api/internal/infrastructure/metrics"
	"vodflow/stream-api/internal/utils/platformerrors"
)

// S3Storage is the object store gateway backed by S3-compatible storage.
// Transient failures are retried with the shared store policy; signing is
// local SigV4 computation and fails only on missing credentials.
type S3Storage struct {
	bucket         string
	client         *s3.Client
	presign        *s3.PresignClient
	publicEndpoint string
	exec           *retry.Executor
	log            zerolog.Logger
	disabled       bool
}

func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()
	storage := &S3Storage{
		bucket:         strings.TrimSpace(cfg.S3Bucket),
		publicEndpoint: cfg.S3PublicEndpoint,
		exec:           retry.NewExecutor(retry.StorePolicy(), platformerrors.IsRetryable),
		log:            logger,
	}

	accessKey := strings.TrimSpace(cfg.S3AccessKeyID)
	secretKey := strings.TrimSpace(cfg.S3SecretKey)
	if storage.bucket == "" || accessKey == "" || secretKey == "" {
		logger.Warn().Msg("STREAM_S3_BUCKET or credentials are not set; stream storage will be disabled until configured")
		storage.disabled = true
		return storage, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	storage.client = client
	storage.presign = s3.NewPresignClient(client)
	return storage, nil
}

func (s *S3Storage) ensureEnabled(ctx context.Context) error {
	if s.disabled {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeSigningConfig,
			"stream storage backend is not configured; set STREAM_S3_* to enable",
			nil,
			"c4a1e8f2-5d3b-4f7e-9a2c-8b6d4e2f0a1c",
		)
	}
	return nil
}

// Upload writes one object. Re-uploading the same key overwrites it.
func (s *S3Storage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := s.ensureEnabled(ctx); err != nil {
		return err
	}
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if cc := CacheControlForKey(key); cc != "" {
		input.CacheControl = aws.String(cc)
	}

	start := time.Now()
	err := s.exec.Execute(ctx, func(ctx context.Context, attempt int) error {
		input.Body = bytes.NewReader(data)
		_, err := s.client.PutObject(ctx, input)
		return s.classify(ctx, "put_object", err)
	})
	metrics.RecordStoreOperation("put_object", statusLabel(err), time.Since(start).Seconds())
	return err
}

// Download reads the full object body.
func (s *S3Storage) Download(ctx context.Context, key string) ([]byte, string, error) {
	if err := s.ensureEnabled(ctx); err != nil {
		return nil, "", err
	}

	var data []byte
	var mime string
	start := time.Now()
	err := s.exec.Execute(ctx, func(ctx context.Context, attempt int) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return s.classify(ctx, "get_object", err)
		}
		defer out.Body.Close()
		body, err := io.ReadAll(out.Body)
		if err != nil {
			return s.classify(ctx, "get_object", err)
		}
		data = body
		if out.ContentType != nil {
			mime = *out.ContentType
		}
		return nil
	})
	metrics.RecordStoreOperation("get_object", statusLabel(err), time.Since(start).Seconds())
	if err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

// ListPrefix enumerates all keys under the prefix.
func (s *S3Storage) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := s.ensureEnabled(ctx); err != nil {
		return nil, err
	}

	var keys []string
	start := time.Now()
	err := s.exec.Execute(ctx, func(ctx context.Context, attempt int) error {
		keys = keys[:0]
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return s.classify(ctx, "list_objects", err)
			}
			for _, obj := range page.Contents {
				if obj.Key != nil {
					keys = append(keys, *obj.Key)
				}
			}
		}
		return nil
	})
	metrics.RecordStoreOperation("list_objects", statusLabel(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// PresignGet mints a time-bounded read URL for the key.
func (s *S3Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	if err := s.ensureEnabled(ctx); err != nil {
		return "", time.Time{}, err
	}

	start := time.Now()
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	metrics.RecordPresign(time.Since(start).Seconds())
	if err != nil {
		return "", time.Time{}, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeSigningConfig,
			"failed to presign read url",
			err,
			"a7b3c9d1-2e4f-4a6b-8c0d-5e7f9a1b3c5d",
		)
	}
	return s.externalizeURL(req.URL), start.Add(ttl), nil
}

// PresignPut mints a time-bounded write URL for the key.
func (s *S3Storage) PresignPut(ctx context.Context, key string, contentType string, ttl time.Duration) (string, time.Time, error) {
	if err := s.ensureEnabled(ctx); err != nil {
		return "", time.Time{}, err
	}

	start := time.Now()
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	metrics.RecordPresign(time.Since(start).Seconds())
	if err != nil {
		return "", time.Time{}, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeSigningConfig,
			"failed to presign write url",
			err,
			"f2d4b6a8-0c1e-4f3a-9b5d-7e9f1a3b5c7d",
		)
	}
	return s.externalizeURL(req.URL), start.Add(ttl), nil
}

// Health performs a simple HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	if s.disabled {
		return nil
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

// classify maps SDK failures onto the error taxonomy. 5xx-class responses and
// network failures are transient; not-found and auth failures are terminal.
func (s *S3Storage) classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return platformerrors.NewErrorWithContext(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeNotFound,
			"object not found",
			err,
			"d1e3f5a7-9b1c-4d2e-8f4a-6b8c0d2e4f6a",
			map[string]any{"operation": op},
		)
	}

	transient := false
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		transient = true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		transient = true
	}

	errType := platformerrors.ErrorTypeInternal
	if transient {
		errType = platformerrors.ErrorTypeStoreTransient
	}
	return platformerrors.NewErrorWithContext(
		ctx,
		platformerrors.LayerInfrastructure,
		errType,
		"object store operation failed",
		err,
		"b8c0d2e4-f6a8-4b1c-9d3e-5f7a9b1c3d5e",
		map[string]any{"operation": op},
	)
}

func (s *S3Storage) externalizeURL(raw string) string {
	publicEndpoint := strings.TrimSpace(s.publicEndpoint)
	if publicEndpoint == "" || strings.TrimSpace(raw) == "" {
		return raw
	}

	target, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	external, err := url.Parse(publicEndpoint)
	if err != nil || external.Scheme == "" || external.Host == "" {
		return raw
	}

	target.Scheme = external.Scheme
	target.Host = external.Host
	return target.String()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
