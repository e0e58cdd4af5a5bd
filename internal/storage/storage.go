package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"

	appconfig "github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/pkg/logger"
)

var Module = fx.Module("storage",
	fx.Provide(NewService),
)

// Service provides S3-compatible storage operations used to archive the
// opaque raw-source JSON blob collected during a run, one object per actor
// per run.
type Service struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	cfg           *appconfig.StorageConfig
	log           *slog.Logger
	bucket        string
}

// UploadOptions configures an upload operation.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

// UploadResult contains information about an uploaded object.
type UploadResult struct {
	Key         string
	Bucket      string
	ETag        string
	Size        int64
	ContentType string
}

// NewService creates a new storage service. When storage is not configured
// the Service is returned disabled: ArchiveRawSources becomes a no-op that
// logs and returns nil, since archiving is best-effort telemetry, not a
// contract the orchestrator depends on.
func NewService(cfg *appconfig.StorageConfig, log *slog.Logger) (*Service, error) {
	log = log.With(logger.Scope("storage"))

	if !cfg.IsConfigured() {
		log.Warn("storage service disabled - no configuration provided")
		return &Service{cfg: cfg, log: log}, nil
	}

	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
				SigningRegion:     cfg.Region,
			}, nil
		},
	)

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	presignClient := s3.NewPresignClient(client)

	log.Info("storage service initialized",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("bucket", cfg.BucketRawSources),
	)

	return &Service{
		client:        client,
		presignClient: presignClient,
		cfg:           cfg,
		log:           log,
		bucket:        cfg.BucketRawSources,
	}, nil
}

// Enabled returns true if the storage service is properly configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// Upload uploads data to the given key in the raw-sources bucket.
func (s *Service) Upload(ctx context.Context, key string, data io.Reader, size int64, opts UploadOptions) (*UploadResult, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("storage service not enabled")
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		s.log.Error("failed to upload object", slog.String("key", key), logger.Error(err))
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	etag := ""
	if result.ETag != nil {
		etag = strings.Trim(*result.ETag, "\"")
	}

	s.log.Debug("object uploaded", slog.String("key", key), slog.Int64("size", size))

	return &UploadResult{
		Key:         key,
		Bucket:      s.bucket,
		ETag:        etag,
		Size:        size,
		ContentType: opts.ContentType,
	}, nil
}

// ArchiveRawSources uploads the opaque combined raw-source payload for one
// actor's run. It is best-effort: callers log and continue on error rather
// than failing the run, since the orchestrator's contract does not depend
// on archival succeeding.
func (s *Service) ArchiveRawSources(ctx context.Context, actorID string, runID string, payload []byte) (*UploadResult, error) {
	if !s.Enabled() {
		s.log.Debug("archive skipped, storage disabled", slog.String("actor_id", actorID))
		return nil, nil
	}

	key := GenerateRawSourceKey(actorID, runID)
	return s.Upload(ctx, key, strings.NewReader(string(payload)), int64(len(payload)), UploadOptions{
		ContentType: "application/json",
	})
}

// Download retrieves an object from storage.
func (s *Service) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("storage service not enabled")
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Error("failed to download object", slog.String("key", key), logger.Error(err))
		return nil, fmt.Errorf("download failed: %w", err)
	}

	return result.Body, nil
}

// Exists checks if an object exists in storage.
func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	if !s.Enabled() {
		return false, fmt.Errorf("storage service not enabled")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "NotFound") || strings.Contains(errStr, "404") || strings.Contains(errStr, "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("head object failed: %w", err)
	}

	return true, nil
}

// GenerateRawSourceKey builds the storage key for one actor's run archive.
// Format: {actorId}/{runId}.json
func GenerateRawSourceKey(actorID, runID string) string {
	return fmt.Sprintf("%s/%s.json", SanitizeFilename(actorID), SanitizeFilename(runID))
}

// SanitizeFilename cleans a path segment for use as (part of) a storage key.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(filename) {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
		if ok {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	sanitized := strings.Trim(b.String(), "_")
	if len(sanitized) > 200 {
		sanitized = sanitized[:200]
	}
	if sanitized == "" {
		return "unnamed"
	}
	return sanitized
}

// GetSignedDownloadURLOptions configures a signed download URL.
type GetSignedDownloadURLOptions struct {
	ExpiresIn time.Duration
}

// GetSignedDownloadURL generates a presigned URL for downloading an object.
func (s *Service) GetSignedDownloadURL(ctx context.Context, key string, opts GetSignedDownloadURLOptions) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("storage service not enabled")
	}
	if opts.ExpiresIn == 0 {
		opts.ExpiresIn = time.Hour
	}

	presignedReq, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = opts.ExpiresIn
	})
	if err != nil {
		s.log.Error("failed to generate presigned URL", slog.String("key", key), logger.Error(err))
		return "", fmt.Errorf("presign failed: %w", err)
	}

	return presignedReq.URL, nil
}
