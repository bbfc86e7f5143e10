package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prepwise/prepwise/config"
	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/rs/zerolog/log"
)

// UploadResult describes one stored object.
type UploadResult struct {
	URL  string
	Key  string
	Size int64
}

// StorageService persists audio artifacts in the object store. Keys are
// opaque; callers hand out presigned URLs rather than the keys themselves.
type StorageService interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (*UploadResult, error)
	Download(ctx context.Context, key string) ([]byte, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type s3StorageService struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

func NewStorageService(cfg *config.Config) (StorageService, error) {
	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = &cfg.S3.Endpoint
		}
		o.UsePathStyle = cfg.S3.ForcePathStyle
	})

	return &s3StorageService{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.S3.Bucket,
	}, nil
}

func (s *s3StorageService) Upload(ctx context.Context, data []byte, contentType, folder string) (*UploadResult, error) {
	key, err := objectKey(folder, contentType)
	if err != nil {
		return nil, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upload %s: %v", apperr.ErrStorage, key, err)
	}

	url, err := s.SignedURL(ctx, key, 24*time.Hour)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("key", key).Int("size", len(data)).Msg("Object uploaded")
	return &UploadResult{URL: url, Key: key, Size: int64(len(data))}, nil
}

func (s *s3StorageService) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", apperr.ErrStorage, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrStorage, key, err)
	}
	return data, nil
}

func (s *s3StorageService) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", apperr.ErrStorage, key, err)
	}
	return req.URL, nil
}

func (s *s3StorageService) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", apperr.ErrStorage, key, err)
	}
	return nil
}

// objectKey builds a collision-resistant key: folder/unixmillis-random.ext.
func objectKey(folder, contentType string) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: generate object key: %v", apperr.ErrStorage, err)
	}
	return fmt.Sprintf("%s/%d-%s%s", folder, time.Now().UnixMilli(), hex.EncodeToString(buf), extensionFor(contentType)), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
