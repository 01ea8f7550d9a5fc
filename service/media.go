// file: service/media.go

package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	appconfig "go-vidtube-api/config"
	"go-vidtube-api/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadResult describes a stored media asset. Duration is only populated
// for video assets and stays zero for images.
type UploadResult struct {
	URL      string  `json:"url"`
	Duration float64 `json:"duration,omitempty"`
}

// IMediaStore is the contract for the external media-hosting collaborator.
// Registration treats an upload failure as a registration failure, so no
// user record is ever created without a resolvable avatar URL.
type IMediaStore interface {
	Upload(ctx context.Context, file io.Reader, filename, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, fileURL string) error
}

// S3MediaStore implements IMediaStore against an S3-compatible bucket.
type S3MediaStore struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3MediaStore(ctx context.Context) (*S3MediaStore, error) {
	cfg := appconfig.AppConfig.Media

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load media store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3MediaStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (m *S3MediaStore) Upload(ctx context.Context, file io.Reader, filename, contentType string) (*UploadResult, error) {
	key := storageKey(filename)

	log := logger.Log.WithField("key", key)
	log.Info("Uploading media object")

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.WithError(err).Error("Failed to upload media object")
		return nil, fmt.Errorf("failed to upload media object: %w", err)
	}

	return &UploadResult{URL: m.baseURL + "/" + key}, nil
}

func (m *S3MediaStore) Delete(ctx context.Context, fileURL string) error {
	key := strings.TrimPrefix(fileURL, m.baseURL+"/")
	if key == "" || key == fileURL {
		return fmt.Errorf("unrecognized media url: %s", fileURL)
	}

	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logger.Log.WithField("key", key).WithError(err).Error("Failed to delete media object")
		return fmt.Errorf("failed to delete media object: %w", err)
	}
	return nil
}

// storageKey buckets objects by upload date and gives each a random name,
// keeping the original file extension.
func storageKey(filename string) string {
	d := time.Now()
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
