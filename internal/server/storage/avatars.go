// Package storage issues presigned S3 upload URLs for user avatars. The
// server never handles image bytes itself.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Settings configures the S3-compatible endpoint avatars are uploaded to.
type Settings struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	PresignTTL   time.Duration
}

// Upload is a presigned PUT the client performs directly against S3.
type Upload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// seams for tests
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
	newS3PresignClient    = func(c *s3.Client) *s3.PresignClient { return s3.NewPresignClient(c) }
)

type AvatarStore struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	now     func() time.Time
}

// NewAvatarStore builds the presign client once. Presigning is a local
// signing operation, so no request reaches S3 here.
func NewAvatarStore(ctx context.Context, s Settings) (*AvatarStore, error) {
	if s.Bucket == "" {
		return nil, errors.New("avatar bucket is required")
	}
	if s.PresignTTL <= 0 {
		return nil, errors.New("presign ttl must be positive")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKey,
			s.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &AvatarStore{
		presign: newS3PresignClient(client),
		bucket:  s.Bucket,
		ttl:     s.PresignTTL,
		now:     time.Now,
	}, nil
}

// ObjectKey returns a fresh, unguessable key under the user's prefix.
func ObjectKey(userID string, now time.Time) string {
	return fmt.Sprintf("avatars/%s/%d/%02d/%v", userID, now.Year(), now.Month(), uuid.New())
}

// PresignUpload returns a PUT URL for a new avatar object of userID.
func (s *AvatarStore) PresignUpload(ctx context.Context, userID, contentType string) (*Upload, error) {
	now := s.now()
	key := ObjectKey(userID, now)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign avatar upload: %w", err)
	}

	return &Upload{Key: key, URL: req.URL, ExpiresAt: now.Add(s.ttl)}, nil
}
