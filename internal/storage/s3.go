package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	appconfig "contractiq/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// ErrDocumentNotFound is returned when the referenced object does not exist
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore holds the raw uploaded bytes. The record store only ever
// keeps the returned ref, never the bytes.
type DocumentStore interface {
	// Put stores a document under the given key and returns its ref
	Put(ctx context.Context, key string, body io.Reader) (string, error)

	// Get fetches the full document bytes for a ref
	Get(ctx context.Context, ref string) ([]byte, error)

	// Delete removes a stored document
	Delete(ctx context.Context, ref string) error

	// TestConnection verifies the bucket is reachable
	TestConnection(ctx context.Context) error
}

type s3Store struct {
	s3     *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates a DocumentStore backed by S3
func NewS3Store(cfg appconfig.StorageConfig) (DocumentStore, error) {
	credProvider := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credProvider),
	)
	if err != nil {
		return nil, err
	}

	return &s3Store{
		s3:     s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.KeyPrefix, "/"),
	}, nil
}

func (s *s3Store) refFor(key string) string {
	if s.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", s.prefix, key)
}

func (s *s3Store) Put(ctx context.Context, key string, body io.Reader) (string, error) {
	ref := s.refFor(key)

	uploader := manager.NewUploader(s.s3)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
		Body:   body,
	})
	if err != nil {
		log.Error().Err(err).Str("ref", ref).Msg("Failed to upload document")
		return "", err
	}

	log.Debug().Str("ref", ref).Msg("Stored document")
	return ref, nil
}

func (s *s3Store) Get(ctx context.Context, ref string) ([]byte, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrDocumentNotFound
		}
		log.Error().Err(err).Str("ref", ref).Msg("Failed to fetch document")
		return nil, err
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *s3Store) Delete(ctx context.Context, ref string) error {
	_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		log.Error().Err(err).Str("ref", ref).Msg("Failed to delete document")
	}
	return err
}

func (s *s3Store) TestConnection(ctx context.Context) error {
	_, err := s.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	})
	log.Err(err).Msg("S3 document store connection check")

	return err
}
