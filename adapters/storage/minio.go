package storage

import (
	"bytes"
	"context"
	"io"

	"surveylens/internal/errors"
	"surveylens/ports"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps uploaded spreadsheets in an S3-compatible bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

var _ ports.BlobStore = (*Store)(nil)

// New connects to the object store and creates the bucket when missing.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.ExternalServiceError("object storage", err)
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, errors.ExternalServiceError("object storage", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, errors.ExternalServiceError("object storage", err)
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.ExternalServiceError("object storage", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.ExternalServiceError("object storage", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.NotFound("object " + key)
		}
		return nil, errors.ExternalServiceError("object storage", err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.ExternalServiceError("object storage", err)
	}
	return nil
}
