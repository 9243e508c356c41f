package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// MinioBackend stores each collection document as one object in a bucket.
// The external document id is the object key.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

func NewMinioBackend(client *minio.Client, bucket string) *MinioBackend {
	return &MinioBackend{client: client, bucket: bucket}
}

// EnsureBucket creates the data bucket when it does not exist yet.
func (b *MinioBackend) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.bucket, err)
	}
	return nil
}

func (b *MinioBackend) Fetch(ctx context.Context, id string) ([]byte, error) {
	object, err := b.client.GetObject(ctx, b.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioErr(err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, translateMinioErr(err)
	}
	return data, nil
}

func (b *MinioBackend) Store(ctx context.Context, id string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, id, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

// Create writes the initial document. Object stores have no create-vs-update
// distinction, so this is a plain put of the seed content.
func (b *MinioBackend) Create(ctx context.Context, id string, data []byte) error {
	return b.Store(ctx, id, data)
}

func (b *MinioBackend) Ping(ctx context.Context) error {
	_, err := b.client.BucketExists(ctx, b.bucket)
	return err
}

func translateMinioErr(err error) error {
	response := minio.ToErrorResponse(err)
	if response.Code == "NoSuchKey" || response.Code == "NoSuchBucket" {
		return ErrNotFound
	}
	return err
}
