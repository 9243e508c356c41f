// Package upload stores admin-panel image uploads in object storage and
// hands back public URLs.
package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// DefaultFolder is where uploads land when the form names no folder.
const DefaultFolder = "website_uploads"

// Service writes uploaded files to a public-read bucket.
type Service struct {
	client     *minio.Client
	bucket     string
	publicBase string
	now        func() time.Time
}

func NewService(client *minio.Client, bucket, publicBase string) *Service {
	return &Service{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		now:        time.Now,
	}
}

// EnsureBucket creates the uploads bucket if missing and marks it
// public-read so the site can serve images straight from object storage.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
		log.Printf("upload: created bucket %s", s.bucket)
	}

	policy := fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"AWS": ["*"]},
      "Action": ["s3:GetObject"],
      "Resource": ["arn:aws:s3:::%s/*"]
    }
  ]
}`, s.bucket)
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		return fmt.Errorf("set bucket policy %s: %w", s.bucket, err)
	}
	return nil
}

// Put stores one file and returns its public URL. Object keys embed a
// millisecond timestamp so re-uploads of the same filename never collide.
func (s *Service) Put(ctx context.Context, folder, filename, contentType string, r io.Reader, size int64) (string, error) {
	if strings.TrimSpace(folder) == "" {
		folder = DefaultFolder
	} else {
		folder = sanitizeFilename(folder)
	}

	key := fmt.Sprintf("%s/%d-%s", folder, s.now().UnixMilli(), sanitizeFilename(filename))

	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts); err != nil {
		return "", fmt.Errorf("store upload %s: %w", key, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, key), nil
}

// sanitizeFilename strips path components and characters that are awkward
// in object keys or URLs.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	return strings.ToLower(out)
}
