package store

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// DocumentArchive keeps the original bytes of uploaded documents.
type DocumentArchive interface {
	// Save stores data and returns a reference to the stored object.
	Save(ctx context.Context, userID, filename string, data []byte) (string, error)
}

// MinIOArchive stores uploads in a MinIO bucket under users/<user id>/.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchive creates a new MinIOArchive. The bucket must already exist.
func NewMinIOArchive(client *minio.Client, bucket string) *MinIOArchive {
	return &MinIOArchive{client: client, bucket: bucket}
}

// Save uploads data and returns an s3:// style reference.
func (a *MinIOArchive) Save(ctx context.Context, userID, filename string, data []byte) (string, error) {
	key := ObjectKey(userID, filename, uuid.NewString())
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimetype.Detect(data).String(),
		UserMetadata: map[string]string{
			"user-id":  userID,
			"filename": filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// ObjectKey builds users/<userID>/<id>-<base name>. The base name is reduced
// to a safe character set.
func ObjectKey(userID, filename, id string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return path.Join("users", userID, id+"-"+base)
}
