// Package storage confirms recording objects a backend claims to have
// uploaded actually exist, adapted from pkg/backup/storage_s3.go's Save/
// Load/List shape onto the MinIO Go client instead of aws-sdk-go-v2.
package storage

import (
	"context"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"

	"conference/internal/core/domain"
	"conference/internal/core/ports"
)

// RecordingStorage implements ports.RecordingStorage against a MinIO (or
// any S3-compatible) bucket.
type RecordingStorage struct {
	client *minio.Client
	bucket string
}

func NewRecordingStorage(client *minio.Client, bucket string) *RecordingStorage {
	return &RecordingStorage{client: client, bucket: bucket}
}

// ObjectsExist reports whether every uri is present in the bucket, stat-ing
// each one. A bare object key is accepted as well as an `s3://bucket/key`
// or `https://host/bucket/key` URI.
func (s *RecordingStorage) ObjectsExist(ctx context.Context, uris []string) (bool, error) {
	for _, uri := range uris {
		key := s.objectKey(uri)
		if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
			resp := minio.ToErrorResponse(err)
			if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
				return false, nil
			}
			return false, domain.WrapError(domain.ErrStatsCollectionFailed, "failed to stat recording object", err)
		}
	}
	return true, nil
}

func (s *RecordingStorage) objectKey(uri string) string {
	if strings.HasPrefix(uri, "s3://") || strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		parsed, err := url.Parse(uri)
		if err == nil {
			if parsed.Scheme == "s3" {
				// s3://bucket/key: the bucket is the host, the path is the key.
				return strings.TrimPrefix(parsed.Path, "/")
			}
			return strings.TrimPrefix(parsed.Path, "/"+s.bucket+"/")
		}
	}
	return uri
}

var _ ports.RecordingStorage = (*RecordingStorage)(nil)
