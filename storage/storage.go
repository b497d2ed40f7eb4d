// Package storage copies finished render artifacts into owned object storage.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
)

type BlobStore interface {
	// UploadFromURL streams the object at sourceURL into the bucket under key
	// and returns the stored object's location.
	UploadFromURL(ctx context.Context, key, sourceURL string) (string, error)
}

type MinIOStore struct {
	client     *minio.Client
	bucket     string
	httpClient *http.Client
}

func NewMinIOStore(client *minio.Client, bucket string) *MinIOStore {
	return &MinIOStore{
		client: client,
		bucket: bucket,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (s *MinIOStore) UploadFromURL(ctx context.Context, key, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch artifact: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("fetch artifact: http %d", res.StatusCode)
	}

	contentType := res.Header.Get("Content-Type")
	_, err = s.client.PutObject(ctx, s.bucket, key, res.Body, res.ContentLength, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.bucket, key), nil
}

// ExportKey builds the deterministic storage key for a finished artifact.
func ExportKey(kind, projectID, format string, now time.Time) string {
	return fmt.Sprintf("exports/%s/%s/%d-%s", kind, projectID, now.Unix(), format)
}
