// Package gcs uploads CSV exports to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// DefaultCacheControl is applied when Config.CacheControl is empty.
const DefaultCacheControl = "no-cache"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Config names the bucket and the object attributes stamped on every export.
type Config struct {
	Bucket       string
	CacheControl string
	// Metadata becomes custom object metadata, e.g. the run id.
	Metadata map[string]string
}

// BlobStore writes export objects into one bucket.
type BlobStore struct {
	client       *storage.Client
	bucket       string
	cacheControl string
	metadata     map[string]string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	cacheControl := cfg.CacheControl
	if cacheControl == "" {
		cacheControl = DefaultCacheControl
	}
	meta := make(map[string]string, len(cfg.Metadata))
	for k, v := range cfg.Metadata {
		meta[k] = v
	}
	return &BlobStore{client: client, bucket: cfg.Bucket, cacheControl: cacheControl, metadata: meta}, nil
}

// PutObject uploads the export in a single request carrying its CRC32C and
// returns the gs:// URI of the object.
func (s *BlobStore) PutObject(ctx context.Context, object string, contentType string, r io.Reader) (string, error) {
	object = strings.TrimPrefix(object, "/")
	if strings.TrimSpace(object) == "" {
		return "", fmt.Errorf("path is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}

	writer := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	writer.ChunkSize = 0
	writer.ContentType = contentType
	writer.CacheControl = s.cacheControl
	writer.ContentDisposition = fmt.Sprintf("attachment; filename=%q", path.Base(object))
	if len(s.metadata) > 0 {
		writer.Metadata = s.metadata
	}
	writer.CRC32C = crc32.Checksum(data, castagnoli)
	writer.SendCRC32C = true

	if _, err := writer.Write(data); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}

// ParseURI splits gs://bucket/object into its parts.
func ParseURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" || strings.TrimSpace(object) == "" {
		return "", "", fmt.Errorf("gs uri %q must name a bucket and an object", uri)
	}
	return bucket, object, nil
}
