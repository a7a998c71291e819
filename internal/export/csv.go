// Package export writes crawl results as CSV to a local path or a
// gs://bucket/object destination.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout-crawler/internal/crawler"
	"github.com/JakeFAU/jobscout-crawler/internal/storage/gcs"
	"github.com/JakeFAU/jobscout-crawler/internal/storage/local"
)

// DefaultPath is where exports land when no output is configured.
const DefaultPath = "datasets/jobscout24_all_jobs.csv"

const contentType = "text/csv; charset=utf-8"

// Header is the fixed CSV column order.
var Header = []string{"title", "company", "publishing_date", "quota", "location", "url", "job_id"}

// BlobStore receives the encoded export.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// BucketOpener returns a store for a GCS bucket.
type BucketOpener func(ctx context.Context, bucket string) (BlobStore, error)

// CSVExporter encodes records and hands them to the store matching the
// destination.
type CSVExporter struct {
	openBucket BucketOpener
	logger     *zap.Logger
}

// NewCSVExporter constructs an exporter. openBucket may be nil when only local
// destinations are used.
func NewCSVExporter(openBucket BucketOpener, logger *zap.Logger) *CSVExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVExporter{openBucket: openBucket, logger: logger.Named("export")}
}

// SaveToCSV writes records to filename. An empty slice writes nothing.
func (x *CSVExporter) SaveToCSV(ctx context.Context, records []crawler.JobRecord, filename string) error {
	_, err := x.Export(ctx, records, filename)
	return err
}

// Export is SaveToCSV returning the URI of the written object, or "" when
// there was nothing to write.
func (x *CSVExporter) Export(ctx context.Context, records []crawler.JobRecord, dest string) (string, error) {
	if len(records) == 0 {
		x.logger.Info("no records to export", zap.String("output", dest))
		return "", nil
	}
	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		return "", err
	}
	store, object, err := x.resolve(ctx, dest)
	if err != nil {
		return "", err
	}
	uri, err := store.PutObject(ctx, object, contentType, &buf)
	if err != nil {
		return "", fmt.Errorf("write export %s: %w", dest, err)
	}
	x.logger.Info("exported records", zap.Int("records", len(records)), zap.String("uri", uri))
	return uri, nil
}

func (x *CSVExporter) resolve(ctx context.Context, dest string) (BlobStore, string, error) {
	if dest == "" {
		dest = DefaultPath
	}
	if strings.HasPrefix(dest, "gs://") {
		bucket, object, err := gcs.ParseURI(dest)
		if err != nil {
			return nil, "", err
		}
		if x.openBucket == nil {
			return nil, "", fmt.Errorf("gcs destination %s is not supported without a bucket opener", dest)
		}
		store, err := x.openBucket(ctx, bucket)
		if err != nil {
			return nil, "", fmt.Errorf("open bucket %s: %w", bucket, err)
		}
		return store, object, nil
	}
	store, err := local.New(local.Config{BaseDir: filepath.Dir(dest)})
	if err != nil {
		return nil, "", fmt.Errorf("open local export dir: %w", err)
	}
	return store, filepath.Base(dest), nil
}

// Encode writes the header and one row per record. Nil optional fields become
// empty cells.
func Encode(w io.Writer, records []crawler.JobRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(Row(rec)); err != nil {
			return fmt.Errorf("write csv row for job %s: %w", rec.JobID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Row renders a record in Header order.
func Row(rec crawler.JobRecord) []string {
	return []string{
		rec.Title,
		rec.Company,
		deref(rec.PublishingDate),
		deref(rec.Quota),
		deref(rec.Location),
		rec.URL,
		rec.JobID,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
