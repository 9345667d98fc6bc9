package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/constants"
)

// GCSArchiver stores originals in a Google Cloud Storage bucket.
type GCSArchiver struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: client.Bucket(bucket), name: bucket}, nil
}

func (g *GCSArchiver) Archive(ctx context.Context, fileName string, data []byte) (string, error) {
	key := ObjectKey(fileName, time.Now(), uuid.New())
	w := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = constants.ContentType(fileName)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return "gs://" + g.name + "/" + key, nil
}

func (g *GCSArchiver) Close() error { return g.client.Close() }
