package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSGetter serves objects from a Google Cloud Storage bucket.
// Credentials come from the ambient environment (ADC).
type GCSGetter struct {
	client *storage.Client
	bucket string
}

func NewGCSGetter(ctx context.Context, bucket string) (*GCSGetter, error) {
	if bucket == "" {
		return nil, errors.New("blob: gcs bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob: create gcs client: %w", err)
	}
	return &GCSGetter{client: client, bucket: bucket}, nil
}

func (g *GCSGetter) GetBytes(ctx context.Context, path string) ([]byte, error) {
	reader, err := g.client.Bucket(g.bucket).Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob: open gs://%s/%s: %w", g.bucket, path, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("blob: read gs://%s/%s: %w", g.bucket, path, err)
	}
	return data, nil
}

func (g *GCSGetter) List(ctx context.Context, prefix string) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("blob: list gs://%s/%s: %w", g.bucket, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	sort.Strings(keys)
	return keys, nil
}

func (g *GCSGetter) Close() error {
	return g.client.Close()
}
