package destination

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"

	"admesh-export/internal/model"
)

// GCSTarget streams artifacts to a Google Cloud Storage bucket. Credentials
// come from the ambient application-default chain.
type GCSTarget struct {
	client *storage.Client
}

func NewGCSTarget(ctx context.Context) (*GCSTarget, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSTarget{client: client}, nil
}

func (t *GCSTarget) Upload(ctx context.Context, localPath string, cfg model.ExportConfig) (string, error) {
	key := objectKey(cfg.Path, localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact for gcs upload: %w", err)
	}
	defer f.Close()

	w := t.client.Bucket(cfg.Bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return "", fmt.Errorf("upload to gcs bucket %s object %s: %w", cfg.Bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gcs object %s/%s: %w", cfg.Bucket, key, err)
	}
	return fmt.Sprintf("gs://%s/%s", cfg.Bucket, key), nil
}

// Close releases the underlying client.
func (t *GCSTarget) Close() error {
	return t.client.Close()
}
