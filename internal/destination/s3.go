package destination

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"admesh-export/internal/model"
)

// S3Target streams artifacts to an S3 bucket via the multipart upload
// manager, so large exports never need to fit in memory.
type S3Target struct {
	uploader *s3manager.Uploader
}

// NewS3Target builds the adapter from shared AWS credentials. An empty
// endpoint uses the default AWS resolution; a custom one supports
// S3-compatible stores.
func NewS3Target(region, endpoint string) (*S3Target, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &S3Target{uploader: s3manager.NewUploader(sess)}, nil
}

func (t *S3Target) Upload(ctx context.Context, localPath string, cfg model.ExportConfig) (string, error) {
	key := objectKey(cfg.Path, localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact for s3 upload: %w", err)
	}
	defer f.Close()

	_, err = t.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3 bucket %s key %s: %w", cfg.Bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", cfg.Bucket, key), nil
}

// objectKey joins the configured prefix with the artifact's base name.
func objectKey(prefix, localPath string) string {
	return path.Join(prefix, filepath.Base(localPath))
}
