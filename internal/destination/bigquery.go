package destination

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"

	"admesh-export/internal/model"
)

// BigQueryTarget issues a table-load job for the artifact instead of copying
// bytes: BigQuery ingests the file itself and reports the outcome through
// the load job status.
type BigQueryTarget struct {
	client *bigquery.Client
}

func NewBigQueryTarget(ctx context.Context, projectID string) (*BigQueryTarget, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return &BigQueryTarget{client: client}, nil
}

func (t *BigQueryTarget) Upload(ctx context.Context, localPath string, cfg model.ExportConfig) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact for bigquery load: %w", err)
	}
	defer f.Close()

	src := bigquery.NewReaderSource(f)
	src.SourceFormat = loadFormat(localPath)
	// BigQuery can infer the table schema for text formats; Parquet carries
	// its own schema in the file.
	if src.SourceFormat != bigquery.Parquet {
		src.AutoDetect = true
	}

	loader := t.client.Dataset(cfg.Dataset).Table(cfg.Table).LoaderFrom(src)
	job, err := loader.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("start bigquery load into %s.%s: %w", cfg.Dataset, cfg.Table, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("wait for bigquery load into %s.%s: %w", cfg.Dataset, cfg.Table, err)
	}
	if err := status.Err(); err != nil {
		return "", fmt.Errorf("bigquery load into %s.%s: %w", cfg.Dataset, cfg.Table, err)
	}
	return fmt.Sprintf("%s.%s", cfg.Dataset, cfg.Table), nil
}

// Close releases the underlying client.
func (t *BigQueryTarget) Close() error {
	return t.client.Close()
}

// loadFormat selects the load job's source format from the artifact's file
// extension, tolerating the gzip suffix.
func loadFormat(localPath string) bigquery.DataFormat {
	name := strings.TrimSuffix(localPath, ".gz")
	switch {
	case strings.HasSuffix(name, ".json"):
		return bigquery.JSON
	case strings.HasSuffix(name, ".parquet"):
		return bigquery.Parquet
	default:
		return bigquery.CSV
	}
}
