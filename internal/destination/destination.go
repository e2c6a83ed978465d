// Package destination holds the upload adapters for export artifacts. Each
// destination kind is its own variant behind the single Uploader capability;
// adding a destination means adding one variant and registering it, not
// growing a central switch.
package destination

import (
	"context"
	"fmt"

	"admesh-export/internal/model"
)

// Uploader delivers a locally generated artifact to its destination and
// returns the final location reference (path, object URL or table).
type Uploader interface {
	Upload(ctx context.Context, localPath string, cfg model.ExportConfig) (string, error)
}

// Registry maps destination enums to configured adapters. Adapters for
// providers that are not configured stay nil and resolve to an error at
// upload time, which the job failure path reports.
type Registry struct {
	local    *LocalTarget
	s3       *S3Target
	gcs      *GCSTarget
	bigquery *BigQueryTarget
}

// NewRegistry builds a registry from whichever adapters are configured.
// Nil adapters are allowed.
func NewRegistry(s3 *S3Target, gcs *GCSTarget, bigquery *BigQueryTarget) *Registry {
	return &Registry{
		local:    &LocalTarget{},
		s3:       s3,
		gcs:      gcs,
		bigquery: bigquery,
	}
}

// For resolves the adapter for a destination.
func (r *Registry) For(dest model.Destination) (Uploader, error) {
	switch dest {
	case model.DestinationLocal:
		return r.local, nil
	case model.DestinationS3:
		if r.s3 == nil {
			return nil, fmt.Errorf("s3 destination not configured")
		}
		return r.s3, nil
	case model.DestinationGCS:
		if r.gcs == nil {
			return nil, fmt.Errorf("gcs destination not configured")
		}
		return r.gcs, nil
	case model.DestinationBigQuery:
		if r.bigquery == nil {
			return nil, fmt.Errorf("bigquery destination not configured")
		}
		return r.bigquery, nil
	}
	return nil, fmt.Errorf("unsupported destination %q", dest)
}
