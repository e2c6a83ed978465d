package destination

import (
	"context"

	"admesh-export/internal/model"
)

// LocalTarget is the no-op destination: the generated file path is itself
// the final location, served later by the download endpoint.
type LocalTarget struct{}

func (t *LocalTarget) Upload(_ context.Context, localPath string, _ model.ExportConfig) (string, error) {
	return localPath, nil
}
