package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/lo"

	"imagen/internal/log"
)

type UploadParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) error
}

// FileUploader writes images into Dir, overwriting silently on name
// collision. An empty Dir means the working directory.
type FileUploader struct {
	Dir string
}

func (u *FileUploader) Upload(ctx context.Context, params UploadParams) error {
	path := filepath.Join(lo.Ternary(u.Dir != "", u.Dir, "."), params.Name)
	log := log.FromContextOrDiscard(ctx).WithGroup("store")
	log.Debug("writing file", "path", path)
	return os.WriteFile(path, params.Data, 0600)
}
