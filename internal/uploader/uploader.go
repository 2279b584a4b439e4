// Package uploader ships finished submission archives to remote storage.
package uploader

import "context"

// Uploader copies a local submission archive to a storage backend.
type Uploader interface {
	Enabled() bool
	UploadFile(ctx context.Context, path string) (string, error)
}

type NoopUploader struct{}

func (n NoopUploader) Enabled() bool {
	return false
}

func (n NoopUploader) UploadFile(ctx context.Context, path string) (string, error) {
	return "", nil
}
