package client

import (
	"context"

	"github.com/and161185/recipebook/internal/api"
	"github.com/and161185/recipebook/internal/blobstore"
)

// Blobs is the remote blob store.
type Blobs struct {
	api *api.BackendClient
}

var _ blobstore.Store = (*Blobs)(nil)

// Upload sends data to path.
func (b *Blobs) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := blobstore.ValidPath(path); err != nil {
		return err
	}
	_, err := b.api.Upload(ctx, &api.UploadRequest{Path: path, Data: data, ContentType: contentType})
	return fromStatus(err)
}

// DownloadURL returns the URL of path.
func (b *Blobs) DownloadURL(ctx context.Context, path string) (string, error) {
	resp, err := b.api.DownloadURL(ctx, &api.PathRequest{Path: path})
	if err != nil {
		return "", fromStatus(err)
	}
	return resp.URL, nil
}
