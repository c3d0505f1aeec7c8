// Package memory is an in-process blob store.
package memory

import (
	"context"
	"sync"

	"github.com/and161185/recipebook/internal/blobstore"
	"github.com/and161185/recipebook/internal/errs"
)

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
}

// Store keeps objects in a map; URLs are rooted at BaseURL.
type Store struct {
	baseURL string

	mu   sync.RWMutex
	objs map[string]Object
}

var _ blobstore.Store = (*Store)(nil)

// New constructs an empty store. baseURL defaults to "mem://blobs".
func New(baseURL string) *Store {
	if baseURL == "" {
		baseURL = "mem://blobs"
	}
	return &Store{baseURL: baseURL, objs: map[string]Object{}}
}

// Upload stores a copy of data.
func (s *Store) Upload(_ context.Context, path string, data []byte, contentType string) error {
	if err := blobstore.ValidPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[path] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

// DownloadURL returns the URL of an existing object.
func (s *Store) DownloadURL(_ context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objs[path]; !ok {
		return "", errs.ErrNotFound
	}
	return blobstore.JoinURL(s.baseURL, path), nil
}

// Object returns the stored object at path.
func (s *Store) Object(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objs[path]
	return o, ok
}
