// Package blobstore defines the binary object store used for item images and avatars.
package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/and161185/recipebook/internal/errs"
)

// Store uploads objects and hands out URLs for them.
type Store interface {
	// Upload stores data under path, replacing an existing object.
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	// DownloadURL returns a URL the object can be fetched from.
	DownloadURL(ctx context.Context, path string) (string, error)
}

// ImagePath is the object key of an item image uploaded at t.
func ImagePath(itemName string, t time.Time) string {
	return fmt.Sprintf("Images/%s-%d", itemName, t.UnixMilli())
}

// AvatarPath is the object key of a profile avatar.
func AvatarPath(email string) string { return "avatars/" + email }

// ValidPath rejects empty keys and keys with empty or dot segments.
func ValidPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") {
		return errs.Validation("path")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return errs.Validation("path")
		}
	}
	return nil
}

// JoinURL appends the escaped object key to base.
func JoinURL(base, path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segs, "/")
}
