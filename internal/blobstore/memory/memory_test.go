package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/and161185/recipebook/internal/errs"
)

func TestStore_UploadThenURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New("https://blobs.test")

	if _, err := s.DownloadURL(ctx, "Images/x-1"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound before upload, got %v", err)
	}
	data := []byte{0xff, 0xd8}
	if err := s.Upload(ctx, "Images/x-1", data, "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	data[0] = 0
	o, ok := s.Object("Images/x-1")
	if !ok || o.Data[0] != 0xff || o.ContentType != "image/jpeg" {
		t.Fatalf("stored object must be a copy: %+v", o)
	}
	u, err := s.DownloadURL(ctx, "Images/x-1")
	if err != nil || u != "https://blobs.test/Images/x-1" {
		t.Fatalf("DownloadURL=%q err=%v", u, err)
	}
}

func TestStore_RejectsBadPath(t *testing.T) {
	t.Parallel()
	if err := New("").Upload(context.Background(), "", nil, ""); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}
