package blobstore

import (
	"errors"
	"testing"
	"time"

	"github.com/and161185/recipebook/internal/errs"
)

func TestImagePath(t *testing.T) {
	t.Parallel()
	at := time.UnixMilli(1700000000123)
	if got := ImagePath("Phở bò", at); got != "Images/Phở bò-1700000000123" {
		t.Fatalf("ImagePath=%q", got)
	}
	if got := AvatarPath("an@example.com"); got != "avatars/an@example.com" {
		t.Fatalf("AvatarPath=%q", got)
	}
}

func TestValidPath(t *testing.T) {
	t.Parallel()
	for _, p := range []string{"", "/abs", "a//b", "a/../b", "a/."} {
		if err := ValidPath(p); !errors.Is(err, errs.ErrInvalid) {
			t.Fatalf("ValidPath(%q)=%v, want ErrInvalid", p, err)
		}
	}
	if err := ValidPath("Images/x-1"); err != nil {
		t.Fatalf("ValidPath: %v", err)
	}
}

func TestJoinURL_Escapes(t *testing.T) {
	t.Parallel()
	got := JoinURL("https://cdn.example.com/", "Images/Phở bò-1")
	want := "https://cdn.example.com/Images/Ph%E1%BB%9F%20b%C3%B2-1"
	if got != want {
		t.Fatalf("JoinURL=%q want %q", got, want)
	}
}
