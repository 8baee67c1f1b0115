package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newLocal(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	key := "recordings/Cam1/2024-03-15/07.mp4"
	if err := s.Write(ctx, key, strings.NewReader("chunk-data"), 10, "video/mp4"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := s.Stat(ctx, key)
	if err != nil || info.Size != 10 || info.ContentType != "video/mp4" {
		t.Fatalf("Stat = %+v, %v", info, err)
	}

	obj, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer obj.Body.Close()
	seeker, ok := obj.Body.(io.ReadSeeker)
	if !ok {
		t.Fatal("local body should seek")
	}
	if _, err := seeker.Seek(6, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	rest, _ := io.ReadAll(seeker)
	if string(rest) != "data" {
		t.Fatalf("read after seek = %q", rest)
	}

	if url, err := s.GetURL(ctx, key, 0); err != nil || url != "/"+key {
		t.Fatalf("GetURL = %q, %v", url, err)
	}
}

func TestLocalStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	if _, err := s.Stat(ctx, "missing.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stat err = %v", err)
	}
	if _, err := s.Open(ctx, "missing.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open err = %v", err)
	}
	if _, err := s.GetURL(ctx, "missing.mp4", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetURL err = %v", err)
	}

	// Directories are not objects.
	if err := s.Write(ctx, "dir/file.mp4", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(ctx, "dir"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open(dir) err = %v", err)
	}
}

func TestLocalStoreSizeMismatch(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	err := s.Write(ctx, "Cam1/short.mp4", strings.NewReader("abc"), 10, "")
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("Write err = %v", err)
	}
	if _, err := s.Stat(ctx, "Cam1/short.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("partial upload committed: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(s.Root(), "Cam1"))
	if len(entries) != 0 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	for _, key := range []string{"../../etc/passwd", "/etc/passwd", "", ".", "a/../../b"} {
		if _, err := s.Stat(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Stat(%q) err = %v", key, err)
		}
		if err := s.Write(ctx, key, strings.NewReader("x"), 1, ""); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Write(%q) err = %v", key, err)
		}
	}
}

func TestCleanKey(t *testing.T) {
	cases := map[string]string{
		"Cam1/2024-03-15/07.mp4":  "Cam1/2024-03-15/07.mp4",
		"Cam1//2024-03-15/07.mp4": "Cam1/2024-03-15/07.mp4",
		"a/b/../c.mp4":            "a/c.mp4",
		"..foo/x.mp4":             "..foo/x.mp4",
	}
	for in, want := range cases {
		got, err := CleanKey(in)
		if err != nil || got != want {
			t.Errorf("CleanKey(%q) = %q, %v", in, got, err)
		}
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a/07.mp4": "video/mp4",
		"a/seg.ts": "video/mp2t",
		"a/p.m3u8": "application/vnd.apple.mpegurl",
		"a/noext":  "application/octet-stream",
	}
	for key, want := range cases {
		if got := ContentType(key); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", key, got, want)
		}
	}
}
