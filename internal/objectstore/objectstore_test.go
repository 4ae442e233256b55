package objectstore_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"scrapbook/internal/objectstore"
)

func TestLocal_Upload(t *testing.T) {
	dir := t.TempDir()
	l, err := objectstore.NewLocal(dir, "http://localhost:8080/objects/")
	if err != nil {
		t.Fatal(err)
	}

	url, err := l.Upload(context.Background(), "u1/pic.png", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "http://localhost:8080/objects/u1/pic.png" {
		t.Errorf("url = %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "u1", "pic.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("stored = %q, %v", data, err)
	}
}

func TestLocal_UploadStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	l, _ := objectstore.NewLocal(filepath.Join(dir, "objects"), "http://x")
	url, err := l.Upload(context.Background(), "../../escape.txt", strings.NewReader("x"), 1, "")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "http://x/escape.txt" {
		t.Errorf("url = %q", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("upload escaped the object directory")
	}
}

func TestLocal_UploadCancelled(t *testing.T) {
	l, _ := objectstore.NewLocal(t.TempDir(), "http://x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Upload(ctx, "u/a.png", strings.NewReader("data"), 4, ""); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestObjectPath(t *testing.T) {
	re := regexp.MustCompile(`^user-7/[0-9a-f-]{36}\.jpg$`)
	if p := objectstore.ObjectPath("user-7", "Holiday.JPG"); !re.MatchString(p) {
		t.Errorf("ObjectPath = %q", p)
	}
	if p := objectstore.ObjectPath("u", "noext"); !strings.HasSuffix(p, ".bin") {
		t.Errorf("ObjectPath without extension = %q", p)
	}
}

func TestContentType(t *testing.T) {
	if ct := objectstore.ContentType("a.png"); ct != "image/png" {
		t.Errorf("png = %q", ct)
	}
	if ct := objectstore.ContentType("a.unknownext"); ct != "application/octet-stream" {
		t.Errorf("unknown = %q", ct)
	}
}

func TestS3_PublicURL(t *testing.T) {
	s, err := objectstore.NewS3(objectstore.S3Config{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", PathStyle: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.URL("u1/x.png"); got != "http://localhost:9000/scrapbook-images/u1/x.png" {
		t.Errorf("URL = %q", got)
	}
}
